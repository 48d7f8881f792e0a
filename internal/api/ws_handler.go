package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/api/middleware"
	"resumeEditor/internal/autosave"
	"resumeEditor/internal/editor"
	"resumeEditor/internal/errcode"
	"resumeEditor/internal/resumes"
)

const (
	wsAuthTimeout     = 10 * time.Second
	wsWriteTimeout    = 10 * time.Second
	wsPingInterval    = 30 * time.Second
	wsMaxMessageBytes = 8 << 20
	wsSendBuffer      = 64
)

// WsConfig 汇总编辑会话相关的参数。
type WsConfig struct {
	AllowedOrigins []string
	Autosave       autosave.Options
	FlushTimeout   time.Duration
	CommandRate    float64
	CommandBurst   int
}

// WsHandler 承载编辑会话：首条消息鉴权，随后接收命令、推送事件，并转发 Redis 通知。
type WsHandler struct {
	redisClient    *redis.Client
	verifier       middleware.TokenVerifier
	store          editor.Store
	generator      ai.SummaryGenerator
	logger         *slog.Logger
	cfg            WsConfig
	upgrader       websocket.Upgrader
	allowedOrigins []string

	// stopCtx 在进程关闭时取消，所有会话的上下文都挂在它上面。
	stopCtx  context.Context
	stop     context.CancelFunc
	mu       sync.Mutex
	draining bool
	sessions sync.WaitGroup
}

// NewWsHandler 构造 WebSocket 处理器。redisClient 与 generator 可以为空。
func NewWsHandler(
	redisClient *redis.Client,
	verifier middleware.TokenVerifier,
	store editor.Store,
	generator ai.SummaryGenerator,
	logger *slog.Logger,
	cfg WsConfig,
) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}
	if cfg.CommandRate <= 0 {
		cfg.CommandRate = 20
	}
	if cfg.CommandBurst <= 0 {
		cfg.CommandBurst = 40
	}
	stopCtx, stop := context.WithCancel(context.Background())
	h := &WsHandler{
		stopCtx:        stopCtx,
		stop:           stop,
		redisClient:    redisClient,
		verifier:       verifier,
		store:          store,
		generator:      generator,
		logger:         logger,
		cfg:            cfg,
		allowedOrigins: cfg.AllowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsCommandMessage struct {
	Type    string          `json:"type"`
	Command string          `json:"command"`
	Payload json.RawMessage `json:"payload"`
}

type wsNotification struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CloseSessions 拒绝新连接并取消所有进行中的会话；会话随后各自落盘未保存的修改。
// 可注册为 http.Server 的 OnShutdown 回调。
func (h *WsHandler) CloseSessions() {
	h.mu.Lock()
	h.draining = true
	h.mu.Unlock()
	h.stop()
}

// Wait 等待所有会话结束（包括关闭时的落盘），最多等到 ctx 结束。
func (h *WsHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for editor sessions: %w", ctx.Err())
	}
}

func (h *WsHandler) track() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.draining {
		return false
	}
	h.sessions.Add(1)
	return true
}

// HandleConnection 负责升级连接、鉴权并运行编辑会话。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	if !h.track() {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Server is shutting down"})
		return
	}
	defer h.sessions.Done()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageBytes)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	release := context.AfterFunc(h.stopCtx, func() {
		writeClose(conn, websocket.CloseGoingAway, "server shutting down")
		cancel()
		_ = conn.Close()
	})
	defer release()

	baseLog := h.logger.With(
		slog.String("client_ip", c.ClientIP()),
		slog.String("correlation_id", middleware.GetCorrelationID(c)),
	)

	userID, err := h.authenticate(conn)
	if err != nil {
		baseLog.Warn("websocket authentication failed", slog.Any("error", err))
		return
	}
	log := baseLog.With(slog.String("user_id", userID))
	log.Info("websocket authenticated")

	w := newWsWriter(conn, ctx.Done(), log)
	session, err := editor.Open(ctx, editor.Deps{
		Store:     h.store,
		Generator: h.generator,
		Emit:      func(ev editor.Event) { w.send(ev) },
		Logger:    log,
	}, editor.Options{
		UserID:   userID,
		ResumeID: c.Query("resumeId"),
		Step:     c.Query("step"),
		Autosave: h.cfg.Autosave,
	})
	if err != nil {
		payload := editor.ErrorPayload{Code: errcode.SystemError, Message: msgGeneric}
		if errors.Is(err, resumes.ErrNotFound) {
			payload = editor.ErrorPayload{Code: errcode.ResourceMissing, Message: msgResumeNotFound}
		} else {
			log.Error("open editor session failed", slog.Any("error", err))
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		_ = conn.WriteJSON(editor.Event{Type: editor.EventError, Payload: payload})
		writeClose(conn, websocket.ClosePolicyViolation, payload.Message)
		return
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.FlushTimeout)
		defer flushCancel()
		if err := session.Close(flushCtx); err != nil {
			log.Error("close editor session failed", slog.Any("error", err))
		}
	}()

	go w.run(ctx, cancel)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	if h.redisClient != nil {
		go h.subscribeLoop(ctx, userID, w, log)
	}

	err = h.readLoop(ctx, conn, session, w)
	cancel()
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		log.Info("websocket connection closed", slog.Any("error", err))
	} else {
		log.Info("websocket connection closed")
	}
}

// authenticate 读取首条消息并校验令牌。失败时关闭连接。
func (h *WsHandler) authenticate(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("read auth message: %w", err)
	}

	var authMsg wsAuthMessage
	if err := json.Unmarshal(message, &authMsg); err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, "invalid auth payload")
		return "", fmt.Errorf("decode auth payload: %w", err)
	}
	if authMsg.Type != "auth" || authMsg.Token == "" {
		writeClose(conn, websocket.ClosePolicyViolation, "auth required")
		return "", errors.New("invalid auth message")
	}

	claims, err := h.verifier.ValidateToken(authMsg.Token)
	if err != nil {
		writeClose(conn, websocket.ClosePolicyViolation, msgUnauthenticated)
		return "", fmt.Errorf("validate token: %w", err)
	}

	_ = conn.SetReadDeadline(time.Time{})
	return claims.UserID(), nil
}

func (h *WsHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *editor.Session, w *wsWriter) error {
	limiter := rate.NewLimiter(rate.Limit(h.cfg.CommandRate), h.cfg.CommandBurst)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !limiter.Allow() {
			w.send(editor.Event{Type: editor.EventError, Payload: editor.ErrorPayload{
				Code:    errcode.QuotaExceeded,
				Message: "too many commands",
			}})
			continue
		}

		var msg wsCommandMessage
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "command" {
			w.send(editor.Event{Type: editor.EventError, Payload: editor.ErrorPayload{
				Code:    errcode.ValidationFailed,
				Message: "invalid message",
			}})
			continue
		}
		cmd, err := editor.DecodeCommand(msg.Command, msg.Payload)
		if err != nil {
			w.send(editor.Event{Type: editor.EventError, Payload: editor.ErrorPayload{
				Code:    errcode.ValidationFailed,
				Message: err.Error(),
			}})
			continue
		}
		// 失败已由会话以事件形式推送。
		if err := session.Dispatch(cmd); errors.Is(err, editor.ErrClosed) {
			return err
		}
	}
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(5 * time.Second)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}

func (h *WsHandler) subscribeLoop(ctx context.Context, userID string, w *wsWriter, log *slog.Logger) {
	channel := "user_notify:" + userID
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Info("subscribed to redis channel", slog.String("channel", channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !json.Valid([]byte(msg.Payload)) {
				log.Warn("drop malformed notification", slog.String("channel", channel))
				continue
			}
			log.Info("forwarding message to client", slog.String("channel", channel))
			w.send(wsNotification{Type: "notification", Payload: json.RawMessage(msg.Payload)})
		}
	}
}

// wsWriter 串行化所有写操作：事件来自会话、自动保存与通知多个 goroutine。
type wsWriter struct {
	conn *websocket.Conn
	out  chan []byte
	done <-chan struct{}
	log  *slog.Logger
}

func newWsWriter(conn *websocket.Conn, done <-chan struct{}, log *slog.Logger) *wsWriter {
	return &wsWriter{conn: conn, out: make(chan []byte, wsSendBuffer), done: done, log: log}
}

func (w *wsWriter) send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		w.log.Error("encode websocket message failed", slog.Any("error", err))
		return
	}
	select {
	case w.out <- b:
	case <-w.done:
	}
}

func (w *wsWriter) run(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case b := <-w.out:
			_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				w.log.Info("write message failed", slog.Any("error", err))
				cancel()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := w.conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				w.log.Info("write ping failed", slog.Any("error", err))
				cancel()
				return
			}
		}
	}
}
