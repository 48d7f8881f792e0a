package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/api"
	"resumeEditor/internal/auth"
	"resumeEditor/internal/autosave"
	"resumeEditor/internal/cache"
	"resumeEditor/internal/config"
	"resumeEditor/internal/database"
	"resumeEditor/internal/logging"
	"resumeEditor/internal/resumes"
	"resumeEditor/internal/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.MustLoad()
	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database, logger, cfg.Log.Level == "debug")
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("database migrated")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	service := resumes.NewService(resumes.Deps{
		DB:      db,
		Store:   storageClient,
		Scanner: storage.NewScanner(cfg.Clamd.Addr),
		Cache:   cache.NewListCache(redisClient, cfg.Cache.ListTTL),
		Queue:   queue,
		Logger:  logger,
	})

	authService, err := loadAuth(cfg.Auth)
	if err != nil {
		return err
	}

	var generator ai.SummaryGenerator
	if cfg.AI.APIKey != "" {
		gemini, err := ai.NewGeminiGenerator(ctx, cfg.AI)
		if err != nil {
			return fmt.Errorf("init summary generator: %w", err)
		}
		defer gemini.Close()
		generator = ai.NewQuotaGenerator(gemini, redisClient, cfg.AI.HourlyQuota)
	} else {
		logger.Warn("GEMINI_API_KEY not set, summary generation disabled")
	}

	router := api.NewRouter(cfg.API, logger)
	sessions := api.RegisterRoutes(router, api.Deps{
		Resumes:     service,
		Generator:   generator,
		Auth:        authService,
		RedisClient: redisClient,
		Logger:      logger,
		WS: api.WsConfig{
			AllowedOrigins: cfg.API.Origins(),
			Autosave: autosave.Options{
				Debounce:     cfg.Autosave.Debounce,
				SaveTimeout:  cfg.Autosave.SaveTimeout,
				RetryInitial: cfg.Autosave.RetryInitial,
				RetryMax:     cfg.Autosave.RetryMax,
				MaxAttempts:  cfg.Autosave.MaxAttempts,
			},
			FlushTimeout: cfg.Autosave.FlushTimeout,
			CommandRate:  cfg.API.WSCommandRate,
			CommandBurst: cfg.API.WSCommandBurst,
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown 不跟踪已升级的 WebSocket，会话由 WsHandler 自行取消并排空。
	srv.RegisterOnShutdown(sessions.CloseSessions)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("api shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		shutdownErr := srv.Shutdown(shutdownCtx)
		// 等待各会话把防抖窗口内的修改写入数据库。
		if err := sessions.Wait(shutdownCtx); err != nil {
			logger.Error("editor sessions not drained", slog.Any("error", err))
			return err
		}
		return shutdownErr
	})
	return g.Wait()
}

func loadAuth(cfg config.AuthConfig) (*auth.AuthService, error) {
	pub, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read auth public key: %w", err)
	}
	var priv []byte
	if cfg.PrivateKeyPath != "" {
		if priv, err = os.ReadFile(cfg.PrivateKeyPath); err != nil {
			return nil, fmt.Errorf("read auth private key: %w", err)
		}
	}
	svc, err := auth.NewAuthService(priv, pub, cfg.Issuer, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	return svc, nil
}
