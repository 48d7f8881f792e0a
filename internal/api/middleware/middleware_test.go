package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"resumeEditor/internal/auth"
	"resumeEditor/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]string

func (s stubVerifier) ValidateToken(token string) (*auth.TokenClaims, error) {
	sub, ok := s[token]
	if !ok {
		return nil, errors.New("invalid")
	}
	return &auth.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: sub}}, nil
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/me", AuthMiddleware(stubVerifier{"good": "u1"}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"extra parts", "Bearer good extra", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			require.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, "u1", w.Body.String())
			} else {
				require.JSONEq(t, `{"error":"User not authenticated"}`, w.Body.String())
			}
		})
	}
}

func TestCorrelationIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		require.Equal(t, GetCorrelationID(c), logging.CorrelationID(c.Request.Context()))
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "abc")
	w := serve(r, req)
	require.Equal(t, "abc", w.Header().Get(CorrelationIDHeader))

	for _, bad := range []string{strings.Repeat("x", 200), "a b", "id\x00"} {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(CorrelationIDHeader, bad)
		w = serve(r, req)
		generated := w.Header().Get(CorrelationIDHeader)
		require.NotEqual(t, bad, generated)
		require.Len(t, generated, 36)
	}
}

func TestSlogLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(logger))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/resumes/:id", func(c *gin.Context) {
		c.Set(UserIDKey, "u1")
		LoggerFromContext(c).Info("handler ran")
		c.Status(http.StatusInternalServerError)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Empty(t, buf.String())

	req := httptest.NewRequest(http.MethodGet, "/v1/resumes/r1", nil)
	req.Header.Set(CorrelationIDHeader, "req-1")
	serve(r, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var handlerLine, access map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &handlerLine))
	require.Equal(t, "req-1", handlerLine["correlation_id"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))
	require.Equal(t, "ERROR", access["level"])
	require.Equal(t, "/v1/resumes/:id", access["route"])
	require.Equal(t, "u1", access["user_id"])
	require.EqualValues(t, http.StatusInternalServerError, access["status"])
}

func TestAccessLevel(t *testing.T) {
	require.Equal(t, slog.LevelInfo, accessLevel("/v1/resumes", http.StatusOK))
	require.Equal(t, slog.LevelInfo, accessLevel("unmatched", http.StatusNotFound))
	require.Equal(t, slog.LevelWarn, accessLevel("/v1/resumes", http.StatusConflict))
	require.Equal(t, slog.LevelError, accessLevel("/health", http.StatusServiceUnavailable))
	require.Equal(t, slog.LevelDebug, accessLevel("/metrics", http.StatusOK))
}

func TestLoggerFromContext_Default(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	require.Same(t, slog.Default(), LoggerFromContext(c))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	require.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))).Code)
	require.Equal(t, http.StatusRequestEntityTooLarge, serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too large"))).Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "boom")
}

func TestInternalSecretMiddleware(t *testing.T) {
	open := gin.New()
	open.GET("/metrics", InternalSecretMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	require.Equal(t, http.StatusOK, serve(open, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)

	guarded := gin.New()
	guarded.GET("/metrics", InternalSecretMiddleware("s3cret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusUnauthorized, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("X-Internal-Secret", "s3cret")
	require.Equal(t, http.StatusOK, serve(guarded, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics?secret=s3cret", nil)
	require.Equal(t, http.StatusUnauthorized, serve(guarded, req).Code)
}
