package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"resumeEditor/internal/config"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, parseLevel("warning"))
	require.Equal(t, slog.LevelError, parseLevel(" error "))
	require.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newHandler(&buf, config.LogConfig{Level: "info", Format: "json"}))
	logger.Info("saved", slog.String("resume_id", "r1"))
	require.Contains(t, buf.String(), `"resume_id":"r1"`)

	buf.Reset()
	logger = slog.New(newHandler(&buf, config.LogConfig{Level: "warn", Format: "text"}))
	logger.Info("dropped")
	logger.Warn("kept")
	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "msg=kept")
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, CorrelationID(ctx))
	require.Equal(t, "abc", CorrelationID(WithCorrelationID(ctx, "abc")))
}
