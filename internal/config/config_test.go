package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
	t.Setenv("AUTH_PUBLIC_KEY_PATH", "/keys/public.pem")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.API.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 1500*time.Millisecond, cfg.Autosave.Debounce)
	require.Equal(t, 5, cfg.Autosave.MaxAttempts)
	require.Equal(t, 20, cfg.AI.HourlyQuota)
	require.Equal(t, 10, cfg.Worker.Concurrency)
	require.Empty(t, cfg.Clamd.Addr)
	require.Empty(t, cfg.API.Origins())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("AUTOSAVE_DEBOUNCE", "250ms")
	t.Setenv("AUTOSAVE_MAX_ATTEMPTS", "0")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("CLAMD_ADDR", "tcp://clamd:3310")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.API.Port)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.Origins())
	require.Equal(t, 250*time.Millisecond, cfg.Autosave.Debounce)
	require.Zero(t, cfg.Autosave.MaxAttempts)
	require.Equal(t, "key", cfg.AI.APIKey)
	require.Equal(t, "tcp://clamd:3310", cfg.Clamd.Addr)
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"missing public key": func(t *testing.T) { t.Setenv("AUTH_PUBLIC_KEY_PATH", "") },
		"missing minio key":  func(t *testing.T) { t.Setenv("MINIO_ACCESS_KEY_ID", "") },
		"zero debounce":      func(t *testing.T) { t.Setenv("AUTOSAVE_DEBOUNCE", "0s") },
		"zero command rate":  func(t *testing.T) { t.Setenv("API_WS_COMMAND_RATE", "0") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			setRequiredEnv(t)
			mutate(t)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	require.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())
}
