package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AI       AIConfig       `mapstructure:"ai"`
	Autosave AutosaveConfig `mapstructure:"autosave"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// BodyLimitBytes caps request bodies; resume payloads may embed a photo.
	BodyLimitBytes int64  `mapstructure:"body_limit_bytes"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
	// MetricsSecret guards /metrics when set.
	MetricsSecret string `mapstructure:"metrics_secret"`
	// WSCommandRate and WSCommandBurst limit editor commands per connection.
	WSCommandRate  float64 `mapstructure:"ws_command_rate"`
	WSCommandBurst int     `mapstructure:"ws_command_burst"`
}

// Origins splits AllowedOrigins into a list.
func (a APIConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(a.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains redis connection options.
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig points at the identity provider's signing keys.
// Only the public key is required; the private key enables dev token minting.
type AuthConfig struct {
	PublicKeyPath  string        `mapstructure:"public_key_path"`
	PrivateKeyPath string        `mapstructure:"private_key_path"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// AIConfig configures the summary generator.
type AIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
	HourlyQuota int           `mapstructure:"hourly_quota"`
}

// AutosaveConfig tunes the editing session's autosave loop.
type AutosaveConfig struct {
	Debounce     time.Duration `mapstructure:"debounce"`
	SaveTimeout  time.Duration `mapstructure:"save_timeout"`
	RetryInitial time.Duration `mapstructure:"retry_initial"`
	RetryMax     time.Duration `mapstructure:"retry_max"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// CacheConfig configures the resume list cache.
type CacheConfig struct {
	ListTTL time.Duration `mapstructure:"list_ttl"`
}

// WorkerConfig configures the asynq worker.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	// MetricsAddr exposes the worker's task metrics; empty disables the listener.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// ClamdConfig configures photo scanning. An empty address disables scanning.
type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig selects slog level and handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.body_limit_bytes", 4<<20)
	v.SetDefault("api.ws_command_rate", 20)
	v.SetDefault("api.ws_command_burst", 40)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resume_editor")
	v.SetDefault("database.user", "resume_editor")
	v.SetDefault("database.password", "resume_editor")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.public_endpoint", "http://localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("ai.hourly_quota", 20)
	v.SetDefault("autosave.debounce", 1500*time.Millisecond)
	v.SetDefault("autosave.save_timeout", 10*time.Second)
	v.SetDefault("autosave.retry_initial", time.Second)
	v.SetDefault("autosave.retry_max", 30*time.Second)
	v.SetDefault("autosave.max_attempts", 5)
	v.SetDefault("autosave.flush_timeout", 10*time.Second)
	v.SetDefault("cache.list_ttl", 5*time.Minute)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.metrics_addr", ":9091")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                 "API_PORT",
		"api.body_limit_bytes":     "API_BODY_LIMIT_BYTES",
		"api.allowed_origins":      "API_ALLOWED_ORIGINS",
		"api.metrics_secret":       "API_METRICS_SECRET",
		"api.ws_command_rate":      "API_WS_COMMAND_RATE",
		"api.ws_command_burst":     "API_WS_COMMAND_BURST",
		"database.host":            "DATABASE_HOST",
		"database.port":            "DATABASE_PORT",
		"database.name":            "POSTGRES_DB",
		"database.user":            "POSTGRES_USER",
		"database.password":        "POSTGRES_PASSWORD",
		"database.sslmode":         "DATABASE_SSLMODE",
		"redis.host":               "REDIS_HOST",
		"redis.port":               "REDIS_PORT",
		"minio.endpoint":           "MINIO_ENDPOINT",
		"minio.public_endpoint":    "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":      "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":  "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":            "MINIO_USE_SSL",
		"minio.bucket":             "MINIO_BUCKET",
		"minio.region":             "MINIO_REGION",
		"minio.bucket_lookup":      "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket": "MINIO_AUTO_CREATE_BUCKET",
		"auth.public_key_path":     "AUTH_PUBLIC_KEY_PATH",
		"auth.private_key_path":    "AUTH_PRIVATE_KEY_PATH",
		"auth.issuer":              "AUTH_ISSUER",
		"auth.access_token_ttl":    "AUTH_ACCESS_TOKEN_TTL",
		"ai.api_key":               "GEMINI_API_KEY",
		"ai.model":                 "AI_MODEL",
		"ai.temperature":           "AI_TEMPERATURE",
		"ai.timeout":               "AI_TIMEOUT",
		"ai.hourly_quota":          "AI_HOURLY_QUOTA",
		"autosave.debounce":        "AUTOSAVE_DEBOUNCE",
		"autosave.save_timeout":    "AUTOSAVE_SAVE_TIMEOUT",
		"autosave.retry_initial":   "AUTOSAVE_RETRY_INITIAL",
		"autosave.retry_max":       "AUTOSAVE_RETRY_MAX",
		"autosave.max_attempts":    "AUTOSAVE_MAX_ATTEMPTS",
		"autosave.flush_timeout":   "AUTOSAVE_FLUSH_TIMEOUT",
		"cache.list_ttl":           "CACHE_LIST_TTL",
		"worker.concurrency":       "WORKER_CONCURRENCY",
		"worker.metrics_addr":      "WORKER_METRICS_ADDR",
		"clamd.addr":               "CLAMD_ADDR",
		"log.level":                "LOG_LEVEL",
		"log.format":               "LOG_FORMAT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.BodyLimitBytes <= 0 {
		return errors.New("api body limit must be positive")
	}
	if cfg.API.WSCommandRate <= 0 || cfg.API.WSCommandBurst <= 0 {
		return errors.New("api websocket command rate and burst must be positive")
	}
	if cfg.Database.Host == "" {
		return errors.New("database host is required")
	}
	if cfg.Database.Port <= 0 {
		return errors.New("database port must be positive")
	}
	if cfg.Database.Name == "" {
		return errors.New("database name is required")
	}
	if cfg.Database.User == "" {
		return errors.New("database user is required")
	}
	if cfg.Database.Password == "" {
		return errors.New("database password is required")
	}
	if cfg.Database.SSLMode == "" {
		return errors.New("database sslmode is required")
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("auth public key path is required")
	}
	if cfg.Autosave.Debounce <= 0 {
		return errors.New("autosave debounce must be positive")
	}
	if cfg.Autosave.MaxAttempts < 0 {
		return errors.New("autosave max attempts must not be negative")
	}
	return nil
}
