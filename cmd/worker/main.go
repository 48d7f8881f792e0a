package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"resumeEditor/internal/cache"
	"resumeEditor/internal/config"
	"resumeEditor/internal/database"
	"resumeEditor/internal/logging"
	"resumeEditor/internal/metrics"
	"resumeEditor/internal/pdf"
	"resumeEditor/internal/resumes"
	"resumeEditor/internal/storage"
	"resumeEditor/internal/tasks"
	"resumeEditor/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg := config.MustLoad()
	logger := logging.New(cfg.Log)
	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database, logger, cfg.Log.Level == "debug")
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	queue := asynq.NewClient(redisOpt)
	defer queue.Close()

	// 列表缓存需要在写入 PDF 后失效，因此与 API 共用同一服务实现。
	service := resumes.NewService(resumes.Deps{
		DB:     db,
		Store:  storageClient,
		Cache:  cache.NewListCache(redisClient, cfg.Cache.ListTTL),
		Queue:  queue,
		Logger: logger,
	})

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	renderer := pdf.NewRenderer(logger)
	defer func() {
		if err := renderer.Close(); err != nil {
			logger.Warn("close pdf renderer failed", slog.Any("error", err))
		}
	}()

	pdfHandler := worker.NewPDFTaskHandler(service, storageClient, redisClient, renderer.Render, logger)
	deleteHandler := worker.NewObjectDeleteHandler(storageClient, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypePDFGenerate, pdfHandler)
	mux.Handle(tasks.TypePhotoDelete, deleteHandler)

	if addr := cfg.Worker.MetricsAddr; addr != "" {
		metricsSrv := &http.Server{Addr: addr, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics listener stopped", slog.Any("error", err))
			}
		}()
		defer metricsSrv.Close()
	}

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	// Run 会在收到 SIGTERM/SIGINT 后优雅退出。
	if err := server.Run(mux); err != nil {
		return fmt.Errorf("worker server stopped: %w", err)
	}
	return nil
}

// asynqLogger 把 asynq 的日志接入 slog。
type asynqLogger struct {
	l *slog.Logger
}

func newAsynqLogger(l *slog.Logger) asynqLogger {
	return asynqLogger{l: l.With(slog.String("component", "asynq"))}
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
