package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"resumeEditor/internal/config"
)

const slowQueryThreshold = 500 * time.Millisecond

// InitDatabase 使用配置初始化 PostgreSQL 连接，并返回 GORM 数据库实例。
// SQL 日志写入 log；debug 为 true 时输出全部 SQL，否则只记录慢查询与错误。
func InitDatabase(cfg config.DatabaseConfig, log *slog.Logger, debug bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         newGormLogger(log, debug),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func newGormLogger(log *slog.Logger, debug bool) logger.Interface {
	if log == nil {
		log = slog.Default()
	}
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return logger.New(slogWriter{log: log.With(slog.String("component", "gorm"))}, logger.Config{
		SlowThreshold: slowQueryThreshold,
		LogLevel:      level,
		// 归属校验大量依赖未找到的查询，不是错误。
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// slogWriter 把 gorm 的 Printf 风格输出转给 slog。
type slogWriter struct {
	log *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.log.Info(fmt.Sprintf(format, args...))
}
