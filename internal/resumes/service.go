// Package resumes 实现简历的持久化操作，所有操作都限定在当前用户范围内。
package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"resumeEditor/internal/database"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/storage"
)

var (
	// ErrNotFound 同时表示简历不存在与属于他人。
	ErrNotFound = errors.New("resume not found")
	// ErrPDFNotReady 表示 PDF 尚未生成。
	ErrPDFNotReady = errors.New("pdf not ready")
)

const (
	photoURLTTL = time.Hour
	pdfLinkTTL  = 5 * time.Minute
)

// ObjectStore 是服务需要的 storage.Client 子集。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	DeleteObject(ctx context.Context, objectKey string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// ListCache 按用户缓存编码后的列表结果。
type ListCache interface {
	Get(ctx context.Context, userID string) ([]byte, bool, error)
	Set(ctx context.Context, userID string, data []byte) error
	Invalidate(ctx context.Context, userID string) error
}

// TaskQueue 投递后台任务。
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Resume 是调用方看到的一份已保存简历。
type Resume struct {
	ID string `json:"id"`
	resume.Values
	HasPDF    bool      `json:"has_pdf"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListResult 是用户的简历概览。
type ListResult struct {
	Resumes    []Resume `json:"resumes"`
	TotalCount int64    `json:"total_count"`
}

// Deps 汇总服务依赖，Cache、Queue 与 Scanner 可以为空。
type Deps struct {
	DB      *gorm.DB
	Store   ObjectStore
	Scanner storage.Scanner
	Cache   ListCache
	Queue   TaskQueue
	Logger  *slog.Logger
}

// Service 实现简历操作。
type Service struct {
	db      *gorm.DB
	store   ObjectStore
	scanner storage.Scanner
	cache   ListCache
	queue   TaskQueue
	logger  *slog.Logger
}

// NewService 创建 Service。
func NewService(d Deps) *Service {
	s := &Service{
		db:      d.DB,
		store:   d.Store,
		scanner: d.Scanner,
		cache:   d.Cache,
		queue:   d.Queue,
		logger:  d.Logger,
	}
	if s.scanner == nil {
		s.scanner = storage.NopScanner{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func orderBySort(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func (s *Service) withChildren(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("WorkExperiences", orderBySort).
		Preload("Educations", orderBySort)
}

// List 按最近更新排序返回用户的简历及总数。
func (s *Service) List(ctx context.Context, userID string) (*ListResult, error) {
	if cached, ok := s.cachedList(ctx, userID); ok {
		return cached, nil
	}

	var (
		rows  []database.Resume
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.withChildren(gctx).
			Where("user_id = ?", userID).
			Order("updated_at DESC").
			Find(&rows).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).
			Model(&database.Resume{}).
			Where("user_id = ?", userID).
			Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}

	out := &ListResult{Resumes: make([]Resume, 0, len(rows)), TotalCount: total}
	for i := range rows {
		out.Resumes = append(out.Resumes, s.toResume(ctx, &rows[i]))
	}
	s.storeList(ctx, userID, out)
	return out, nil
}

func (s *Service) cachedList(ctx context.Context, userID string) (*ListResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("read resume list cache failed", slog.String("user_id", userID), slog.Any("error", err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var out ListResult
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Warn("decode resume list cache failed", slog.String("user_id", userID), slog.Any("error", err))
		return nil, false
	}
	return &out, true
}

func (s *Service) storeList(ctx context.Context, userID string, res *ListResult) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, userID, data); err != nil {
		s.logger.Warn("write resume list cache failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}

func (s *Service) invalidateList(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("invalidate resume list cache failed", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// Get 返回用户的一份简历。
func (s *Service) Get(ctx context.Context, userID, id string) (*Resume, error) {
	row, err := s.loadOwned(s.withChildren(ctx), userID, id)
	if err != nil {
		return nil, err
	}
	out := s.toResume(ctx, row)
	return &out, nil
}

func (s *Service) loadOwned(db *gorm.DB, userID, id string) (*database.Resume, error) {
	if id == "" || userID == "" {
		return nil, ErrNotFound
	}
	var row database.Resume
	err := db.Where("id = ? AND user_id = ?", id, userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load resume: %w", err)
	}
	return &row, nil
}
