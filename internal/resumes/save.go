package resumes

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resumeEditor/internal/database"
	"resumeEditor/internal/logging"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/storage"
	"resumeEditor/internal/tasks"
)

// SaveInput 是一次保存请求，ID 为空时新建。
type SaveInput struct {
	ID          string
	Values      resume.Values
	PhotoChange resume.PhotoChange
}

// Save 新建或更新用户的简历，并整体替换条目列表。
func (s *Service) Save(ctx context.Context, userID string, in SaveInput) (*Resume, error) {
	if userID == "" {
		return nil, ErrNotFound
	}
	if err := resume.Validate(in.Values); err != nil {
		return nil, err
	}
	v := in.Values.Clone()
	v.EnsureIDs()

	var (
		row      *database.Resume
		creating bool
	)
	if in.ID == "" {
		creating = true
		row = &database.Resume{ID: uuid.NewString(), UserID: userID}
	} else {
		var err error
		row, err = s.loadOwned(s.db.WithContext(ctx), userID, in.ID)
		if err != nil {
			return nil, err
		}
	}

	oldPhotoKey := row.PhotoKey
	uploadedKey := ""
	switch in.PhotoChange {
	case resume.PhotoReplace:
		if v.Photo.Pending() {
			key, err := s.uploadPhoto(ctx, userID, row.ID, v.Photo)
			if err != nil {
				return nil, err
			}
			uploadedKey = key
			row.PhotoKey = key
		}
	case resume.PhotoRemove:
		row.PhotoKey = ""
	}

	applyValues(row, v)
	works := workRows(row.ID, v.WorkExperiences)
	educations := educationRows(row.ID, v.Educations)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if creating {
			if err := tx.Omit(clause.Associations).Create(row).Error; err != nil {
				return fmt.Errorf("create resume: %w", err)
			}
		} else {
			if err := tx.Omit(clause.Associations).Save(row).Error; err != nil {
				return fmt.Errorf("update resume: %w", err)
			}
		}
		if err := tx.Where("resume_id = ?", row.ID).Delete(&database.WorkExperience{}).Error; err != nil {
			return fmt.Errorf("clear work experiences: %w", err)
		}
		if err := tx.Where("resume_id = ?", row.ID).Delete(&database.Education{}).Error; err != nil {
			return fmt.Errorf("clear educations: %w", err)
		}
		if len(works) > 0 {
			if err := tx.Create(&works).Error; err != nil {
				return fmt.Errorf("insert work experiences: %w", err)
			}
		}
		if len(educations) > 0 {
			if err := tx.Create(&educations).Error; err != nil {
				return fmt.Errorf("insert educations: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if uploadedKey != "" {
			s.deleteObject(ctx, uploadedKey)
		}
		return nil, err
	}

	if oldPhotoKey != "" && oldPhotoKey != row.PhotoKey {
		s.deleteObject(ctx, oldPhotoKey)
	}
	s.invalidateList(ctx, userID)

	row.WorkExperiences = works
	row.Educations = educations
	out := s.toResume(ctx, row)
	return &out, nil
}

func (s *Service) uploadPhoto(ctx context.Context, userID, resumeID string, p *resume.Photo) (string, error) {
	if err := resume.ValidatePhoto(p); err != nil {
		return "", err
	}
	if s.store == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}
	if err := s.scanner.Scan(ctx, p.Data); err != nil {
		return "", fmt.Errorf("scan photo: %w", err)
	}
	key, err := storage.NewPhotoKey(userID, resumeID, p.ContentType)
	if err != nil {
		return "", &resume.ValidationError{
			Section: resume.SectionPhoto,
			Fields:  map[string]string{"photo.content_type": "must be png, jpeg, webp or gif"},
		}
	}
	if err := s.store.UploadFile(ctx, key, bytes.NewReader(p.Data), int64(len(p.Data)), p.ContentType); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return key, nil
}

// deleteObject 删除对象但不让调用方失败；存储拒绝时改为排队清理任务。
func (s *Service) deleteObject(ctx context.Context, key string) {
	if key == "" || s.store == nil {
		return
	}
	err := s.store.DeleteObject(ctx, key)
	if err == nil {
		return
	}
	log := s.logger.With(slog.String("object_key", key))
	log.Warn("delete object failed, scheduling cleanup", slog.Any("error", err))
	if s.queue == nil {
		return
	}
	task, err := tasks.NewObjectDeleteTask(key, logging.CorrelationID(ctx))
	if err != nil {
		log.Error("build cleanup task failed", slog.Any("error", err))
		return
	}
	if _, err := s.queue.EnqueueContext(ctx, task); err != nil {
		log.Error("enqueue cleanup task failed", slog.Any("error", err))
	}
}
