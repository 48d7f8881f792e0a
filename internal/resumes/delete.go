package resumes

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"resumeEditor/internal/database"
	"resumeEditor/internal/logging"
	"resumeEditor/internal/tasks"
)

// Delete 删除用户的简历。先尽力删除存储对象，失败也不阻止删除记录。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	row, err := s.loadOwned(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return err
	}

	s.deleteObject(ctx, row.PhotoKey)
	s.deleteObject(ctx, row.PdfKey)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", row.ID).Delete(&database.WorkExperience{}).Error; err != nil {
			return fmt.Errorf("delete work experiences: %w", err)
		}
		if err := tx.Where("resume_id = ?", row.ID).Delete(&database.Education{}).Error; err != nil {
			return fmt.Errorf("delete educations: %w", err)
		}
		res := tx.Where("id = ? AND user_id = ?", row.ID, userID).Delete(&database.Resume{})
		if res.Error != nil {
			return fmt.Errorf("delete resume: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateList(ctx, userID)
	return nil
}

// RequestPDF 把 PDF 生成加入队列并返回任务 ID。
func (s *Service) RequestPDF(ctx context.Context, userID, id string) (string, error) {
	row, err := s.loadOwned(s.db.WithContext(ctx).Select("id", "user_id"), userID, id)
	if err != nil {
		return "", err
	}
	if s.queue == nil {
		return "", fmt.Errorf("task queue is not configured")
	}
	task, err := tasks.NewPDFGenerateTask(row.ID, userID, logging.CorrelationID(ctx))
	if err != nil {
		return "", err
	}
	info, err := s.queue.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue pdf generation: %w", err)
	}
	return info.ID, nil
}

// PDFLink 返回已生成 PDF 的限时下载链接。
func (s *Service) PDFLink(ctx context.Context, userID, id string) (string, error) {
	row, err := s.loadOwned(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return "", err
	}
	if row.PdfKey == "" {
		return "", ErrPDFNotReady
	}
	url, err := s.store.GeneratePresignedURL(ctx, row.PdfKey, pdfLinkTTL)
	if err != nil {
		return "", fmt.Errorf("sign pdf link: %w", err)
	}
	return url, nil
}

// AttachPDF 记录新生成的 PDF 并删除旧的。
// 不更新 updated_at，列表顺序只跟随编辑。
func (s *Service) AttachPDF(ctx context.Context, userID, id, key string) error {
	row, err := s.loadOwned(s.db.WithContext(ctx), userID, id)
	if err != nil {
		return err
	}
	previous := row.PdfKey
	res := s.db.WithContext(ctx).
		Model(&database.Resume{}).
		Where("id = ? AND user_id = ?", id, userID).
		UpdateColumn("pdf_key", key)
	if res.Error != nil {
		return fmt.Errorf("store pdf key: %w", res.Error)
	}
	if previous != "" && previous != key {
		s.deleteObject(ctx, previous)
	}
	s.invalidateList(ctx, userID)
	return nil
}
