package resumes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"resumeEditor/internal/database"
	"resumeEditor/internal/resume"
)

const dateLayout = "2006-01-02"

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// toResume 转换已预加载子表的记录。已存储的照片附带签名预览链接，签名失败只丢掉预览。
func (s *Service) toResume(ctx context.Context, row *database.Resume) Resume {
	v := resume.Values{
		Title:       row.Title,
		Description: row.Description,
		PersonalInfo: resume.PersonalInfo{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			JobTitle:  row.JobTitle,
			City:      row.City,
			Country:   row.Country,
			Phone:     row.Phone,
			Email:     row.Email,
		},
		Summary:     row.Summary,
		ColorHex:    row.ColorHex,
		BorderStyle: resume.BorderStyle(row.BorderStyle),
	}
	if len(row.Skills) > 0 {
		if err := json.Unmarshal(row.Skills, &v.Skills); err != nil {
			s.logger.Warn("decode skills failed", slog.String("resume_id", row.ID), slog.Any("error", err))
		}
	}
	for _, w := range row.WorkExperiences {
		v.WorkExperiences = append(v.WorkExperiences, resume.WorkExperience{
			ID:          w.ID,
			Position:    w.Position,
			Company:     w.Company,
			StartDate:   formatDate(w.StartDate),
			EndDate:     formatDate(w.EndDate),
			Description: w.Description,
		})
	}
	for _, e := range row.Educations {
		v.Educations = append(v.Educations, resume.Education{
			ID:        e.ID,
			Degree:    e.Degree,
			School:    e.School,
			StartDate: formatDate(e.StartDate),
			EndDate:   formatDate(e.EndDate),
		})
	}
	if row.PhotoKey != "" {
		p := &resume.Photo{Key: row.PhotoKey}
		if s.store != nil {
			url, err := s.store.GeneratePresignedURL(ctx, row.PhotoKey, photoURLTTL)
			if err != nil {
				s.logger.Warn("sign photo url failed", slog.String("resume_id", row.ID), slog.Any("error", err))
			} else {
				p.PreviewURL = url
			}
		}
		v.Photo = p
	}
	return Resume{
		ID:        row.ID,
		Values:    v,
		HasPDF:    row.PdfKey != "",
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// applyValues 把可编辑字段写入 row。照片与 PDF 的 key 由调用方处理。
func applyValues(row *database.Resume, v resume.Values) {
	row.Title = v.Title
	row.Description = v.Description
	row.FirstName = v.PersonalInfo.FirstName
	row.LastName = v.PersonalInfo.LastName
	row.JobTitle = v.PersonalInfo.JobTitle
	row.City = v.PersonalInfo.City
	row.Country = v.PersonalInfo.Country
	row.Phone = v.PersonalInfo.Phone
	row.Email = v.PersonalInfo.Email
	row.Summary = v.Summary
	row.ColorHex = v.ColorHex
	row.BorderStyle = string(v.BorderStyle)

	skills := v.Skills
	if skills == nil {
		skills = []string{}
	}
	data, _ := json.Marshal(skills)
	row.Skills = datatypes.JSON(data)
}

func workRows(resumeID string, list []resume.WorkExperience) []database.WorkExperience {
	out := make([]database.WorkExperience, 0, len(list))
	for i, w := range list {
		out = append(out, database.WorkExperience{
			ID:          w.ID,
			ResumeID:    resumeID,
			SortOrder:   i,
			Position:    w.Position,
			Company:     w.Company,
			StartDate:   parseDate(w.StartDate),
			EndDate:     parseDate(w.EndDate),
			Description: w.Description,
		})
	}
	return out
}

func educationRows(resumeID string, list []resume.Education) []database.Education {
	out := make([]database.Education, 0, len(list))
	for i, e := range list {
		out = append(out, database.Education{
			ID:        e.ID,
			ResumeID:  resumeID,
			SortOrder: i,
			Degree:    e.Degree,
			School:    e.School,
			StartDate: parseDate(e.StartDate),
			EndDate:   parseDate(e.EndDate),
		})
	}
	return out
}
