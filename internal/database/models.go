package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Resume 表示用户的一份简历。UserID 为身份提供方签发令牌中的 subject。
type Resume struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      string `gorm:"index;size:128;not null"`
	Title       string `gorm:"size:255"`
	Description string `gorm:"size:1000"`

	FirstName string `gorm:"size:100"`
	LastName  string `gorm:"size:100"`
	JobTitle  string `gorm:"size:200"`
	City      string `gorm:"size:100"`
	Country   string `gorm:"size:100"`
	Phone     string `gorm:"size:50"`
	Email     string `gorm:"size:255"`

	PhotoKey    string         `gorm:"size:512"`
	Summary     string         `gorm:"type:text"`
	Skills      datatypes.JSON `gorm:"type:jsonb"`
	ColorHex    string         `gorm:"size:16;default:'#000000'"`
	BorderStyle string         `gorm:"size:16;default:'squircle'"`
	PdfKey      string         `gorm:"size:512"`

	WorkExperiences []WorkExperience `gorm:"constraint:OnDelete:CASCADE"`
	Educations      []Education      `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// WorkExperience 是简历下的一段工作经历，以 (ResumeID, ID) 为主键，SortOrder 保存展示顺序。
type WorkExperience struct {
	ID          string `gorm:"primaryKey;size:64"`
	ResumeID    string `gorm:"primaryKey;size:36"`
	SortOrder   int
	Position    string `gorm:"size:200"`
	Company     string `gorm:"size:200"`
	StartDate   *time.Time
	EndDate     *time.Time
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Education 是简历下的一段教育经历。
type Education struct {
	ID        string `gorm:"primaryKey;size:64"`
	ResumeID  string `gorm:"primaryKey;size:36"`
	SortOrder int
	Degree    string `gorm:"size:200"`
	School    string `gorm:"size:200"`
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Models 返回需要迁移的全部模型。
func Models() []any {
	return []any{&Resume{}, &WorkExperience{}, &Education{}}
}

// AutoMigrate 创建或更新表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
