package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	QualityFull    = "full"
	QualityPartial = "partial"
)

// ContextSnapshot is the user context captured at upload time.
type ContextSnapshot struct {
	CurrentStatus          string `json:"current_status,omitempty"`
	TargetRole             string `json:"target_role,omitempty"`
	YearsExperience        *int   `json:"years_experience,omitempty"`
	JDText                 string `json:"jd_text,omitempty"`
	PersonalizationQuality string `json:"personalization_quality"`
	SessionID              string `json:"session_id"`
}

// HasJobDescription reports whether a job description was supplied.
func (c ContextSnapshot) HasJobDescription() bool {
	return c.JDText != ""
}

// Submission is one uploaded CV. Rows are written once and never updated.
type Submission struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	UserID           *string         `gorm:"size:64;index" json:"user_id,omitempty"`
	FilePath         string          `gorm:"size:500;not null" json:"file_path"`
	OriginalFileName string          `gorm:"size:255" json:"original_file_name"`
	MimeType         string          `gorm:"size:100" json:"mime_type"`
	CVText           string          `gorm:"type:text;not null" json:"-"`
	MetaSnapshot     ContextSnapshot `gorm:"serializer:json;type:json" json:"meta_snapshot"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
}

func (Submission) TableName() string {
	return "cv_submissions"
}

func (s *Submission) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
