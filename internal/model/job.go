package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"
)

// AnalysisJob tracks one scoring attempt against a Submission.
// Result and ErrorText are mutually exclusive and both empty while processing.
type AnalysisJob struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string     `gorm:"size:36;not null;index" json:"submission_id"`
	UserID       *string    `gorm:"size:64;index" json:"user_id,omitempty"`
	Status       string     `gorm:"size:20;default:processing;index" json:"status"` // processing, complete, failed
	Result       *Report    `gorm:"column:result_json;serializer:json;type:json" json:"result,omitempty"`
	ErrorText    string     `gorm:"type:text" json:"error_text,omitempty"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`

	Submission *Submission `gorm:"foreignKey:SubmissionID" json:"submission,omitempty"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}

func (j *AnalysisJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JobStatusProcessing
	}
	return nil
}

// IsTerminal reports whether the job has left the processing state.
func (j *AnalysisJob) IsTerminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusFailed
}
