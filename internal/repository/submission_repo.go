package repository

import (
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
)

// SubmissionRepository has no update path: submissions are immutable.
type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(submission *model.Submission) error {
	return r.db.Create(submission).Error
}

func (r *SubmissionRepository) GetByID(id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.Where("id = ?", id).First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}
