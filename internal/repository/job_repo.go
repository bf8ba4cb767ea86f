package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.AnalysisJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id string) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUserID returns a page of the user's jobs, newest first, with their submissions.
func (r *JobRepository) ListByUserID(userID string, page, pageSize int) ([]*model.AnalysisJob, int64, error) {
	var jobs []*model.AnalysisJob
	var total int64

	if err := r.db.Model(&model.AnalysisJob{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.Where("user_id = ?", userID).
		Preload("Submission").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&jobs).Error

	return jobs, total, err
}

// CompleteIfProcessing moves a processing job to complete in a single
// conditional update. It reports false when the job was not processing.
func (r *JobRepository) CompleteIfProcessing(id string, report *model.Report, at time.Time) (bool, error) {
	result := r.db.Model(&model.AnalysisJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusProcessing).
		Select("status", "result_json", "completed_at").
		Updates(&model.AnalysisJob{
			Status:      model.JobStatusComplete,
			Result:      report,
			CompletedAt: &at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FailIfProcessing moves a processing job to failed, same guard as CompleteIfProcessing.
func (r *JobRepository) FailIfProcessing(id, errorText string, at time.Time) (bool, error) {
	result := r.db.Model(&model.AnalysisJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusProcessing).
		Select("status", "error_text", "completed_at").
		Updates(&model.AnalysisJob{
			Status:      model.JobStatusFailed,
			ErrorText:   errorText,
			CompletedAt: &at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListStaleProcessing returns jobs still processing that were created before the cutoff.
func (r *JobRepository) ListStaleProcessing(before time.Time, limit int) ([]*model.AnalysisJob, error) {
	var jobs []*model.AnalysisJob
	err := r.db.Where("status = ? AND created_at < ?", model.JobStatusProcessing, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// CountByStatus is used by the health endpoint.
func (r *JobRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.AnalysisJob{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
