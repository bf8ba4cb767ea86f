package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
	"github.com/bcalm/launchpad_server/internal/repository"
)

var (
	ErrJobNotFound        = errors.New("analysis job not found")
	ErrJobAlreadyTerminal = errors.New("analysis job has already finished")
)

// StatusPublisher announces terminal transitions. Both the Redis publisher
// and the websocket hub satisfy it.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg *pubsub.StatusMessage) error
}

type JobService struct {
	jobRepo   *repository.JobRepository
	publisher StatusPublisher
	now       func() time.Time
}

// NewJobService creates the job tracker. publisher may be nil.
func NewJobService(jobRepo *repository.JobRepository, publisher StatusPublisher) *JobService {
	return &JobService{
		jobRepo:   jobRepo,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create opens a processing job for the submission.
func (s *JobService) Create(submissionID string, userID *string) (*model.AnalysisJob, error) {
	job := &model.AnalysisJob{
		SubmissionID: submissionID,
		UserID:       userID,
		Status:       model.JobStatusProcessing,
	}
	if err := s.jobRepo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

func (s *JobService) Get(jobID string) (*model.AnalysisJob, error) {
	job, err := s.jobRepo.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Complete stores the report and moves the job from processing to complete.
func (s *JobService) Complete(ctx context.Context, jobID string, report *model.Report) error {
	if report == nil {
		return errors.New("report is required")
	}

	ok, err := s.jobRepo.CompleteIfProcessing(jobID, report, s.now())
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if !ok {
		return s.transitionRejected(jobID)
	}

	log.Info().Str("job_id", jobID).Int("overall_score", report.OverallScore).Msg("analysis job complete")
	s.publish(ctx, jobID, model.JobStatusComplete, "")
	return nil
}

// Fail records errorText and moves the job from processing to failed.
func (s *JobService) Fail(ctx context.Context, jobID, errorText string) error {
	ok, err := s.jobRepo.FailIfProcessing(jobID, errorText, s.now())
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	if !ok {
		return s.transitionRejected(jobID)
	}

	log.Warn().Str("job_id", jobID).Str("error_text", errorText).Msg("analysis job failed")
	s.publish(ctx, jobID, model.JobStatusFailed, errorText)
	return nil
}

func (s *JobService) ListByUser(userID string, page, pageSize int) ([]*model.AnalysisJob, int64, error) {
	return s.jobRepo.ListByUserID(userID, page, pageSize)
}

// FailStale fails every job still processing after olderThan. With dryRun
// the candidates are returned without being touched.
func (s *JobService) FailStale(ctx context.Context, olderThan time.Duration, errorText string, dryRun bool) ([]string, error) {
	jobs, err := s.jobRepo.ListStaleProcessing(s.now().Add(-olderThan), 500)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	var failed []string
	for _, job := range jobs {
		if dryRun {
			failed = append(failed, job.ID)
			continue
		}
		err := s.Fail(ctx, job.ID, errorText)
		if errors.Is(err, ErrJobAlreadyTerminal) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("failed to time out stale job")
			continue
		}
		failed = append(failed, job.ID)
	}
	return failed, nil
}

func (s *JobService) CountProcessing() (int64, error) {
	return s.jobRepo.CountByStatus(model.JobStatusProcessing)
}

func (s *JobService) transitionRejected(jobID string) error {
	if _, err := s.Get(jobID); err != nil {
		return err
	}
	return ErrJobAlreadyTerminal
}

func (s *JobService) publish(ctx context.Context, jobID, status, errorText string) {
	if s.publisher == nil {
		return
	}

	msg := &pubsub.StatusMessage{
		Type:   pubsub.MessageTypeJobStatus,
		JobID:  jobID,
		Status: status,
		Error:  errorText,
	}
	if err := s.publisher.PublishStatus(ctx, msg); err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("failed to publish job status")
	}
}
