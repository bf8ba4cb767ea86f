package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/pkg/queue"
	"github.com/bcalm/launchpad_server/internal/repository"
)

// Dispatcher is satisfied by scorer.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, submission *model.Submission, job *model.AnalysisJob) error
}

// Processor runs the scorer dispatch for one queued job.
type Processor struct {
	jobRepo        *repository.JobRepository
	submissionRepo *repository.SubmissionRepository
	dispatcher     Dispatcher
}

func NewProcessor(
	jobRepo *repository.JobRepository,
	submissionRepo *repository.SubmissionRepository,
	dispatcher Dispatcher,
) *Processor {
	return &Processor{
		jobRepo:        jobRepo,
		submissionRepo: submissionRepo,
		dispatcher:     dispatcher,
	}
}

// Process loads the job and its submission and dispatches it. Jobs that
// already left processing are skipped so a redelivered message is harmless.
func (p *Processor) Process(ctx context.Context, msg *queue.DispatchMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Str("job_id", msg.JobID).Msg("dispatch for unknown job dropped")
			return nil
		}
		return fmt.Errorf("failed to get job: %w", err)
	}

	if job.Status != model.JobStatusProcessing {
		log.Info().Str("job_id", job.ID).Str("status", job.Status).Msg("job already finished, skipping dispatch")
		return nil
	}

	submission, err := p.submissionRepo.GetByID(job.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to get submission %s: %w", job.SubmissionID, err)
	}

	return p.dispatcher.Dispatch(ctx, submission, job)
}
