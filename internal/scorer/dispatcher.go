package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/reportschema"
	"github.com/bcalm/launchpad_server/internal/service"
)

// JobTransitioner is the part of service.JobService the dispatcher drives.
type JobTransitioner interface {
	Complete(ctx context.Context, jobID string, report *model.Report) error
	Fail(ctx context.Context, jobID, errorText string) error
}

// Dispatcher hands a submission to the external scorer. Without a webhook
// it completes the job with a mock report after a delay.
type Dispatcher struct {
	webhookURL string
	publicURL  string
	mockDelay  time.Duration
	client     *http.Client
	jobs       JobTransitioner
	mockReport func(model.ContextSnapshot) *model.Report
}

func NewDispatcher(cfg config.ScorerConfig, publicURL string, jobs JobTransitioner) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		webhookURL: cfg.WebhookURL,
		publicURL:  strings.TrimRight(publicURL, "/"),
		mockDelay:  cfg.MockDelay,
		client:     &http.Client{Timeout: timeout},
		jobs:       jobs,
		mockReport: MockReport,
	}
}

// Mocked reports whether no webhook is configured.
func (d *Dispatcher) Mocked() bool {
	return d.webhookURL == ""
}

// Dispatch sends the job once. Delivery failures are recorded on the job and
// also returned; there is no retry.
func (d *Dispatcher) Dispatch(ctx context.Context, submission *model.Submission, job *model.AnalysisJob) error {
	if d.Mocked() {
		return d.mock(ctx, submission, job)
	}

	err := d.post(ctx, submission, job)
	if err == nil {
		log.Info().Str("job_id", job.ID).Str("submission_id", submission.ID).Msg("scorer webhook accepted job")
		return nil
	}

	log.Error().Err(err).Str("job_id", job.ID).Str("submission_id", submission.ID).Msg("scorer webhook failed")
	if ferr := d.jobs.Fail(ctx, job.ID, service.DispatchErrorText); ferr != nil && !errors.Is(ferr, service.ErrJobAlreadyTerminal) {
		log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to mark job failed")
	}
	return err
}

func (d *Dispatcher) post(ctx context.Context, submission *model.Submission, job *model.AnalysisJob) error {
	payload := dto.ScorerPayload{
		SubmissionID:    submission.ID,
		ExtractedText:   submission.CVText,
		ContextSnapshot: submission.MetaSnapshot,
		JobID:           job.ID,
		CallbackURL:     d.callbackURL(job.ID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal scorer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build scorer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("scorer request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) callbackURL(jobID string) string {
	if d.publicURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/v1/analysis/jobs/%s/callback", d.publicURL, jobID)
}

func (d *Dispatcher) mock(ctx context.Context, submission *model.Submission, job *model.AnalysisJob) error {
	timer := time.NewTimer(d.mockDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	report := d.mockReport(submission.MetaSnapshot)
	if err := reportschema.ValidateValue(report); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("mock report does not match the report schema")
		if ferr := d.jobs.Fail(ctx, job.ID, service.DefaultFailureText); ferr != nil && !errors.Is(ferr, service.ErrJobAlreadyTerminal) {
			return ferr
		}
		return err
	}

	err := d.jobs.Complete(ctx, job.ID, report)
	if errors.Is(err, service.ErrJobAlreadyTerminal) {
		log.Warn().Str("job_id", job.ID).Msg("job finished before the mock report was ready")
		return nil
	}
	return err
}
