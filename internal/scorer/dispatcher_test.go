package scorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/reportschema"
	"github.com/bcalm/launchpad_server/internal/repository"
	"github.com/bcalm/launchpad_server/internal/service"
	"github.com/bcalm/launchpad_server/internal/testutil"
)

func setupJobs(t *testing.T) (*gorm.DB, *service.JobService) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return db, service.NewJobService(repository.NewJobRepository(db), nil)
}

func TestDispatcher_Webhook(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "user-1", testutil.WithTargetRole("Associate PM"))
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	var got dto.ScorerPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewDispatcher(config.ScorerConfig{WebhookURL: srv.URL, Timeout: time.Second}, "https://api.example.com/", jobs)
	require.NoError(t, d.Dispatch(context.Background(), submission, job))

	assert.Equal(t, submission.ID, got.SubmissionID)
	assert.Equal(t, job.ID, got.JobID)
	assert.Equal(t, submission.CVText, got.ExtractedText)
	assert.Equal(t, "Associate PM", got.ContextSnapshot.TargetRole)
	assert.Equal(t, "https://api.example.com/api/v1/analysis/jobs/"+job.ID+"/callback", got.CallbackURL)

	found, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, found.Status, "webhook success leaves the job for the callback")
}

func TestDispatcher_WebhookErrors(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "")

	t.Run("non-2xx", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)
		d := NewDispatcher(config.ScorerConfig{WebhookURL: srv.URL}, "", jobs)

		assert.Error(t, d.Dispatch(context.Background(), submission, job))
		assert.Equal(t, 1, calls, "no retry")

		found, _ := jobs.Get(job.ID)
		assert.Equal(t, model.JobStatusFailed, found.Status)
		assert.Equal(t, service.DispatchErrorText, found.ErrorText)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)
		d := NewDispatcher(config.ScorerConfig{WebhookURL: url, Timeout: time.Second}, "", jobs)

		assert.Error(t, d.Dispatch(context.Background(), submission, job))

		found, _ := jobs.Get(job.ID)
		assert.Equal(t, model.JobStatusFailed, found.Status)
		assert.Equal(t, service.DispatchErrorText, found.ErrorText)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)
		d := NewDispatcher(config.ScorerConfig{WebhookURL: srv.URL, Timeout: 50 * time.Millisecond}, "", jobs)

		assert.Error(t, d.Dispatch(context.Background(), submission, job))

		found, _ := jobs.Get(job.ID)
		assert.Equal(t, model.JobStatusFailed, found.Status)
	})
}

func TestDispatcher_Mock(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "", testutil.WithTargetRole("Product Analyst"))
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	d := NewDispatcher(config.ScorerConfig{MockDelay: 10 * time.Millisecond}, "", jobs)
	assert.True(t, d.Mocked())
	require.NoError(t, d.Dispatch(context.Background(), submission, job))

	found, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, found.Status)
	require.NotNil(t, found.Result)
	assert.Equal(t, 72, found.Result.OverallScore)
	assert.Equal(t, "Product Analyst", found.Result.RolePreset)
	assert.True(t, found.Result.ScoreBreakdown.JobMatch.Skipped)
}

func TestDispatcher_Mock_InvalidReportFailsJob(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "")
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	d := NewDispatcher(config.ScorerConfig{}, "", jobs)
	d.mockReport = func(snapshot model.ContextSnapshot) *model.Report {
		r := MockReport(snapshot)
		r.OverallScore = 140
		return r
	}

	var schemaErr *reportschema.ValidationError
	assert.ErrorAs(t, d.Dispatch(context.Background(), submission, job), &schemaErr)

	found, err := jobs.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, found.Status)
	assert.Equal(t, service.DefaultFailureText, found.ErrorText)
	assert.Nil(t, found.Result)
}

func TestDispatcher_Mock_JobAlreadyFinished(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "")
	job := testutil.TestJob(t, db, submission, model.JobStatusFailed)

	d := NewDispatcher(config.ScorerConfig{}, "", jobs)
	require.NoError(t, d.Dispatch(context.Background(), submission, job))

	found, _ := jobs.Get(job.ID)
	assert.Equal(t, model.JobStatusFailed, found.Status)
}

func TestDispatcher_Mock_Cancelled(t *testing.T) {
	db, jobs := setupJobs(t)
	submission := testutil.TestSubmission(t, db, "")
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(config.ScorerConfig{MockDelay: time.Hour}, "", jobs)
	assert.ErrorIs(t, d.Dispatch(ctx, submission, job), context.Canceled)

	found, _ := jobs.Get(job.ID)
	assert.Equal(t, model.JobStatusProcessing, found.Status)
}

func TestMockReport(t *testing.T) {
	t.Run("no role, no job description", func(t *testing.T) {
		r := MockReport(model.ContextSnapshot{})

		assert.Equal(t, "General", r.RolePreset)
		assert.Equal(t, []string{"What specific role are you targeting?"}, r.InfoNeededFromUser)
		assert.True(t, r.ScoreBreakdown.JobMatch.Skipped)
		assert.Nil(t, r.JobMatchSection.MatchScore)
		assert.InDelta(t, (75+70+68)/3.0, r.BreakdownAverage(), 0.001)
	})

	t.Run("role and job description", func(t *testing.T) {
		r := MockReport(model.ContextSnapshot{TargetRole: "Growth PM", JDText: "Run experiments"})

		assert.Equal(t, "Growth PM", r.RolePreset)
		assert.Empty(t, r.InfoNeededFromUser)
		assert.False(t, r.ScoreBreakdown.JobMatch.Skipped)
		require.NotNil(t, r.JobMatchSection.MatchScore)
		assert.Equal(t, 75, *r.JobMatchSection.MatchScore)
	})

	t.Run("structure", func(t *testing.T) {
		r := MockReport(model.ContextSnapshot{})
		assert.Len(t, r.TopStrengths, 3)
		assert.Len(t, r.TopFixes, 3)
		assert.Len(t, r.SevenStepPlan, 7)
		for i, step := range r.SevenStepPlan {
			assert.Equal(t, i+1, step.Step)
		}

		data, err := json.Marshal(r)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"bullet_review":[]`)
		assert.NoError(t, reportschema.Validate(data))
	})
}
