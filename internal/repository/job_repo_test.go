package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/testutil"
)

func TestJobRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	submission := testutil.TestSubmission(t, db, "")

	job := &model.AnalysisJob{SubmissionID: submission.ID}

	err := repo.Create(job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusProcessing, job.Status)
	assert.Nil(t, job.CompletedAt)
}

func TestJobRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	submission := testutil.TestSubmission(t, db, "user-1")
	created := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	found, err := repo.GetByID(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, model.JobStatusProcessing, found.Status)
	require.NotNil(t, found.UserID)
	assert.Equal(t, "user-1", *found.UserID)
}

func TestJobRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	_, err := repo.GetByID("missing")
	assert.Error(t, err)
}

func TestJobRepository_CompleteIfProcessing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	submission := testutil.TestSubmission(t, db, "")
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	ok, err := repo.CompleteIfProcessing(job.ID, testutil.TestReport(72), time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusComplete, found.Status)
	require.NotNil(t, found.Result)
	assert.Equal(t, 72, found.Result.OverallScore)
	assert.True(t, found.Result.ScoreBreakdown.JobMatch.Skipped)
	assert.NotNil(t, found.CompletedAt)
	assert.Empty(t, found.ErrorText)

	t.Run("second transition is rejected", func(t *testing.T) {
		ok, err := repo.CompleteIfProcessing(job.ID, testutil.TestReport(10), time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.FailIfProcessing(job.ID, "late failure", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := repo.GetByID(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusComplete, found.Status)
		assert.Equal(t, 72, found.Result.OverallScore)
		assert.Empty(t, found.ErrorText)
	})
}

func TestJobRepository_FailIfProcessing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	submission := testutil.TestSubmission(t, db, "")
	job := testutil.TestJob(t, db, submission, model.JobStatusProcessing)

	ok, err := repo.FailIfProcessing(job.ID, "Failed to connect to analysis service", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, found.Status)
	assert.Equal(t, "Failed to connect to analysis service", found.ErrorText)
	assert.Nil(t, found.Result)
	assert.NotNil(t, found.CompletedAt)
}

func TestJobRepository_FailIfProcessing_UnknownJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	ok, err := repo.FailIfProcessing("missing", "x", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJobRepository_ListByUserID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	mine := testutil.TestSubmission(t, db, "user-1")
	other := testutil.TestSubmission(t, db, "user-2")
	testutil.TestJob(t, db, mine, model.JobStatusComplete, testutil.WithCreatedAt(time.Now().Add(-time.Hour)))
	latest := testutil.TestJob(t, db, mine, model.JobStatusProcessing)
	testutil.TestJob(t, db, other, model.JobStatusProcessing)

	jobs, total, err := repo.ListByUserID("user-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, jobs, 2)
	assert.Equal(t, latest.ID, jobs[0].ID)
	require.NotNil(t, jobs[0].Submission)
	assert.Equal(t, "resume.pdf", jobs[0].Submission.OriginalFileName)

	t.Run("pagination", func(t *testing.T) {
		jobs, total, err := repo.ListByUserID("user-1", 2, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, jobs, 1)
	})
}

func TestJobRepository_ListStaleProcessing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	submission := testutil.TestSubmission(t, db, "")

	old := testutil.TestJob(t, db, submission, model.JobStatusProcessing, testutil.WithCreatedAt(time.Now().Add(-time.Hour)))
	testutil.TestJob(t, db, submission, model.JobStatusProcessing)
	testutil.TestJob(t, db, submission, model.JobStatusFailed, testutil.WithCreatedAt(time.Now().Add(-time.Hour)))

	jobs, err := repo.ListStaleProcessing(time.Now().Add(-15*time.Minute), 100)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, old.ID, jobs[0].ID)

	count, err := repo.CountByStatus(model.JobStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
