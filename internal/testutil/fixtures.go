package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
)

// SampleCVText is long enough to pass the minimum text length check.
var SampleCVText = strings.Repeat("Product manager with five years of experience shipping B2B SaaS features. ", 4)

// TestSubmission creates a submission owned by userID (empty for anonymous).
func TestSubmission(t *testing.T, db *gorm.DB, userID string, opts ...func(*model.Submission)) *model.Submission {
	t.Helper()

	submission := &model.Submission{
		FilePath:         fmt.Sprintf("uploads/cv-analysis/%d.pdf", time.Now().UnixNano()),
		OriginalFileName: "resume.pdf",
		MimeType:         "application/pdf",
		CVText:           SampleCVText,
		MetaSnapshot: model.ContextSnapshot{
			PersonalizationQuality: model.QualityPartial,
			SessionID:              "anon-test",
		},
	}
	if userID != "" {
		submission.UserID = &userID
		submission.MetaSnapshot.SessionID = userID
	}

	for _, opt := range opts {
		opt(submission)
	}

	if err := db.Create(submission).Error; err != nil {
		t.Fatalf("Failed to create test submission: %v", err)
	}

	return submission
}

// WithTargetRole sets the snapshot target role and marks quality full.
func WithTargetRole(role string) func(*model.Submission) {
	return func(s *model.Submission) {
		s.MetaSnapshot.TargetRole = role
		s.MetaSnapshot.PersonalizationQuality = model.QualityFull
	}
}

// WithJobDescription sets the snapshot job description.
func WithJobDescription(jd string) func(*model.Submission) {
	return func(s *model.Submission) {
		s.MetaSnapshot.JDText = jd
	}
}

// TestJob creates a job in the given status for the submission.
func TestJob(t *testing.T, db *gorm.DB, submission *model.Submission, status string, opts ...func(*model.AnalysisJob)) *model.AnalysisJob {
	t.Helper()

	job := &model.AnalysisJob{
		SubmissionID: submission.ID,
		UserID:       submission.UserID,
		Status:       status,
	}
	if status != model.JobStatusProcessing {
		now := time.Now()
		job.CompletedAt = &now
	}
	if status == model.JobStatusFailed {
		job.ErrorText = "Analysis failed"
	}

	for _, opt := range opts {
		opt(job)
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// WithCreatedAt backdates the job.
func WithCreatedAt(at time.Time) func(*model.AnalysisJob) {
	return func(j *model.AnalysisJob) {
		j.CreatedAt = at
	}
}

// WithResult attaches a report.
func WithResult(report *model.Report) func(*model.AnalysisJob) {
	return func(j *model.AnalysisJob) {
		j.Result = report
	}
}

// TestProfile creates a profile for userID.
func TestProfile(t *testing.T, db *gorm.DB, userID string, opts ...func(*model.Profile)) *model.Profile {
	t.Helper()

	profile := &model.Profile{
		ID:               userID,
		OnboardingStatus: model.OnboardingNotStarted,
	}

	for _, opt := range opts {
		opt(profile)
	}

	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	return profile
}

// WithProfileContext sets the onboarding context fields.
func WithProfileContext(currentStatus, targetRole string, years *int) func(*model.Profile) {
	return func(p *model.Profile) {
		p.CurrentStatus = currentStatus
		p.TargetRole = targetRole
		p.YearsExperience = years
	}
}

// TestReport returns a structurally complete report.
func TestReport(overall int) *model.Report {
	return &model.Report{
		OverallScore: overall,
		RolePreset:   "General",
		ScoreBreakdown: model.ScoreBreakdown{
			ATS:         model.Dimension{Score: overall, Feedback: "ok"},
			Impact:      model.Dimension{Score: overall, Feedback: "ok"},
			RoleSignals: model.Dimension{Score: overall, Feedback: "ok"},
			JobMatch:    model.Dimension{Score: 0, Feedback: "", Skipped: true},
		},
		Summary:            "Solid CV.",
		TopStrengths:       []model.Strength{{Point: "Clear structure", Evidence: "Sections", WhyItWorks: "Easy to scan"}},
		TopFixes:           []model.Fix{{Point: "Add metrics", ExpectedLift: 5, WhyWeak: "Vague", Recommended: "Quantify"}},
		SevenStepPlan:      []model.PlanStep{{Step: 1, Action: "Add metrics", Priority: "high"}},
		InfoNeededFromUser: []string{},
	}
}

func IntPtr(v int) *int {
	return &v
}
