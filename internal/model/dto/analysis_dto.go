package dto

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/bcalm/launchpad_server/internal/model"
)

// UploadCVRequest holds the multipart form fields sent with the CV file.
type UploadCVRequest struct {
	JobDescription string `form:"job_description" binding:"omitempty,max=20000"`
	CurrentStatus  string `form:"current_status" binding:"omitempty,oneof=student_fresher working_professional switching_careers"`
	TargetRole     string `form:"target_role" binding:"omitempty,max=200"`
	// kept as text so an empty field stays unknown instead of binding to 0
	YearsExperience string `form:"years_experience"`
}

var ErrInvalidYears = errors.New("years_experience must be a whole number between 0 and 50")

// Years parses years_experience. Empty means the caller did not say.
func (r *UploadCVRequest) Years() (*int, error) {
	s := strings.TrimSpace(r.YearsExperience)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 50 {
		return nil, ErrInvalidYears
	}
	return &n, nil
}

type UploadCVResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is returned by the job-status endpoint.
type JobStatusResponse struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Report      *model.Report `json:"report,omitempty"`
	ErrorText   string        `json:"error_text,omitempty"`
	CreatedAt   string        `json:"created_at"`
	CompletedAt *string       `json:"completed_at,omitempty"`
}

// JobListItem is one row of the dashboard history.
type JobListItem struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	FileName     string  `json:"file_name,omitempty"`
	TargetRole   string  `json:"target_role,omitempty"`
	OverallScore *int    `json:"overall_score,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

// ScorerCallbackRequest is posted by the external scorer once it finishes.
type ScorerCallbackRequest struct {
	Status    string          `json:"status" binding:"required,oneof=complete failed"`
	Result    json.RawMessage `json:"result,omitempty"`
	ErrorText string          `json:"error_text,omitempty" binding:"omitempty,max=2000"`
}

// ScorerPayload is the outbound webhook body.
type ScorerPayload struct {
	SubmissionID    string                `json:"submissionId"`
	ExtractedText   string                `json:"extractedText"`
	ContextSnapshot model.ContextSnapshot `json:"contextSnapshot"`
	JobID           string                `json:"jobId"`
	CallbackURL     string                `json:"callbackUrl,omitempty"`
}
