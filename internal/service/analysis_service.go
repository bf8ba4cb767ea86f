package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/queue"
	"github.com/bcalm/launchpad_server/internal/pkg/reportschema"
	"github.com/bcalm/launchpad_server/internal/pkg/storage"
)

var (
	ErrMissingFile         = errors.New("CV file is required")
	ErrUnsupportedFileType = errors.New("Only PDF, DOC, and DOCX files are allowed")
	ErrFileTooLarge        = errors.New("File size exceeds the upload limit")
	ErrInvalidReport       = errors.New("scorer result is invalid")
)

const (
	// DispatchErrorText is stored on jobs the scorer could not be reached for.
	DispatchErrorText = "Failed to connect to analysis service"
	// DefaultFailureText is used when the scorer reports failure without a reason.
	DefaultFailureText = "Analysis failed"

	scoreGapWarning = 15.0
)

var extMimeTypes = map[string]string{
	".pdf":  config.MimePDF,
	".doc":  config.MimeDOC,
	".docx": config.MimeDOCX,
}

// TextExtractor is satisfied by extract.Extractor.
type TextExtractor interface {
	Extract(filePath, mimeType string) string
}

// DispatchQueue hands a job to whatever runs the scorer dispatch.
type DispatchQueue interface {
	Push(ctx context.Context, msg *queue.DispatchMessage) error
}

type UploadInput struct {
	UserID string
	File   *multipart.FileHeader
	Form   dto.UploadCVRequest
	// parsed from Form.YearsExperience, nil when not given
	YearsExperience *int
}

type AnalysisService struct {
	submissionService *SubmissionService
	jobService        *JobService
	extractor         TextExtractor
	archiver          storage.Archiver
	queue             DispatchQueue
	cfg               *config.Config
}

// NewAnalysisService wires the upload pipeline. archiver may be nil.
func NewAnalysisService(
	submissionService *SubmissionService,
	jobService *JobService,
	extractor TextExtractor,
	archiver storage.Archiver,
	dispatchQueue DispatchQueue,
	cfg *config.Config,
) *AnalysisService {
	return &AnalysisService{
		submissionService: submissionService,
		jobService:        jobService,
		extractor:         extractor,
		archiver:          archiver,
		queue:             dispatchQueue,
		cfg:               cfg,
	}
}

// Upload stores the CV, records the submission, opens a job and queues it
// for scoring. A queueing failure fails the job but the job id is still returned.
func (s *AnalysisService) Upload(ctx context.Context, in *UploadInput) (*dto.UploadCVResponse, error) {
	if in.File == nil {
		return nil, ErrMissingFile
	}
	if s.cfg.Upload.MaxSize > 0 && in.File.Size > s.cfg.Upload.MaxSize {
		return nil, ErrFileTooLarge
	}

	mimeType, ext, err := s.resolveMimeType(in.File)
	if err != nil {
		return nil, err
	}

	localPath, err := s.saveFile(in.File, uuid.NewString()+ext)
	if err != nil {
		return nil, err
	}

	text := s.extractor.Extract(localPath, mimeType)

	filePath := localPath
	if s.archiver != nil && strings.TrimSpace(text) != "" {
		key := storage.ObjectKey(filepath.Base(localPath), time.Now())
		url, err := s.archiver.Archive(ctx, localPath, key, mimeType)
		if err != nil {
			log.Warn().Err(err).Str("file", localPath).Msg("failed to archive CV, keeping local copy")
		} else {
			filePath = url
		}
	}

	submission, err := s.submissionService.Record(&RecordInput{
		UserID:           in.UserID,
		FilePath:         filePath,
		OriginalFileName: in.File.Filename,
		MimeType:         mimeType,
		Text:             text,
		CurrentStatus:    in.Form.CurrentStatus,
		TargetRole:       in.Form.TargetRole,
		YearsExperience:  in.YearsExperience,
		JobDescription:   in.Form.JobDescription,
	})
	if err != nil {
		os.Remove(localPath)
		return nil, err
	}

	job, err := s.jobService.Create(submission.ID, submission.UserID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", job.ID).
		Str("submission_id", submission.ID).
		Str("personalization_quality", submission.MetaSnapshot.PersonalizationQuality).
		Msg("analysis job created")

	msg := &queue.DispatchMessage{
		JobID:        job.ID,
		SubmissionID: submission.ID,
		UserID:       in.UserID,
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("failed to queue scorer dispatch")
		if ferr := s.jobService.Fail(ctx, job.ID, DispatchErrorText); ferr != nil {
			log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to mark job failed")
		}
	}

	return &dto.UploadCVResponse{JobID: job.ID}, nil
}

// HandleCallback applies the scorer's result to a job.
func (s *AnalysisService) HandleCallback(ctx context.Context, jobID string, req *dto.ScorerCallbackRequest) error {
	job, err := s.jobService.Get(jobID)
	if err != nil {
		return err
	}
	if job.IsTerminal() {
		return ErrJobAlreadyTerminal
	}

	if req.Status == model.JobStatusFailed {
		text := strings.TrimSpace(req.ErrorText)
		if text == "" {
			text = DefaultFailureText
		}
		return s.jobService.Fail(ctx, jobID, text)
	}

	if len(req.Result) == 0 || string(req.Result) == "null" {
		return fmt.Errorf("%w: result is required", ErrInvalidReport)
	}
	if err := reportschema.Validate(req.Result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	var report model.Report
	if err := json.Unmarshal(req.Result, &report); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReport, err)
	}

	submission, err := s.submissionService.Get(job.SubmissionID)
	if err != nil {
		return fmt.Errorf("failed to load submission: %w", err)
	}
	report.ApplyJobDescription(submission.MetaSnapshot.HasJobDescription())

	if avg := report.BreakdownAverage(); avg > 0 && math.Abs(float64(report.OverallScore)-avg) > scoreGapWarning {
		log.Warn().
			Str("job_id", jobID).
			Int("overall_score", report.OverallScore).
			Float64("breakdown_average", avg).
			Msg("overall score diverges from breakdown")
	}

	return s.jobService.Complete(ctx, jobID, &report)
}

// GetJob returns the status view polled by clients.
func (s *AnalysisService) GetJob(jobID string) (*dto.JobStatusResponse, error) {
	job, err := s.jobService.Get(jobID)
	if err != nil {
		return nil, err
	}

	resp := &dto.JobStatusResponse{
		ID:          job.ID,
		Status:      job.Status,
		ErrorText:   job.ErrorText,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
		CompletedAt: formatTime(job.CompletedAt),
	}
	if job.Status == model.JobStatusComplete {
		resp.Report = job.Result
	}
	return resp, nil
}

// ListJobs returns the user's analysis history.
func (s *AnalysisService) ListJobs(userID string, page, pageSize int) ([]dto.JobListItem, int64, error) {
	jobs, total, err := s.jobService.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.JobListItem, 0, len(jobs))
	for _, job := range jobs {
		item := dto.JobListItem{
			ID:          job.ID,
			Status:      job.Status,
			CreatedAt:   job.CreatedAt.Format(time.RFC3339),
			CompletedAt: formatTime(job.CompletedAt),
		}
		if job.Submission != nil {
			item.FileName = job.Submission.OriginalFileName
			item.TargetRole = job.Submission.MetaSnapshot.TargetRole
		}
		if job.Status == model.JobStatusComplete && job.Result != nil {
			score := job.Result.OverallScore
			item.OverallScore = &score
		}
		items = append(items, item)
	}
	return items, total, nil
}

// resolveMimeType trusts the declared content type when it is allowed and
// falls back to the file extension otherwise.
func (s *AnalysisService) resolveMimeType(fh *multipart.FileHeader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))

	declared, _, _ := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if s.allowed(declared) {
		if ext == "" {
			for e, m := range extMimeTypes {
				if m == declared {
					ext = e
					break
				}
			}
		}
		return declared, ext, nil
	}

	if m, ok := extMimeTypes[ext]; ok && s.allowed(m) {
		return m, ext, nil
	}
	return "", "", ErrUnsupportedFileType
}

func (s *AnalysisService) allowed(mimeType string) bool {
	if mimeType == "" {
		return false
	}
	allowed := s.cfg.Upload.AllowedMimeTypes
	if len(allowed) == 0 {
		allowed = []string{config.MimePDF, config.MimeDOC, config.MimeDOCX}
	}
	for _, m := range allowed {
		if m == mimeType {
			return true
		}
	}
	return false
}

func (s *AnalysisService) saveFile(fh *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.Upload.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	dstPath := filepath.Join(s.cfg.Upload.Dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return dstPath, nil
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
