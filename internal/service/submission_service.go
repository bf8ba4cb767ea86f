package service

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/repository"
)

var ErrUnreadableCV = errors.New("Could not extract text from CV. Please upload a readable PDF or DOCX file.")

// RecordInput is one upload after text extraction. Context fields carry the
// values sent with the request.
type RecordInput struct {
	UserID           string // empty for anonymous uploads
	FilePath         string
	OriginalFileName string
	MimeType         string
	Text             string

	CurrentStatus   string
	TargetRole      string
	YearsExperience *int
	JobDescription  string
}

type SubmissionService struct {
	submissionRepo *repository.SubmissionRepository
	profileRepo    *repository.ProfileRepository
	minTextLength  int
}

func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	profileRepo *repository.ProfileRepository,
	minTextLength int,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		profileRepo:    profileRepo,
		minTextLength:  minTextLength,
	}
}

// Record persists the submission with a snapshot of the user's context.
func (s *SubmissionService) Record(in *RecordInput) (*model.Submission, error) {
	text := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(text) < s.minTextLength {
		return nil, ErrUnreadableCV
	}

	snapshot := s.buildSnapshot(in)

	submission := &model.Submission{
		FilePath:         in.FilePath,
		OriginalFileName: in.OriginalFileName,
		MimeType:         in.MimeType,
		CVText:           text,
		MetaSnapshot:     snapshot,
	}
	if in.UserID != "" {
		userID := in.UserID
		submission.UserID = &userID
	}

	if err := s.submissionRepo.Create(submission); err != nil {
		return nil, fmt.Errorf("failed to record submission: %w", err)
	}
	return submission, nil
}

func (s *SubmissionService) Get(id string) (*model.Submission, error) {
	return s.submissionRepo.GetByID(id)
}

// buildSnapshot merges request values with the stored profile. Profile
// fields win when they are set.
func (s *SubmissionService) buildSnapshot(in *RecordInput) model.ContextSnapshot {
	snapshot := model.ContextSnapshot{
		CurrentStatus:   in.CurrentStatus,
		TargetRole:      strings.TrimSpace(in.TargetRole),
		YearsExperience: in.YearsExperience,
		JDText:          strings.TrimSpace(in.JobDescription),
	}

	if in.UserID != "" {
		snapshot.SessionID = in.UserID

		profile, err := s.profileRepo.GetByID(in.UserID)
		switch {
		case err == nil:
			if profile.CurrentStatus != "" {
				snapshot.CurrentStatus = profile.CurrentStatus
			}
			if profile.TargetRole != "" {
				snapshot.TargetRole = profile.TargetRole
			}
			if profile.YearsExperience != nil {
				snapshot.YearsExperience = profile.YearsExperience
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			log.Warn().Err(err).Str("user_id", in.UserID).Msg("failed to load profile, using request context")
		}
	} else {
		snapshot.SessionID = "anon-" + uuid.NewString()
	}

	if snapshot.TargetRole != "" {
		snapshot.PersonalizationQuality = model.QualityFull
	} else {
		snapshot.PersonalizationQuality = model.QualityPartial
	}
	return snapshot
}
