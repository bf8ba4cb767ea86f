package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/repository"
)

type ProfileService struct {
	profileRepo *repository.ProfileRepository
}

func NewProfileService(profileRepo *repository.ProfileRepository) *ProfileService {
	return &ProfileService{profileRepo: profileRepo}
}

// Status returns the onboarding state. Users without a profile row have not started.
func (s *ProfileService) Status(userID string) (*dto.OnboardingStatusResponse, error) {
	profile, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return toOnboardingResponse(profile), nil
}

// Update writes only the fields present in the request.
func (s *ProfileService) Update(userID string, req *dto.UpdateOnboardingRequest) (*dto.OnboardingStatusResponse, error) {
	profile := &model.Profile{
		ID:               userID,
		OnboardingStatus: model.OnboardingNotStarted,
	}

	var columns []string
	if req.CurrentStatus != nil {
		profile.CurrentStatus = *req.CurrentStatus
		columns = append(columns, "current_status")
	}
	if req.TargetRole != nil {
		profile.TargetRole = *req.TargetRole
		columns = append(columns, "target_role")
	}
	if req.YearsExperience != nil {
		profile.YearsExperience = req.YearsExperience
		columns = append(columns, "years_experience")
	}

	if err := s.profileRepo.Upsert(profile, columns...); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return s.Status(userID)
}

// Complete marks onboarding done and derives the personalization quality.
func (s *ProfileService) Complete(userID string) (*dto.OnboardingStatusResponse, error) {
	profile, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	profile.OnboardingStatus = model.OnboardingComplete
	profile.PersonalizationQuality = model.QualityPartial
	if profile.TargetRole != "" && profile.YearsExperience != nil {
		profile.PersonalizationQuality = model.QualityFull
	}

	if err := s.profileRepo.Upsert(profile, "onboarding_status", "personalization_quality"); err != nil {
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	return toOnboardingResponse(profile), nil
}

func (s *ProfileService) load(userID string) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Profile{ID: userID, OnboardingStatus: model.OnboardingNotStarted}, nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func toOnboardingResponse(p *model.Profile) *dto.OnboardingStatusResponse {
	status := p.OnboardingStatus
	if status == "" {
		status = model.OnboardingNotStarted
	}
	return &dto.OnboardingStatusResponse{
		OnboardingStatus:       status,
		CurrentStatus:          p.CurrentStatus,
		TargetRole:             p.TargetRole,
		YearsExperience:        p.YearsExperience,
		PersonalizationQuality: p.PersonalizationQuality,
	}
}
