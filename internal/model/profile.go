package model

import (
	"time"
)

const (
	OnboardingNotStarted = "not_started"
	OnboardingComplete   = "complete"
)

// Profile holds the onboarding context of an authenticated user.
// ID is the subject issued by the auth provider.
type Profile struct {
	ID                     string    `gorm:"primaryKey;size:64" json:"id"`
	OnboardingStatus       string    `gorm:"size:20;default:not_started" json:"onboarding_status"`
	CurrentStatus          string    `gorm:"size:40" json:"current_status,omitempty"` // student_fresher, working_professional, switching_careers
	TargetRole             string    `gorm:"size:200" json:"target_role,omitempty"`
	YearsExperience        *int      `json:"years_experience,omitempty"`
	PersonalizationQuality string    `gorm:"size:20" json:"personalization_quality,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
