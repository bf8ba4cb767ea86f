package dto

// UpdateOnboardingRequest updates only the fields that are present.
type UpdateOnboardingRequest struct {
	CurrentStatus   *string `json:"currentStatus,omitempty" binding:"omitempty,oneof=student_fresher working_professional switching_careers"`
	TargetRole      *string `json:"targetRole,omitempty" binding:"omitempty,max=200"`
	YearsExperience *int    `json:"yearsExperience,omitempty" binding:"omitempty,min=0,max=50"`
}

type OnboardingStatusResponse struct {
	OnboardingStatus       string `json:"onboardingStatus"`
	CurrentStatus          string `json:"currentStatus,omitempty"`
	TargetRole             string `json:"targetRole,omitempty"`
	YearsExperience        *int   `json:"yearsExperience,omitempty"`
	PersonalizationQuality string `json:"personalizationQuality,omitempty"`
}

// TrackEventRequest records one analytics event.
type TrackEventRequest struct {
	UserID    string                 `json:"userId" binding:"required,max=64"`
	EventName string                 `json:"eventName" binding:"required,max=100"`
	EventData map[string]interface{} `json:"eventData,omitempty"`
}
