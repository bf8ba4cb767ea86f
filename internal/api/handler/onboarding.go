package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/api/middleware"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/service"
)

type OnboardingHandler struct {
	profileService *service.ProfileService
}

func NewOnboardingHandler(profileService *service.ProfileService) *OnboardingHandler {
	return &OnboardingHandler{profileService: profileService}
}

// GET /api/v1/onboarding/status
func (h *OnboardingHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.profileService.Status(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to load onboarding status")
		response.ServerError(c, "")
		return
	}
	response.Success(c, resp)
}

// POST /api/v1/onboarding/update
func (h *OnboardingHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.UpdateOnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.profileService.Update(userID, &req)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to update onboarding")
		response.ServerError(c, "")
		return
	}
	response.Success(c, resp)
}

// POST /api/v1/onboarding/complete
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.profileService.Complete(userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("failed to complete onboarding")
		response.ServerError(c, "")
		return
	}
	response.Success(c, resp)
}
