package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Track records a product event.
// POST /api/v1/analytics/track
func (h *AnalyticsHandler) Track(c *gin.Context) {
	var req dto.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.analyticsService.Track(&req); err != nil {
		log.Error().Err(err).Str("event_name", req.EventName).Msg("failed to track event")
		response.ServerError(c, "")
		return
	}
	response.Success(c, nil)
}
