package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/api/middleware"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/service"
)

type AnalysisHandler struct {
	analysisService *service.AnalysisService
}

func NewAnalysisHandler(analysisService *service.AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
	}
}

// GetJob returns the job status polled by the client. The job id is
// unguessable and acts as the capability.
// GET /api/v1/analysis/jobs/:id
func (h *AnalysisHandler) GetJob(c *gin.Context) {
	resp, err := h.analysisService.GetJob(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, "Job not found")
			return
		}
		log.Error().Err(err).Str("job_id", c.Param("id")).Msg("failed to load job")
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// ListJobs returns the caller's analysis history.
// GET /api/v1/analysis/jobs
func (h *AnalysisHandler) ListJobs(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.analysisService.ListJobs(userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, page, pageSize, items)
}

// Callback receives the external scorer's result.
// POST /api/v1/analysis/jobs/:id/callback
func (h *AnalysisHandler) Callback(c *gin.Context) {
	var req dto.ScorerCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	jobID := c.Param("id")
	err := h.analysisService.HandleCallback(c.Request.Context(), jobID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			response.NotFoundError(c, "Job not found")
		case errors.Is(err, service.ErrJobAlreadyTerminal):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrInvalidReport):
			log.Warn().Err(err).Str("job_id", jobID).Msg("rejected scorer result")
			response.ParamError(c, err.Error())
		default:
			log.Error().Err(err).Str("job_id", jobID).Msg("scorer callback failed")
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, nil)
}
