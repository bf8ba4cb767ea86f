package handler

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/pkg/ws"
	"github.com/bcalm/launchpad_server/internal/service"
)

type HealthHandler struct {
	db         *gorm.DB
	jobService *service.JobService
	hub        *ws.Hub
}

func NewHealthHandler(db *gorm.DB, jobService *service.JobService, hub *ws.Hub) *HealthHandler {
	return &HealthHandler{db: db, jobService: jobService, hub: hub}
}

// GET /api/v1/health
func (h *HealthHandler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		response.ServerError(c, "database unavailable")
		return
	}

	processing, err := h.jobService.CountProcessing()
	if err != nil {
		response.ServerError(c, "database unavailable")
		return
	}

	response.Success(c, gin.H{
		"status":          "ok",
		"processing_jobs": processing,
		"ws_connections":  h.hub.ConnectionCount(),
	})
}
