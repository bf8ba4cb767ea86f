package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/pkg/pubsub"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/pkg/ws"
	"github.com/bcalm/launchpad_server/internal/service"
)

type WebSocketHandler struct {
	hub        *ws.Hub
	jobService *service.JobService
	upgrader   websocket.Upgrader

	// runs between the upgrade and Register; tests use it to finish a job there
	beforeRegister func(jobID string)
}

// NewWebSocketHandler accepts connections from allowedOrigins; "*" allows any.
func NewWebSocketHandler(hub *ws.Hub, jobService *service.JobService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		jobService: jobService,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handle streams status updates for one job.
// GET /api/v1/ws?job_id=xxx
func (h *WebSocketHandler) Handle(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID == "" {
		response.ParamError(c, "job_id is required")
		return
	}

	if _, err := h.jobService.Get(jobID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, "Job not found")
			return
		}
		response.ServerError(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("failed to upgrade connection")
		return
	}

	if h.beforeRegister != nil {
		h.beforeRegister(jobID)
	}

	client := &ws.Client{
		JobID: jobID,
		Conn:  conn,
	}
	h.hub.Register(client)

	// Read again now that pushes reach this client: a transition published
	// before Register went nowhere. A transition racing this read may be
	// sent twice.
	job, err := h.jobService.Get(jobID)
	if err != nil {
		log.Warn().Err(err).Str("job_id", jobID).Msg("failed to reload job after connect")
	} else if job.IsTerminal() {
		msg := &pubsub.StatusMessage{
			Type:   pubsub.MessageTypeJobStatus,
			JobID:  job.ID,
			Status: job.Status,
			Error:  job.ErrorText,
		}
		if err := client.Send(&ws.Message{Type: msg.Type, Data: msg}); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Msg("failed to send current status")
		}
	}

	// reads only detect the client going away
	go func() {
		defer func() {
			h.hub.Unregister(client)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}
