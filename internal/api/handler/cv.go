package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/internal/api/middleware"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/service"
)

// room for the form fields and multipart framing around the file
const multipartOverhead = 1 << 20

type CVHandler struct {
	analysisService *service.AnalysisService
	maxBodyBytes    int64
}

// NewCVHandler caps request bodies at maxFileSize plus form overhead.
// maxFileSize <= 0 disables the cap.
func NewCVHandler(analysisService *service.AnalysisService, maxFileSize int64) *CVHandler {
	h := &CVHandler{analysisService: analysisService}
	if maxFileSize > 0 {
		h.maxBodyBytes = maxFileSize + multipartOverhead
	}
	return h
}

// Upload accepts a CV and starts an analysis job.
// POST /api/v1/cv/upload
func (h *CVHandler) Upload(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		if c.Request.ContentLength > h.maxBodyBytes {
			response.ParamError(c, service.ErrFileTooLarge.Error())
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	var req dto.UploadCVRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ParamError(c, formError(err).Error())
		return
	}

	years, err := req.Years()
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	file, err := c.FormFile("cv")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			response.ParamError(c, service.ErrMissingFile.Error())
			return
		}
		response.ParamError(c, formError(err).Error())
		return
	}

	userID, _ := middleware.GetUserID(c)

	resp, err := h.analysisService.Upload(c.Request.Context(), &service.UploadInput{
		UserID:          userID,
		File:            file,
		Form:            req,
		YearsExperience: years,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFile),
			errors.Is(err, service.ErrUnsupportedFileType),
			errors.Is(err, service.ErrFileTooLarge),
			errors.Is(err, service.ErrUnreadableCV):
			response.ParamError(c, err.Error())
		default:
			log.Error().Err(err).Str("file", file.Filename).Msg("cv upload failed")
			response.ServerError(c, "Failed to upload CV")
		}
		return
	}

	response.Success(c, resp)
}

// formError reports a body cut off by the size cap as ErrFileTooLarge.
func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return service.ErrFileTooLarge
	}
	return err
}
