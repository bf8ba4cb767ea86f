package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/testutil"
)

func TestHealthHandler(t *testing.T) {
	tc := setup(t)
	submission := testutil.TestSubmission(t, tc.DB, "")
	testutil.TestJob(t, tc.DB, submission, model.JobStatusProcessing)

	h := NewHealthHandler(tc.DB, tc.Jobs, tc.Hub)
	router := gin.New()
	router.GET("/api/v1/health", h.Health)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, float64(1), data["processing_jobs"])
	assert.Equal(t, float64(0), data["ws_connections"])
}
