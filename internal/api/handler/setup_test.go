package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/api/middleware"
	"github.com/bcalm/launchpad_server/internal/pkg/queue"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
	"github.com/bcalm/launchpad_server/internal/pkg/ws"
	"github.com/bcalm/launchpad_server/internal/repository"
	"github.com/bcalm/launchpad_server/internal/service"
	"github.com/bcalm/launchpad_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubExtractor struct {
	text string
}

func (s *stubExtractor) Extract(filePath, mimeType string) string {
	return s.text
}

type recordingQueue struct {
	mu       sync.Mutex
	messages []*queue.DispatchMessage
}

func (q *recordingQueue) Push(ctx context.Context, msg *queue.DispatchMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

// testContext bundles the wiring every handler test needs.
type testContext struct {
	DB        *gorm.DB
	Cfg       *config.Config
	Hub       *ws.Hub
	Jobs      *service.JobService
	Analysis  *service.AnalysisService
	Profiles  *service.ProfileService
	Analytics *service.AnalyticsService
	Extractor *stubExtractor
	Queue     *recordingQueue
}

func setup(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{
		Upload: config.UploadConfig{
			MaxSize:          5 * 1024 * 1024,
			Dir:              t.TempDir(),
			AllowedMimeTypes: []string{config.MimePDF, config.MimeDOC, config.MimeDOCX},
			MinTextLength:    50,
		},
		Scorer: config.ScorerConfig{CallbackSecret: "cb-secret"},
		CORS:   config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	hub := ws.NewHub()
	jobs := service.NewJobService(repository.NewJobRepository(db), hub)
	submissions := service.NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewProfileRepository(db), cfg.Upload.MinTextLength)
	extractor := &stubExtractor{text: testutil.SampleCVText}
	q := &recordingQueue{}

	return &testContext{
		DB:        db,
		Cfg:       cfg,
		Hub:       hub,
		Jobs:      jobs,
		Analysis:  service.NewAnalysisService(submissions, jobs, extractor, nil, q, cfg),
		Profiles:  service.NewProfileService(repository.NewProfileRepository(db)),
		Analytics: service.NewAnalyticsService(repository.NewEventRepository(db)),
		Extractor: extractor,
		Queue:     q,
	}
}

// mockAuth stands in for the JWT middleware.
func mockAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData re-decodes the envelope's data into out.
func decodeData(t *testing.T, resp response.Response, out interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func jsonRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

type uploadFile struct {
	name        string
	contentType string
	content     []byte
}

func multipartRequest(t *testing.T, url string, file *uploadFile, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="cv"; filename="`+file.name+`"`)
		h.Set("Content-Type", file.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
