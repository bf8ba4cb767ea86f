package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bcalm/launchpad_server/config"
	"github.com/bcalm/launchpad_server/internal/model"
	"github.com/bcalm/launchpad_server/internal/model/dto"
	"github.com/bcalm/launchpad_server/internal/pkg/response"
)

var (
	ErrPollTimeout = errors.New("analysis did not finish in time")
	ErrJobNotFound = errors.New("analysis job not found")
)

// APIError is a non-zero code in the response envelope.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client talks to the CV analysis API the way the web app does.
type Client struct {
	baseURL     string
	token       string
	interval    time.Duration
	maxAttempts int
	http        *http.Client
}

type Option func(*Client)

// WithToken authenticates requests with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(cfg config.PollerConfig, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		http:        &http.Client{Timeout: 60 * time.Second},
	}
	if c.interval <= 0 {
		c.interval = 2 * time.Second
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = 150
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadCV sends the file with the optional context fields and returns the job id.
func (c *Client) UploadCV(ctx context.Context, filePath string, fields map[string]string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="cv"; filename="%s"`, filepath.Base(filePath)))
	h.Set("Content-Type", contentType(filePath))
	part, err := w.CreatePart(h)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/cv/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp dto.UploadCVResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// GetJob fetches the current job status once.
func (c *Client) GetJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/analysis/jobs/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	var resp dto.JobStatusResponse
	if err := c.do(req, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == response.CodeResourceNotFound {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &resp, nil
}

// WaitForJob polls until the job is complete or failed. It gives up with
// ErrPollTimeout after max_attempts non-terminal responses. Transient
// request errors count as attempts.
func (c *Client) WaitForJob(ctx context.Context, jobID string) (*dto.JobStatusResponse, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		job, err := c.GetJob(ctx, jobID)
		switch {
		case errors.Is(err, ErrJobNotFound):
			return nil, err
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("job_id", jobID).Int("attempt", attempt).Msg("poll failed")
		case job.Status == model.JobStatusComplete || job.Status == model.JobStatusFailed:
			return job, nil
		}

		if attempt >= c.maxAttempts {
			return nil, ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Code != 0 {
		return &APIError{Code: env.Code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func contentType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return config.MimePDF
	case ".doc":
		return config.MimeDOC
	case ".docx":
		return config.MimeDOCX
	default:
		return "application/octet-stream"
	}
}
