package docuseal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/pkg/httpx"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

// Client wraps the e-signature vendor's REST API. The program submits a
// certification form to a medical provider for signature and later fetches
// the signed document from a vendor-hosted URL delivered via webhook.
type Client interface {
	CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error)
	DownloadDocument(ctx context.Context, documentURL string) ([]byte, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	TemplateID int
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("DOCUSEAL_TIMEOUT_SECONDS", 30, log)
	maxRetries := utils.GetEnvAsInt("DOCUSEAL_MAX_RETRIES", 4, log)
	templateID := utils.GetEnvAsInt("DOCUSEAL_TEMPLATE_ID", 0, log)
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("DOCUSEAL_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("DOCUSEAL_BASE_URL")),
		TemplateID: templateID,
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing DOCUSEAL_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.docuseal.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	return &client{
		log:        log.With("client", "DocusealClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type Submitter struct {
	Email  string            `json:"email"`
	Name   string            `json:"name,omitempty"`
	Role   string            `json:"role,omitempty"`
	Values map[string]string `json:"values,omitempty"`
}

type CreateSubmissionRequest struct {
	TemplateID int         `json:"template_id"`
	SendEmail  bool        `json:"send_email"`
	Submitters []Submitter `json:"submitters"`
}

type Submission struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	SigningURL string `json:"embed_src,omitempty"`
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("docuseal: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *apiError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) CreateSubmission(ctx context.Context, req CreateSubmissionRequest) (*Submission, error) {
	if req.TemplateID == 0 {
		req.TemplateID = c.cfg.TemplateID
	}
	if req.TemplateID == 0 {
		return nil, fmt.Errorf("docuseal: TemplateID required (or set DOCUSEAL_TEMPLATE_ID)")
	}
	if len(req.Submitters) == 0 {
		return nil, fmt.Errorf("docuseal: at least one submitter required")
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("docuseal: marshal request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/submissions", payload, "application/json")
	if err != nil {
		return nil, err
	}

	// The submissions endpoint returns one entry per submitter; the first
	// carries the submission id and signing link.
	var subs []Submission
	if jsonErr := json.Unmarshal(body, &subs); jsonErr == nil && len(subs) > 0 {
		return &subs[0], nil
	}
	var sub Submission
	if jsonErr := json.Unmarshal(body, &sub); jsonErr != nil {
		return nil, fmt.Errorf("docuseal: decode response: %w", jsonErr)
	}
	return &sub, nil
}

func (c *client) DownloadDocument(ctx context.Context, documentURL string) ([]byte, error) {
	if strings.TrimSpace(documentURL) == "" {
		return nil, fmt.Errorf("docuseal: document URL required")
	}
	return c.do(ctx, http.MethodGet, documentURL, nil, "")
}

func (c *client) do(ctx context.Context, method, endpoint string, payload []byte, contentType string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * time.Second)):
			}
		}
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Auth-Token", c.cfg.APIKey)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			lastErr = doErr
			if httpx.IsRetryableError(doErr) {
				continue
			}
			return nil, doErr
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}
		lastErr = &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, lastErr
		}
		c.log.Warn("Docuseal request retrying", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return nil, fmt.Errorf("docuseal: request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}
