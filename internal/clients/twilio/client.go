package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	"github.com/matvulcan/vulcan-backend/internal/pkg/httpx"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

// Client covers the two delivery paths the program uses the gateway for:
// SMS to constituents and fax to medical providers.
type Client interface {
	SendSMS(ctx context.Context, to, body string) (*Message, error)
	SendFax(ctx context.Context, to, mediaURL string) (*Message, error)
}

type Config struct {
	AccountSID        string
	AuthToken         string
	BaseURL           string
	DefaultFrom       string
	StatusCallbackURL string
	Timeout           time.Duration
	MaxRetries        int
}

func ConfigFromEnv(log *logger.Logger) Config {
	timeoutSec := utils.GetEnvAsInt("TWILIO_TIMEOUT_SECONDS", 30, log)
	maxRetries := utils.GetEnvAsInt("TWILIO_MAX_RETRIES", 4, log)
	return Config{
		AccountSID:        strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:         strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		BaseURL:           strings.TrimSpace(os.Getenv("TWILIO_BASE_URL")),
		DefaultFrom:       strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		StatusCallbackURL: strings.TrimSpace(os.Getenv("TWILIO_STATUS_CALLBACK_URL")),
		Timeout:           time.Duration(timeoutSec) * time.Second,
		MaxRetries:        maxRetries,
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv(log))
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("missing TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("missing TWILIO_AUTH_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	return &client{
		log:        log.With("client", "TwilioClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type Message struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
	From   string `json:"from"`
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("twilio: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *apiError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) SendSMS(ctx context.Context, to, body string) (*Message, error) {
	to = utils.NormalizePhone(to)
	if to == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("twilio: Body required")
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.DefaultFrom)
	form.Set("Body", body)
	if c.cfg.StatusCallbackURL != "" {
		form.Set("StatusCallback", c.cfg.StatusCallbackURL)
	}
	return c.post(ctx, fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID), form)
}

func (c *client) SendFax(ctx context.Context, to, mediaURL string) (*Message, error) {
	to = utils.NormalizePhone(to)
	if to == "" {
		return nil, fmt.Errorf("twilio: To required")
	}
	if strings.TrimSpace(mediaURL) == "" {
		return nil, fmt.Errorf("twilio: MediaUrl required")
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.DefaultFrom)
	form.Set("MediaUrl", mediaURL)
	if c.cfg.StatusCallbackURL != "" {
		form.Set("StatusCallback", c.cfg.StatusCallbackURL)
	}
	return c.post(ctx, fmt.Sprintf("%s/Accounts/%s/Faxes.json", c.cfg.BaseURL, c.cfg.AccountSID), form)
}

func (c *client) post(ctx context.Context, endpoint string, form url.Values) (*Message, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(httpx.JitterSleep(time.Duration(attempt) * time.Second)):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, doErr := c.httpClient.Do(req)
		if doErr != nil {
			lastErr = doErr
			if httpx.IsRetryableError(doErr) {
				continue
			}
			return nil, doErr
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var msg Message
			if err := json.Unmarshal(body, &msg); err != nil {
				return nil, fmt.Errorf("twilio: decode response: %w", err)
			}
			return &msg, nil
		}
		lastErr = &apiError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, lastErr
		}
		c.log.Warn("Twilio request retrying", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return nil, fmt.Errorf("twilio: request failed after %d attempts: %w", c.cfg.MaxRetries+1, lastErr)
}
