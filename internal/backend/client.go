package backend

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/controlhub-core/internal/infrastructure/config"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultMaxConcurrency = 4
	retryWait             = 500 * time.Millisecond
	retryMaxWait          = 5 * time.Second
)

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client talks to the controller REST backend.
type Client struct {
	http           *resty.Client
	maxConcurrency int
	logger         Logger
}

// apiError is the backend's error body.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e *apiError) text() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// New creates a client from the backend config section.
func New(cfg config.BackendConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	concurrency := cfg.MaxConcurrency
	if concurrency <= 0 {
		concurrency = defaultMaxConcurrency
	}

	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait).
		AddRetryCondition(retryServerError).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetError(&apiError{})
	if cfg.APIKey != "" {
		h.SetAuthToken(cfg.APIKey)
	}

	return &Client{http: h, maxConcurrency: concurrency, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// retryServerError retries 5xx responses for methods that are safe to repeat.
func retryServerError(r *resty.Response, err error) bool {
	if err != nil || r == nil || r.StatusCode() < http.StatusInternalServerError {
		return false
	}
	switch r.Request.Method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// check turns a non-2xx response into an error.
func (c *Client) check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if !resp.IsError() {
		c.logger.Debug("backend request",
			"method", resp.Request.Method,
			"url", resp.Request.URL,
			"status", resp.StatusCode(),
			"duration_ms", resp.Time().Milliseconds(),
		)
		return nil
	}

	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.text() != "" {
		msg = e.text()
	}
	c.logger.Warn("backend request failed",
		"method", resp.Request.Method,
		"url", resp.Request.URL,
		"status", resp.StatusCode(),
		"message", msg,
	)
	if resp.StatusCode() == http.StatusNotFound {
		return fmt.Errorf("%w: %w: %s %s: %s", ErrRequestFailed, ErrNotFound, resp.Request.Method, resp.Request.URL, msg)
	}
	return fmt.Errorf("%w: %s %s: %d %s", ErrRequestFailed, resp.Request.Method, resp.Request.URL, resp.StatusCode(), msg)
}
