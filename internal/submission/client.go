// Package submission is the bot-side HTTP client for the complaints backend.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
)

// ErrNoBackend is returned by read operations when no base URL is configured.
var ErrNoBackend = errors.New("backend url not configured")

// Config controls transport, retry and authentication behaviour.
type Config struct {
	BaseURL           string
	ServiceToken      string
	ServiceEmail      string
	ServicePassword   string
	MaxAttempts       int
	BaseDelay         time.Duration
	Timeout           time.Duration
	AllowMockFallback bool
}

// Result is the outcome of a submission. Mock results carry a placeholder
// id that does not exist on the backend.
type Result struct {
	TicketID string
	Mock     bool
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// Retryable reports whether the response is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// ComplaintView is the read model returned by the backend.
type ComplaintView struct {
	ID               string    `json:"id"`
	ReporterID       string    `json:"reporter_id"`
	Hostel           string    `json:"hostel"`
	RoomNumber       string    `json:"room_number"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Severity         string    `json:"severity"`
	Status           string    `json:"status"`
	AssignedPorterID *string   `json:"assigned_porter_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Client talks to the backend with bounded exponential backoff.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics

	sleep  func(context.Context, time.Duration) error
	jitter func() float64
	now    func() time.Time

	tokenMu sync.Mutex
	token   string
}

// NewClient builds a client. metrics may be nil.
func NewClient(cfg Config, logger *zap.Logger, metrics *observability.Metrics) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		metrics: metrics,
		sleep:   sleepContext,
		jitter:  rand.Float64,
		now:     time.Now,
	}
}

// Submit creates a complaint and returns its id.
func (c *Client) Submit(ctx context.Context, draft domain.ComplaintDraft) (Result, error) {
	if c.cfg.BaseURL == "" {
		return c.mockResult(), nil
	}

	body, err := json.Marshal(draft)
	if err != nil {
		return Result{}, fmt.Errorf("marshal complaint: %w", err)
	}

	var created struct {
		ComplaintID string `json:"complaint_id"`
		Status      string `json:"status"`
	}
	err = c.withRetry(ctx, "submit complaint", true, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/complaints/submit", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return authorize(req, token), nil
	}, &created)
	if err != nil {
		if c.cfg.AllowMockFallback && ctx.Err() == nil && retryable(err) {
			c.metrics.RecordMockFallback()
			c.logger.Warn("submission failed after retries; returning placeholder id",
				zap.String("reporter_id", draft.ReporterID),
				zap.Error(err))
			return c.mockResult(), nil
		}
		return Result{}, err
	}

	return Result{TicketID: created.ComplaintID}, nil
}

// UploadPhoto attaches an image to an existing ticket.
func (c *Client) UploadPhoto(ctx context.Context, ticketID, fileName string, content []byte) error {
	if c.cfg.BaseURL == "" {
		return ErrNoBackend
	}
	endpoint := fmt.Sprintf("%s/api/v1/complaints/%s/photos", c.cfg.BaseURL, url.PathEscape(ticketID))
	return c.withRetry(ctx, "upload photo", true, func(token string) (*http.Request, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(content); err != nil {
			return nil, err
		}
		if err := writer.Close(); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return authorize(req, token), nil
	}, nil)
}

// GetComplaint fetches one complaint by id.
func (c *Client) GetComplaint(ctx context.Context, ticketID string) (*ComplaintView, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrNoBackend
	}
	var envelope struct {
		Data ComplaintView `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/complaints/%s", c.cfg.BaseURL, url.PathEscape(ticketID))
	err := c.withRetry(ctx, "get complaint", true, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return authorize(req, token), nil
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}

// ListComplaints returns the most recent complaints filed by reporterID.
func (c *Client) ListComplaints(ctx context.Context, reporterID string, limit int) ([]ComplaintView, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrNoBackend
	}
	query := url.Values{}
	query.Set("reporter_id", reporterID)
	if limit > 0 {
		query.Set("page_size", fmt.Sprint(limit))
	}
	var envelope struct {
		Data []ComplaintView `json:"data"`
	}
	endpoint := c.cfg.BaseURL + "/api/v1/complaints?" + query.Encode()
	err := c.withRetry(ctx, "list complaints", true, func(token string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		return authorize(req, token), nil
	}, &envelope)
	if err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

func (c *Client) mockResult() Result {
	return Result{TicketID: fmt.Sprintf("MOCK-%d", c.now().Unix()), Mock: true}
}

// withRetry runs one logical request, retrying network errors and 5xx
// responses up to MaxAttempts. When out is non-nil the 2xx body is decoded
// into it.
func (c *Client) withRetry(ctx context.Context, op string, authenticated bool, build func(token string) (*http.Request, error), out any) error {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		token := ""
		if authenticated {
			var err error
			token, err = c.accessToken(ctx)
			if err != nil {
				return err
			}
		}

		lastErr = c.attempt(build, token, op, out)
		if lastErr == nil {
			c.metrics.RecordSubmissionAttempt("ok")
			return nil
		}

		var statusErr *StatusError
		if authenticated && errors.As(lastErr, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized && c.cfg.ServiceToken == "" {
			c.resetToken()
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			c.metrics.RecordSubmissionAttempt("terminal")
			return lastErr
		}
		c.metrics.RecordSubmissionAttempt("retryable")
		if attempt == c.cfg.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Warn("backend request failed; retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if err := c.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, c.cfg.MaxAttempts, lastErr)
}

func (c *Client) attempt(build func(token string) (*http.Request, error), token, op string, out any) error {
	req, err := build(token)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: "undecodable body: " + err.Error()}
	}
	return nil
}

// backoff returns BaseDelay*2^(attempt-1) plus up to 10% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay << (attempt - 1)
	return delay + time.Duration(c.jitter()*0.1*float64(delay))
}

// accessToken returns the static service token, or exchanges the service
// credentials at /auth/login once and caches the result.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.ServiceToken != "" {
		return c.cfg.ServiceToken, nil
	}
	if c.cfg.ServiceEmail == "" {
		return "", nil
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("username", c.cfg.ServiceEmail)
	form.Set("password", c.cfg.ServicePassword)
	encoded := form.Encode()

	var login struct {
		AccessToken string `json:"access_token"`
	}
	err := c.withRetry(ctx, "service login", false, func(string) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/auth/login", strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}, &login)
	if err != nil {
		return "", err
	}
	if login.AccessToken == "" {
		return "", errors.New("service login: empty access token")
	}
	c.token = login.AccessToken
	return c.token, nil
}

func (c *Client) resetToken() {
	c.tokenMu.Lock()
	c.token = ""
	c.tokenMu.Unlock()
}

func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

func authorize(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
