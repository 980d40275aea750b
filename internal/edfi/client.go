package edfi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/sis-api/pkg/config"
)

// dataPathPrefix is the resource root of the Ed-Fi ODS REST API.
const dataPathPrefix = "/data/v3/ed-fi"

// StatusError carries the upstream status and body for a non-2xx response so
// callers can tolerate specific statuses (409 on idempotent creates).
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ed-fi returned %d: %s", e.Status, e.Body)
}

// IsConflict reports whether err is a 409 from the ODS, which signals
// "already exists" rather than a failure.
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusConflict
}

// IsReferenceNotReady reports whether err is a 400 whose detail mentions a
// referenced entity the ODS has not seen yet.
func IsReferenceNotReady(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest {
		return false
	}
	body := strings.ToLower(se.Body)
	return strings.Contains(body, "reference") || strings.Contains(body, "does not exist")
}

// RequestObserver records outbound request metrics.
type RequestObserver interface {
	ObserveEdFiRequest(method, resource string, status int, duration time.Duration)
}

// Client wraps outbound ODS calls with bearer authentication. A 401 response
// invalidates the cached token and the call is retried exactly once with a
// fresh token; a second 401 propagates.
type Client struct {
	cfg      config.EdFiConfig
	http     *http.Client
	tokens   *TokenSource
	logger   *zap.Logger
	observer RequestObserver
}

// NewClient constructs an authenticated ODS client. observer may be nil.
func NewClient(cfg config.EdFiConfig, tokens *TokenSource, logger *zap.Logger, observer RequestObserver) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.RequestTimeout},
		tokens:   tokens,
		logger:   logger,
		observer: observer,
	}
}

// Post creates a resource in the named ODS collection.
func (c *Client) Post(ctx context.Context, resource string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", resource, err)
	}
	status, respBody, err := c.request(ctx, http.MethodPost, resource, c.resourceURL(resource, nil), payload)
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &StatusError{Status: status, Body: strings.TrimSpace(string(respBody))}
	}
	return nil
}

// Get fetches from the named ODS collection and decodes the JSON response
// into out when out is non-nil.
func (c *Client) Get(ctx context.Context, resource string, query url.Values, out interface{}) error {
	status, respBody, err := c.request(ctx, http.MethodGet, resource, c.resourceURL(resource, query), nil)
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &StatusError{Status: status, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

func (c *Client) resourceURL(resource string, query url.Values) string {
	u := c.cfg.BaseURL + dataPathPrefix + "/" + resource
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) request(ctx context.Context, method, resource, rawURL string, payload []byte) (int, []byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, err
	}

	status, body, err := c.attempt(ctx, method, resource, rawURL, payload, token)
	if err != nil {
		return 0, nil, err
	}

	if status == http.StatusUnauthorized {
		c.logger.Debug("ed-fi returned 401, refreshing token", zap.String("resource", resource))
		c.tokens.Invalidate()
		token, err = c.tokens.Token(ctx)
		if err != nil {
			return 0, nil, err
		}
		status, body, err = c.attempt(ctx, method, resource, rawURL, payload, token)
		if err != nil {
			return 0, nil, err
		}
	}

	return status, body, nil
}

func (c *Client) attempt(ctx context.Context, method, resource, rawURL string, payload []byte, token string) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("build %s request: %w", resource, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		if c.observer != nil {
			c.observer.ObserveEdFiRequest(method, resource, 0, duration)
		}
		return 0, nil, fmt.Errorf("ed-fi %s %s: %w", method, resource, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", resource, err)
	}
	if c.observer != nil {
		c.observer.ObserveEdFiRequest(method, resource, resp.StatusCode, duration)
	}
	return resp.StatusCode, body, nil
}
