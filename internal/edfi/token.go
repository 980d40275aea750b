package edfi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/sis-api/pkg/config"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

// tokenExpiryMargin is subtracted from the server-reported lifetime so a
// token is refreshed before it actually lapses mid-request.
const tokenExpiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenSource obtains and caches a client-credentials bearer token from the
// Ed-Fi authorization endpoint. The cached token lives in process memory only
// and is re-acquired lazily after a restart or invalidation.
type TokenSource struct {
	cfg    config.EdFiConfig
	client *http.Client
	now    func() time.Time
	logger *zap.Logger

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenSource constructs a token source. The clock is injectable so expiry
// behaviour is deterministic under test; pass nil for time.Now.
func NewTokenSource(cfg config.EdFiConfig, client *http.Client, now func() time.Time, logger *zap.Logger) *TokenSource {
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{cfg: cfg, client: client, now: now, logger: logger}
}

// Token returns the cached token when still valid, otherwise performs a
// client_credentials grant and caches the result.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiresAt) {
		return s.token, nil
	}
	return s.fetchLocked(ctx)
}

// Invalidate discards the cached token so the next call re-authenticates.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()
}

func (s *TokenSource) fetchLocked(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUpstreamAuth.Code, appErrors.ErrUpstreamAuth.Status, "build token request")
	}
	req.SetBasicAuth(s.cfg.ClientID, s.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUpstreamAuth.Code, appErrors.ErrUpstreamAuth.Status, "ed-fi token endpoint unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return "", appErrors.Wrap(err, appErrors.ErrUpstreamAuth.Code, appErrors.ErrUpstreamAuth.Status, "ed-fi rejected credentials")
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUpstreamAuth.Code, appErrors.ErrUpstreamAuth.Status, "decode token response")
	}
	if tr.AccessToken == "" {
		return "", appErrors.Clone(appErrors.ErrUpstreamAuth, "token response missing access_token")
	}

	s.token = tr.AccessToken
	s.expiresAt = s.now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	s.logger.Debug("ed-fi token acquired", zap.Time("expires_at", s.expiresAt))
	return s.token, nil
}
