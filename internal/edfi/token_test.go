package edfi

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/pkg/config"
	appErrors "github.com/edustack/sis-api/pkg/errors"
)

func tokenServer(t *testing.T, calls *int32, expiresIn int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "client_credentials", r.Form.Get("grant_type"))

		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Basic "))
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		require.NoError(t, err)
		require.Equal(t, "client:secret", string(decoded))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-abc","token_type":"bearer","expires_in":` + strconv.FormatInt(expiresIn, 10) + `}`))
	}))
}

func TestTokenSourceCachesUntilExpiry(t *testing.T) {
	var calls int32
	server := tokenServer(t, &calls, 3600)
	defer server.Close()

	clock := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	source := NewTokenSource(config.EdFiConfig{
		OAuthURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	}, server.Client(), now, nil)

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", token)

	// Second call within the lifetime reuses the cache.
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// One second short of the margin boundary still reuses the cache.
	clock = clock.Add(3600*time.Second - tokenExpiryMargin - time.Second)
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Crossing into the margin refreshes even though the server-reported
	// lifetime has not fully elapsed.
	clock = clock.Add(2 * time.Second)
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTokenSourceInvalidateForcesRefetch(t *testing.T) {
	var calls int32
	server := tokenServer(t, &calls, 3600)
	defer server.Close()

	source := NewTokenSource(config.EdFiConfig{
		OAuthURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "secret",
	}, server.Client(), nil, nil)

	_, err := source.Token(context.Background())
	require.NoError(t, err)

	source.Invalidate()

	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTokenSourceRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	source := NewTokenSource(config.EdFiConfig{
		OAuthURL:     server.URL,
		ClientID:     "client",
		ClientSecret: "wrong",
	}, server.Client(), nil, nil)

	_, err := source.Token(context.Background())
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstreamAuth.Code, appErr.Code)
}

func TestTokenSourceMissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	source := NewTokenSource(config.EdFiConfig{OAuthURL: server.URL}, server.Client(), nil, nil)

	_, err := source.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}
