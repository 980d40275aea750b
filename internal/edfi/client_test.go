package edfi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edustack/sis-api/pkg/config"
)

// testEnv wires a fake token endpoint and a fake ODS behind a Client.
type testEnv struct {
	client     *Client
	tokenCalls *int32
}

func newTestEnv(t *testing.T, ods http.HandlerFunc) (*testEnv, func()) {
	t.Helper()

	var tokenCalls int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		if n == 1 {
			_, _ = w.Write([]byte(`{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-2","token_type":"bearer","expires_in":3600}`))
	}))
	odsSrv := httptest.NewServer(ods)

	cfg := config.EdFiConfig{
		BaseURL:  odsSrv.URL,
		OAuthURL: tokenSrv.URL,
		ClientID: "client", ClientSecret: "secret",
	}
	tokens := NewTokenSource(cfg, tokenSrv.Client(), nil, nil)
	client := NewClient(cfg, tokens, nil, nil)
	client.http = odsSrv.Client()

	cleanup := func() {
		tokenSrv.Close()
		odsSrv.Close()
	}
	return &testEnv{client: client, tokenCalls: &tokenCalls}, cleanup
}

func TestClientRetriesOnceAfter401(t *testing.T) {
	var odsCalls int32
	env, cleanup := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&odsCalls, 1)
		assert.Equal(t, "/data/v3/ed-fi/students", r.URL.Path)
		if r.Header.Get("Authorization") == "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "Bearer tok-2", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	})
	defer cleanup()

	err := env.client.Post(context.Background(), "students", map[string]string{"studentUniqueId": "S-1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&odsCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(env.tokenCalls))
}

func TestClientGivesUpAfterSecond401(t *testing.T) {
	var odsCalls int32
	env, cleanup := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&odsCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer cleanup()

	err := env.client.Post(context.Background(), "students", map[string]string{})
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	// Exactly one retry, never a loop.
	assert.Equal(t, int32(2), atomic.LoadInt32(&odsCalls))
}

func TestClientConflictIsDetectable(t *testing.T) {
	env, cleanup := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"resource already exists"}`, http.StatusConflict)
	})
	defer cleanup()

	err := env.client.Post(context.Background(), "schools", map[string]int{"schoolId": 255901})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsReferenceNotReady(err))
}

func TestClientGetDecodesResponse(t *testing.T) {
	env, cleanup := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"schoolId":255901}]`))
	})
	defer cleanup()

	var out []struct {
		SchoolID int `json:"schoolId"`
	}
	err := env.client.Get(context.Background(), "schools", url.Values{"limit": {"1"}}, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 255901, out[0].SchoolID)
}

func TestIsReferenceNotReady(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "missing reference detail",
			err:  &StatusError{Status: http.StatusBadRequest, Body: "StudentReference does not exist"},
			want: true,
		},
		{
			name: "plain validation failure",
			err:  &StatusError{Status: http.StatusBadRequest, Body: "birthDate is required"},
			want: false,
		},
		{
			name: "conflict is not a reference problem",
			err:  &StatusError{Status: http.StatusConflict, Body: "reference exists"},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReferenceNotReady(tt.err))
		})
	}
}
