package chatkit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "mindmap-backend/pkg/errors"
	"mindmap-backend/pkg/observability"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(DefaultConfig("test-key", server.URL+"/"), observability.NewCollector("test"), zap.NewNop())
}

func TestCreateSession_Success(t *testing.T) {
	var got sessionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, sessionsPath, r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"client_secret":"cs_123","expires_after":{"seconds":600}}`))
	})

	session, err := client.CreateSession(context.Background(), "xpert-1", "user_0123456789ab")
	require.NoError(t, err)

	assert.Equal(t, "cs_123", session.ClientSecret)
	assert.JSONEq(t, `{"seconds":600}`, string(session.ExpiresAfter))
	assert.Equal(t, "xpert-1", got.Assistant.ID)
	assert.Equal(t, "user_0123456789ab", got.User)
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "upstream error string", status: http.StatusForbidden, body: `{"error":"bad key"}`, wantStatus: http.StatusForbidden, wantMsg: "bad key"},
		{name: "upstream error object", status: http.StatusBadRequest, body: `{"error":{"code":"x"}}`, wantStatus: http.StatusBadRequest, wantMsg: `{"code":"x"}`},
		{name: "upstream without error field", status: http.StatusTooManyRequests, body: `{}`, wantStatus: http.StatusTooManyRequests, wantMsg: "Too Many Requests"},
		{name: "upstream non-json error", status: http.StatusInternalServerError, body: `oops`, wantStatus: http.StatusInternalServerError, wantMsg: "Internal Server Error"},
		{name: "invalid json", status: http.StatusOK, body: `not json`, wantStatus: http.StatusBadGateway, wantMsg: "Invalid response from API"},
		{name: "missing secret", status: http.StatusOK, body: `{"expires_after":1}`, wantStatus: http.StatusBadGateway, wantMsg: "Missing client_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.CreateSession(context.Background(), "xpert-1", "user_0123456789ab")
			require.Error(t, err)
			appErr := appErrors.GetAppError(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestCreateSession_Preconditions(t *testing.T) {
	unconfigured := NewClient(DefaultConfig("", "http://127.0.0.1:1"), nil, zap.NewNop())
	_, err := unconfigured.CreateSession(context.Background(), "xpert-1", "user_x")
	appErr := appErrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
	assert.Equal(t, "Missing XPERTAI_API_KEY", appErr.Message)

	configured := NewClient(DefaultConfig("key", "http://127.0.0.1:1"), nil, zap.NewNop())
	_, err = configured.CreateSession(context.Background(), "", "user_x")
	assert.True(t, appErrors.IsValidation(err))
}

func TestCreateSession_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(DefaultConfig("key", url), nil, zap.NewNop())
	_, err := client.CreateSession(context.Background(), "xpert-1", "user_x")
	appErr := appErrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrorTypeNetwork, appErr.Type)
	assert.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
	assert.Contains(t, appErr.Message, "Failed to reach API")
}

func TestCreateSession_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig("key", server.URL)
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	client := NewClient(cfg, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		_, err := client.CreateSession(context.Background(), "xpert-1", "user_x")
		require.Error(t, err)
	}

	_, err := client.CreateSession(context.Background(), "xpert-1", "user_x")
	appErr := appErrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrorTypeUnavailable, appErr.Type)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateSession_ClientErrorsKeepBreakerClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	cfg := DefaultConfig("key", server.URL)
	cfg.MinRequests = 1
	cfg.FailureThreshold = 0.1
	client := NewClient(cfg, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, err := client.CreateSession(context.Background(), "xpert-1", "user_x")
		appErr := appErrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	}
}
