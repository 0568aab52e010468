package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   ErrorType
		wantMsg    string
	}{
		{name: "not found", err: NewNotFoundError("parent node x"), wantStatus: http.StatusNotFound, wantType: ErrorTypeNotFound, wantMsg: "parent node x not found"},
		{name: "invalid operation", err: NewInvalidOperationError("cannot delete root node"), wantStatus: http.StatusConflict, wantType: ErrorTypeInvalidOperation, wantMsg: "cannot delete root node"},
		{name: "validation", err: NewValidationError("bad"), wantStatus: http.StatusBadRequest, wantType: ErrorTypeValidation, wantMsg: "bad"},
		{name: "external keeps status", err: NewExternalError("bad key", http.StatusForbidden), wantStatus: http.StatusForbidden, wantType: ErrorTypeExternal, wantMsg: "bad key"},
		{name: "wrapped app error", err: fmt.Errorf("ctx: %w", NewNotFoundError("mindmap")), wantStatus: http.StatusNotFound, wantType: ErrorTypeNotFound, wantMsg: "mindmap not found"},
		{name: "plain error hidden", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError, wantType: ErrorTypeInternal, wantMsg: "An internal error occurred"},
	}

	h := NewErrorHandler(zap.NewNop(), false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/mindmap/m", nil)
			req.Header.Set(middleware.RequestIDHeader, "req-1")
			rec := httptest.NewRecorder()

			h.Handle(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			body := decodeError(t, rec)
			assert.Equal(t, string(tt.wantType), body.Type)
			assert.Equal(t, tt.wantMsg, body.Error)
			assert.Equal(t, "req-1", body.RequestID)
			assert.NotContains(t, body.Details, "stack_trace")
		})
	}
}

func TestErrorHandler_DebugIncludesStackTrace(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)
	original := NewNotFoundError("node").WithDetail("node_id", "n1")

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), original)

	body := decodeError(t, rec)
	assert.Equal(t, "n1", body.Details["node_id"])
	assert.Contains(t, body.Details, "stack_trace")
	assert.NotContains(t, original.Details, "stack_trace")
}

func TestErrorHandler_HandleStatus(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTooManyRequests, "slow down")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, string(ErrorTypeRateLimit), body.Type)
	assert.Equal(t, "slow down", body.Error)
}

func TestErrorHandler_MiddlewareRecovers(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "panic: kaboom", body.Error)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))

	wrapped := Wrap(NewNotFoundError("node"), "delete")
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, "delete: node not found", GetAppError(wrapped).Message)

	plain := Wrapf(fmt.Errorf("disk"), "store %s", "m1")
	assert.True(t, IsInternal(plain))
	assert.ErrorContains(t, plain, "disk")
}
