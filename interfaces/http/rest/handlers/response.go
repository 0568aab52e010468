package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	pkgerrors "mindmap-backend/pkg/errors"
)

// maxBodyBytes caps request bodies; a full mindmap save is the largest.
const maxBodyBytes = 4 << 20

func respondJSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched so that validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.NewValidationError("request body too large").WithStatus(http.StatusRequestEntityTooLarge)
	}
	return pkgerrors.NewValidationError("invalid request body").WithCause(err)
}
