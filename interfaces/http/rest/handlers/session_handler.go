package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"mindmap-backend/infrastructure/chatkit"
	"mindmap-backend/pkg/auth"
	pkgerrors "mindmap-backend/pkg/errors"
)

// SessionCreator issues upstream chat sessions
type SessionCreator interface {
	Configured() bool
	CreateSession(ctx context.Context, xpertID, userID string) (*chatkit.Session, error)
}

// SessionHandler handles POST /api/create-session
type SessionHandler struct {
	creator        SessionCreator
	issuer         *auth.SessionIssuer
	defaultXpertID string
	errors         *pkgerrors.ErrorHandler
	logger         *zap.Logger
}

// NewSessionHandler creates a session handler. defaultXpertID is used when
// the request body names none.
func NewSessionHandler(
	creator SessionCreator,
	issuer *auth.SessionIssuer,
	defaultXpertID string,
	errHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		creator:        creator,
		issuer:         issuer,
		defaultXpertID: defaultXpertID,
		errors:         errHandler,
		logger:         logger,
	}
}

type createSessionRequest struct {
	XpertID string `json:"xpertId"`
}

type createSessionResponse struct {
	ClientSecret string      `json:"client_secret"`
	ExpiresAfter interface{} `json:"expires_after"`
}

// CreateSession resolves the visitor cookie and relays a session from the
// upstream API
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if !h.creator.Configured() {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("Missing XPERTAI_API_KEY"))
		return
	}

	// A malformed body is treated as empty.
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("Ignoring unreadable session request body", zap.Error(err))
		req = createSessionRequest{}
	}
	xpertID := req.XpertID
	if xpertID == "" {
		xpertID = h.defaultXpertID
	}
	if xpertID == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Missing xpertId"))
		return
	}

	userID, cookie, err := h.issuer.Resolve(r)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("failed to resolve session").WithCause(err))
		return
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	session, err := h.creator.CreateSession(r.Context(), xpertID, userID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	resp := createSessionResponse{ClientSecret: session.ClientSecret}
	if len(session.ExpiresAfter) > 0 {
		resp.ExpiresAfter = session.ExpiresAfter
	}
	respondJSON(w, h.logger, http.StatusOK, resp)
}
