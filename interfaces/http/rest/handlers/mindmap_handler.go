package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mindmap-backend/application/commands"
	"mindmap-backend/application/services"
	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
)

// MindmapHandler handles mindmap HTTP requests
type MindmapHandler struct {
	service *services.MindmapService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewMindmapHandler creates a new mindmap handler
func NewMindmapHandler(service *services.MindmapService, errHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *MindmapHandler {
	return &MindmapHandler{
		service: service,
		errors:  errHandler,
		logger:  logger,
	}
}

type mindmapResponse struct {
	Mindmap *entities.Mindmap `json:"mindmap"`
}

type addNodeResponse struct {
	Mindmap *entities.Mindmap     `json:"mindmap"`
	NewNode *entities.MindmapNode `json:"newNode"`
}

type addBranchResponse struct {
	Mindmap  *entities.Mindmap       `json:"mindmap"`
	NewNodes []*entities.MindmapNode `json:"newNodes"`
}

type listResponse struct {
	Mindmaps []entities.MindmapSummary `json:"mindmaps"`
}

// ListMindmaps handles GET /api/mindmaps
func (h *MindmapHandler) ListMindmaps(w http.ResponseWriter, r *http.Request) {
	list := h.service.ListMindmaps(r.Context())
	if list == nil {
		list = []entities.MindmapSummary{}
	}
	respondJSON(w, h.logger, http.StatusOK, listResponse{Mindmaps: list})
}

// GetMindmap handles GET /api/mindmap/{mindmapID}
func (h *MindmapHandler) GetMindmap(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMindmap(r.Context(), chi.URLParam(r, "mindmapID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}

// SaveMindmap handles POST /api/mindmap/{mindmapID}
func (h *MindmapHandler) SaveMindmap(w http.ResponseWriter, r *http.Request) {
	var cmd commands.SaveMindmapCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, err := h.service.SaveMindmap(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}

// AddNode handles POST /api/mindmap/{mindmapID}/add-node
func (h *MindmapHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AddNodeCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, node, err := h.service.AddNode(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, addNodeResponse{Mindmap: m, NewNode: node})
}

// AddBranch handles POST /api/mindmap/{mindmapID}/add-branch
func (h *MindmapHandler) AddBranch(w http.ResponseWriter, r *http.Request) {
	var cmd commands.AddBranchCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, nodes, err := h.service.AddBranch(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if nodes == nil {
		nodes = []*entities.MindmapNode{}
	}
	respondJSON(w, h.logger, http.StatusOK, addBranchResponse{Mindmap: m, NewNodes: nodes})
}

// DeleteNode handles POST /api/mindmap/{mindmapID}/delete-node
func (h *MindmapHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	var cmd commands.DeleteNodeCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, err := h.service.DeleteNode(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}

// UpdateNodeText handles POST /api/mindmap/{mindmapID}/update-node
func (h *MindmapHandler) UpdateNodeText(w http.ResponseWriter, r *http.Request) {
	var cmd commands.UpdateNodeTextCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, err := h.service.UpdateNodeText(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}

// ToggleCollapse handles POST /api/mindmap/{mindmapID}/toggle-collapse
func (h *MindmapHandler) ToggleCollapse(w http.ResponseWriter, r *http.Request) {
	var cmd commands.ToggleCollapseCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	cmd.MindmapID = chi.URLParam(r, "mindmapID")

	m, err := h.service.ToggleCollapse(r.Context(), cmd)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}

// ResetMindmap handles POST /api/mindmap/{mindmapID}/reset
func (h *MindmapHandler) ResetMindmap(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.ResetMindmap(r.Context(), chi.URLParam(r, "mindmapID"))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, mindmapResponse{Mindmap: m})
}
