package handlers

import (
	"net/http"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

// Selections holds the per-session bulk selection
type Selections interface {
	Get(sessionID string) models.SelectionSet
	Toggle(sessionID string, ids ...string) models.SelectionSet
	Replace(sessionID string, ids []string) models.SelectionSet
	Clear(sessionID string)
}

// SelectionHandler exposes the caller's bulk selection
type SelectionHandler struct {
	selections Selections
}

// NewSelectionHandler creates a new SelectionHandler
func NewSelectionHandler(selections Selections) *SelectionHandler {
	return &SelectionHandler{
		selections: selections,
	}
}

// UpdateSelectionRequest toggles ids in or out of the selection, or
// replaces it outright
type UpdateSelectionRequest struct {
	IDs  []string `json:"ids" validate:"required,max=1000,dive,required"`
	Mode string   `json:"mode" validate:"omitempty,oneof=toggle replace"`
}

// GetSelection handles GET /selection
func (h *SelectionHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.selections.Get(identity.SessionID))
}

// UpdateSelection handles PUT /selection
func (h *SelectionHandler) UpdateSelection(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	var req UpdateSelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	var set models.SelectionSet
	if req.Mode == "replace" {
		set = h.selections.Replace(identity.SessionID, req.IDs)
	} else {
		set = h.selections.Toggle(identity.SessionID, req.IDs...)
	}

	pkghttp.WriteJSON(w, http.StatusOK, set)
}

// ClearSelection handles DELETE /selection
func (h *SelectionHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	h.selections.Clear(identity.SessionID)
	w.WriteHeader(http.StatusNoContent)
}
