package handlers

import (
	"context"
	"net/http"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

// BulkActions runs bulk actions over the caller's selection
type BulkActions interface {
	ApplySelection(ctx context.Context, identity models.Identity, action models.BulkAction, requesterIsAdmin bool) (*models.BulkReport, error)
	RequestDelete(identity models.Identity, requesterIsAdmin bool) (models.SelectionSet, error)
	ConfirmDelete(ctx context.Context, identity models.Identity, requesterIsAdmin bool) (*models.BulkReport, error)
	CancelDelete(identity models.Identity)
}

// BulkHandler handles bulk activate, deactivate and delete
type BulkHandler struct {
	service BulkActions
}

// NewBulkHandler creates a new BulkHandler
func NewBulkHandler(service BulkActions) *BulkHandler {
	return &BulkHandler{
		service: service,
	}
}

// Activate handles POST /bulk/activate
func (h *BulkHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, models.BulkActivate)
}

// Deactivate handles POST /bulk/deactivate
func (h *BulkHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, models.BulkDeactivate)
}

// RequestDelete handles POST /bulk/delete. Nothing is deleted until the
// session confirms.
func (h *BulkHandler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	set, err := h.service.RequestDelete(identity, auth.IsAdmin(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, set)
}

// ConfirmDelete handles POST /bulk/delete/confirm
func (h *BulkHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	report, err := h.service.ConfirmDelete(r.Context(), identity, auth.IsAdmin(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeReport(w, report)
}

// CancelDelete handles POST /bulk/delete/cancel
func (h *BulkHandler) CancelDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	h.service.CancelDelete(identity)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BulkHandler) apply(w http.ResponseWriter, r *http.Request, action models.BulkAction) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	report, err := h.service.ApplySelection(r.Context(), identity, action, auth.IsAdmin(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeReport(w, report)
}

// writeReport answers 200 when every target committed and 207 when some
// writes were rolled back
func writeReport(w http.ResponseWriter, report *models.BulkReport) {
	status := http.StatusOK
	if report.Failed > 0 {
		status = http.StatusMultiStatus
	}
	pkghttp.WriteJSON(w, status, report)
}
