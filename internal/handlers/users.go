package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
	"github.com/go-chi/chi/v5"
)

// DirectoryView is the live, cached view of the user directory
type DirectoryView interface {
	Snapshot() ([]models.User, error)
	Get(id string) (models.User, bool)
	Subscribe(onUpdate func(services.DirectoryUpdate)) func()
}

// UserStore reads single records straight from the directory store
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// UserEditor applies single-record writes through the optimistic cache
type UserEditor interface {
	ToggleActive(ctx context.Context, identity models.Identity, id string) (*models.User, error)
	UpdateUser(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error)
}

// UserHandler handles user directory HTTP requests
type UserHandler struct {
	directory DirectoryView
	store     UserStore
	editor    UserEditor
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(directory DirectoryView, store UserStore, editor UserEditor) *UserHandler {
	return &UserHandler{
		directory: directory,
		store:     store,
		editor:    editor,
	}
}

// ListUsersQuery holds the parsed paging parameters of GET /users
type ListUsersQuery struct {
	Query    string
	Page     int
	PageSize int `validate:"gte=1,lte=100"`
}

// UpdateUserRequest represents the request body for editing a user.
// Every field is required.
type UpdateUserRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin candidate user"`
}

// ListUsers handles GET /users?q=&page=&page_size=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	records, err := h.directory.Snapshot()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, services.Project(records, query.Query, query.Page, query.PageSize))
}

// GetUser handles GET /users/{id}. Cached records include pending writes.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "user ID is required")
		return
	}

	if user, ok := h.directory.Get(id); ok {
		pkghttp.WriteJSON(w, http.StatusOK, user)
		return
	}

	user, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// UpdateUser handles PUT /users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "user ID is required")
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := h.editor.UpdateUser(r.Context(), identity, id, req.Name, req.Email, models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// ToggleActive handles POST /users/{id}/toggle-active
func (h *UserHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.CurrentIdentity(r)
	if !ok {
		pkghttp.WriteUnauthorized(w, "not signed in")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "user ID is required")
		return
	}

	user, err := h.editor.ToggleActive(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

func parseListQuery(r *http.Request) (ListUsersQuery, error) {
	values := r.URL.Query()
	query := ListUsersQuery{
		Query:    strings.TrimSpace(values.Get("q")),
		Page:     1,
		PageSize: services.DefaultPageSize,
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return query, fmt.Errorf("%w: page must be an integer", models.ErrBadRequest)
		}
		query.Page = page
	}

	if raw := values.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return query, fmt.Errorf("%w: page_size must be an integer", models.ErrBadRequest)
		}
		query.PageSize = size
	}

	if err := ValidateRequest(query); err != nil {
		return query, err
	}

	return query, nil
}
