package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserHandler(view *handlers.MockDirectoryView, store *handlers.MockUserStore, editor *handlers.MockUserEditor) *handlers.UserHandler {
	if view == nil {
		view = &handlers.MockDirectoryView{}
	}
	if store == nil {
		store = &handlers.MockUserStore{}
	}
	if editor == nil {
		editor = &handlers.MockUserEditor{}
	}
	return handlers.NewUserHandler(view, store, editor)
}

func TestListUsers_DefaultPage(t *testing.T) {
	view := &handlers.MockDirectoryView{Users: services.NewTestUsers(12)}
	handler := newUserHandler(view, nil, nil)

	req := handlers.NewTestRequest(t, "GET", "/users", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")

	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	var page models.PageView
	handlers.AssertJSONResponse(t, w, http.StatusOK, &page)
	assert.Equal(t, 12, page.TotalCount)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, services.DefaultPageSize)
	assert.Equal(t, 1, page.From)
	assert.Equal(t, 5, page.To)
}

func TestListUsers_FilterAndClamp(t *testing.T) {
	users := []models.User{
		*services.NewTestUser("1", "Alice", "alice@example.com", true),
		*services.NewTestUser("2", "Bob", "bob@example.com", true),
		*services.NewTestUser("3", "Malice", "m@example.com", false),
	}
	handler := newUserHandler(&handlers.MockDirectoryView{Users: users}, nil, nil)

	req := handlers.NewTestRequest(t, "GET", "/users?q=ALIC&page=9&page_size=1", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")

	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	var page models.PageView
	handlers.AssertJSONResponse(t, w, http.StatusOK, &page)
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 2, page.Page, "out of range page clamps to the last page")
	require.Len(t, page.Items, 1)
	assert.Equal(t, "3", page.Items[0].ID)
}

func TestListUsers_InvalidParams(t *testing.T) {
	tests := []string{
		"/users?page=abc",
		"/users?page_size=0",
		"/users?page_size=101",
		"/users?page_size=ten",
	}

	for _, url := range tests {
		t.Run(url, func(t *testing.T) {
			handler := newUserHandler(&handlers.MockDirectoryView{}, nil, nil)
			req := handlers.NewTestRequest(t, "GET", url, nil)

			w := httptest.NewRecorder()
			handler.ListUsers(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
		})
	}
}

func TestListUsers_FetchFailed(t *testing.T) {
	view := &handlers.MockDirectoryView{Err: models.ErrFetchFailed}
	handler := newUserHandler(view, nil, nil)

	req := handlers.NewTestRequest(t, "GET", "/users", nil)

	w := httptest.NewRecorder()
	handler.ListUsers(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusServiceUnavailable, "fetch_failed")
}

func TestGetUser_FromCache(t *testing.T) {
	cached := *services.NewTestUser("user123", "Cached", "cached@example.com", true)
	cached.IsToggling = true
	store := &handlers.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			t.Fatal("store must not be hit for cached records")
			return nil, nil
		},
	}
	handler := newUserHandler(&handlers.MockDirectoryView{Users: []models.User{cached}}, store, nil)

	req := handlers.NewTestRequest(t, "GET", "/users/user123", nil)
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	var user models.User
	handlers.AssertJSONResponse(t, w, http.StatusOK, &user)
	assert.Equal(t, "Cached", user.Name)
	assert.True(t, user.IsToggling)
}

func TestGetUser_FallsBackToStore(t *testing.T) {
	store := &handlers.MockUserStore{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return services.NewTestUser(id, "Stored", "stored@example.com", false), nil
		},
	}
	handler := newUserHandler(nil, store, nil)

	req := handlers.NewTestRequest(t, "GET", "/users/user456", nil)
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	var user models.User
	handlers.AssertJSONResponse(t, w, http.StatusOK, &user)
	assert.Equal(t, "user456", user.ID)
}

func TestGetUser_NotFound(t *testing.T) {
	handler := newUserHandler(nil, nil, nil)

	req := handlers.NewTestRequest(t, "GET", "/users/missing", nil)
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.GetUser(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}

func TestUpdateUser_Success(t *testing.T) {
	editor := &handlers.MockUserEditor{
		UpdateUserFunc: func(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error) {
			assert.Equal(t, "s1", identity.SessionID)
			assert.Equal(t, "user123", id)
			return &models.User{ID: id, Name: name, Email: email, Role: role}, nil
		},
	}
	handler := newUserHandler(nil, nil, editor)

	body := handlers.UpdateUserRequest{Name: "New Name", Email: "new@example.com", Role: "admin"}
	req := handlers.NewTestRequest(t, "PUT", "/users/user123", body)
	req = handlers.WithAdminContext(req, "s1", "admin1", "admin@example.com")
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.UpdateUser(w, req)

	var user models.User
	handlers.AssertJSONResponse(t, w, http.StatusOK, &user)
	assert.Equal(t, "New Name", user.Name)
	assert.Equal(t, models.RoleAdmin, user.Role)
}

func TestUpdateUser_RequiresAllFields(t *testing.T) {
	tests := []handlers.UpdateUserRequest{
		{Email: "new@example.com", Role: "user"},
		{Name: "New", Role: "user"},
		{Name: "New", Email: "new@example.com"},
	}

	for i, body := range tests {
		t.Run(fmt.Sprintf("case %d", i), func(t *testing.T) {
			editor := &handlers.MockUserEditor{
				UpdateUserFunc: func(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error) {
					t.Fatal("no write may be issued for an incomplete edit")
					return nil, nil
				},
			}
			handler := newUserHandler(nil, nil, editor)

			req := handlers.NewTestRequest(t, "PUT", "/users/user123", body)
			req = handlers.WithAdminContext(req, "s1", "admin1", "admin@example.com")
			req = handlers.WithChiIDFromURL(req)

			w := httptest.NewRecorder()
			handler.UpdateUser(w, req)

			handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "incomplete")
		})
	}
}

func TestUpdateUser_Unauthenticated(t *testing.T) {
	handler := newUserHandler(nil, nil, nil)

	body := handlers.UpdateUserRequest{Name: "New", Email: "new@example.com", Role: "user"}
	req := handlers.NewTestRequest(t, "PUT", "/users/user123", body)
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.UpdateUser(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestToggleActive_Success(t *testing.T) {
	editor := &handlers.MockUserEditor{
		ToggleActiveFunc: func(ctx context.Context, identity models.Identity, id string) (*models.User, error) {
			return &models.User{ID: id, Active: true}, nil
		},
	}
	handler := newUserHandler(nil, nil, editor)

	req := handlers.NewTestRequest(t, "POST", "/users/user123/toggle-active", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.ToggleActive(w, req)

	var user models.User
	handlers.AssertJSONResponse(t, w, http.StatusOK, &user)
	assert.Equal(t, "user123", user.ID)
	assert.True(t, user.Active)
}

func TestToggleActive_WriteFailed(t *testing.T) {
	editor := &handlers.MockUserEditor{
		ToggleActiveFunc: func(ctx context.Context, identity models.Identity, id string) (*models.User, error) {
			return nil, fmt.Errorf("%w: connection reset", models.ErrWriteFailed)
		},
	}
	handler := newUserHandler(nil, nil, editor)

	req := handlers.NewTestRequest(t, "POST", "/users/user123/toggle-active", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
	req = handlers.WithChiIDFromURL(req)

	w := httptest.NewRecorder()
	handler.ToggleActive(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadGateway, "write_failed")
}
