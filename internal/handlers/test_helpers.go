package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akumi07/RoleMaster21/internal/auth"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext adds session claims to request context for testing signed-in endpoints
func WithSessionContext(req *http.Request, sessionID, userID, email string) *http.Request {
	claims := &models.SessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: sessionID,
		},
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithRequester adds the caller's directory record to request context
func WithRequester(req *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(req.Context(), auth.RequesterContextKey, user)
	return req.WithContext(ctx)
}

// WithAdminContext signs the request in as an admin
func WithAdminContext(req *http.Request, sessionID, userID, email string) *http.Request {
	req = WithSessionContext(req, sessionID, userID, email)
	return WithRequester(req, &models.User{ID: userID, Email: email, Role: models.RoleAdmin, Active: true})
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAdmissionService implements AdmissionService for testing
type MockAdmissionService struct {
	RequestOTPFunc      func(ctx context.Context, sessionID, adminEmail string, pending models.PendingUser) error
	CompleteAddUserFunc func(ctx context.Context, sessionID, code string) (*models.User, error)
}

func (m *MockAdmissionService) RequestOTP(ctx context.Context, sessionID, adminEmail string, pending models.PendingUser) error {
	if m.RequestOTPFunc == nil {
		return nil
	}
	return m.RequestOTPFunc(ctx, sessionID, adminEmail, pending)
}

func (m *MockAdmissionService) CompleteAddUser(ctx context.Context, sessionID, code string) (*models.User, error) {
	if m.CompleteAddUserFunc == nil {
		return nil, models.ErrNoChallenge
	}
	return m.CompleteAddUserFunc(ctx, sessionID, code)
}

// MockDirectoryView implements DirectoryView for testing
type MockDirectoryView struct {
	Users       []models.User
	Err         error
	SubscribeFn func(onUpdate func(services.DirectoryUpdate)) func()
}

func (m *MockDirectoryView) Snapshot() ([]models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Users, nil
}

func (m *MockDirectoryView) Get(id string) (models.User, bool) {
	for _, u := range m.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (m *MockDirectoryView) Subscribe(onUpdate func(services.DirectoryUpdate)) func() {
	if m.SubscribeFn != nil {
		return m.SubscribeFn(onUpdate)
	}
	onUpdate(services.DirectoryUpdate{Users: m.Users, Err: m.Err})
	return func() {}
}

// MockUserStore implements UserStore for testing
type MockUserStore struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.User, error)
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetByIDFunc(ctx, id)
}

// MockUserEditor implements UserEditor for testing
type MockUserEditor struct {
	ToggleActiveFunc func(ctx context.Context, identity models.Identity, id string) (*models.User, error)
	UpdateUserFunc   func(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error)
}

func (m *MockUserEditor) ToggleActive(ctx context.Context, identity models.Identity, id string) (*models.User, error) {
	if m.ToggleActiveFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.ToggleActiveFunc(ctx, identity, id)
}

func (m *MockUserEditor) UpdateUser(ctx context.Context, identity models.Identity, id, name, email string, role models.Role) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, identity, id, name, email, role)
}

// MockBulkActions implements BulkActions for testing
type MockBulkActions struct {
	ApplySelectionFunc func(ctx context.Context, identity models.Identity, action models.BulkAction, requesterIsAdmin bool) (*models.BulkReport, error)
	RequestDeleteFunc  func(identity models.Identity, requesterIsAdmin bool) (models.SelectionSet, error)
	ConfirmDeleteFunc  func(ctx context.Context, identity models.Identity, requesterIsAdmin bool) (*models.BulkReport, error)
	CancelDeleteFunc   func(identity models.Identity)
}

func (m *MockBulkActions) ApplySelection(ctx context.Context, identity models.Identity, action models.BulkAction, requesterIsAdmin bool) (*models.BulkReport, error) {
	if m.ApplySelectionFunc == nil {
		return &models.BulkReport{Action: action}, nil
	}
	return m.ApplySelectionFunc(ctx, identity, action, requesterIsAdmin)
}

func (m *MockBulkActions) RequestDelete(identity models.Identity, requesterIsAdmin bool) (models.SelectionSet, error) {
	if m.RequestDeleteFunc == nil {
		return models.SelectionSet{}, models.ErrNotAuthorized
	}
	return m.RequestDeleteFunc(identity, requesterIsAdmin)
}

func (m *MockBulkActions) ConfirmDelete(ctx context.Context, identity models.Identity, requesterIsAdmin bool) (*models.BulkReport, error) {
	if m.ConfirmDeleteFunc == nil {
		return nil, models.ErrConfirmationRequired
	}
	return m.ConfirmDeleteFunc(ctx, identity, requesterIsAdmin)
}

func (m *MockBulkActions) CancelDelete(identity models.Identity) {
	if m.CancelDeleteFunc != nil {
		m.CancelDeleteFunc(identity)
	}
}

// WithChiRouteContext adds chi URL parameters to request context for testing
//
// Example usage:
//
//	req := httptest.NewRequest("PUT", "/users/user123", body)
//	req = WithChiRouteContext(req, map[string]string{
//	    "id": "user123",
//	})
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// WithChiIDFromURL sets the second path segment as the chi "id" parameter,
// so /users/user123 and /users/user123/toggle-active both yield "user123"
func WithChiIDFromURL(r *http.Request) *http.Request {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if len(parts) >= 2 {
		return WithChiRouteContext(r, map[string]string{
			"id": parts[1],
		})
	}
	return r
}
