package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	"github.com/stretchr/testify/assert"
)

func TestSelection_ToggleReplaceAndClear(t *testing.T) {
	store := services.NewSelectionStore()
	handler := handlers.NewSelectionHandler(store)

	put := func(body handlers.UpdateSelectionRequest) models.SelectionSet {
		req := handlers.NewTestRequest(t, "PUT", "/selection", body)
		req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
		w := httptest.NewRecorder()
		handler.UpdateSelection(w, req)

		var set models.SelectionSet
		handlers.AssertJSONResponse(t, w, http.StatusOK, &set)
		return set
	}

	set := put(handlers.UpdateSelectionRequest{IDs: []string{"1", "2"}})
	assert.Equal(t, []string{"1", "2"}, set.IDs)

	set = put(handlers.UpdateSelectionRequest{IDs: []string{"1", "3"}, Mode: "toggle"})
	assert.Equal(t, []string{"2", "3"}, set.IDs)

	set = put(handlers.UpdateSelectionRequest{IDs: []string{"9"}, Mode: "replace"})
	assert.Equal(t, []string{"9"}, set.IDs)

	req := handlers.NewTestRequest(t, "DELETE", "/selection", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
	w := httptest.NewRecorder()
	handler.ClearSelection(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = handlers.NewTestRequest(t, "GET", "/selection", nil)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
	w = httptest.NewRecorder()
	handler.GetSelection(w, req)

	var cleared models.SelectionSet
	handlers.AssertJSONResponse(t, w, http.StatusOK, &cleared)
	assert.Empty(t, cleared.IDs)
}

func TestSelection_ScopedPerSession(t *testing.T) {
	store := services.NewSelectionStore()
	store.Toggle("s1", "1")
	handler := handlers.NewSelectionHandler(store)

	req := handlers.NewTestRequest(t, "GET", "/selection", nil)
	req = handlers.WithSessionContext(req, "s2", "u2", "other@example.com")
	w := httptest.NewRecorder()
	handler.GetSelection(w, req)

	var set models.SelectionSet
	handlers.AssertJSONResponse(t, w, http.StatusOK, &set)
	assert.Empty(t, set.IDs)
}

func TestSelection_InvalidMode(t *testing.T) {
	handler := handlers.NewSelectionHandler(services.NewSelectionStore())

	body := handlers.UpdateSelectionRequest{IDs: []string{"1"}, Mode: "merge"}
	req := handlers.NewTestRequest(t, "PUT", "/selection", body)
	req = handlers.WithSessionContext(req, "s1", "u1", "user@example.com")
	w := httptest.NewRecorder()
	handler.UpdateSelection(w, req)

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}
