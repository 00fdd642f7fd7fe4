package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akumi07/RoleMaster21/internal/handlers"
	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_SendsSnapshots(t *testing.T) {
	push := make(chan func(services.DirectoryUpdate), 1)
	unsubscribed := make(chan struct{})
	view := &handlers.MockDirectoryView{
		SubscribeFn: func(onUpdate func(services.DirectoryUpdate)) func() {
			onUpdate(services.DirectoryUpdate{Users: []models.User{}})
			push <- onUpdate
			return func() { close(unsubscribed) }
		},
	}

	handler := handlers.NewStreamHandler(view, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/users/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.Stream(w, req)
		close(done)
	}()

	onUpdate := <-push
	time.Sleep(20 * time.Millisecond)
	onUpdate(services.DirectoryUpdate{Users: []models.User{*services.NewTestUser("1", "Ada", "ada@example.com", true)}})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop after the client went away")
	}
	<-unsubscribed

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event: snapshot\ndata: []\n\n")
	assert.Contains(t, body, `"email":"ada@example.com"`)
}

func TestStream_FetchFailedEndsStream(t *testing.T) {
	view := &handlers.MockDirectoryView{Err: models.ErrFetchFailed}
	handler := handlers.NewStreamHandler(view, discardLogger())

	req := httptest.NewRequest("GET", "/users/stream", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		handler.Stream(w, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream kept running after fetch failure")
	}

	body := w.Body.String()
	require.True(t, strings.Contains(body, "event: error\n"), body)
	assert.Contains(t, body, `"error":"fetch_failed"`)
	assert.NotContains(t, body, "event: snapshot")
}
