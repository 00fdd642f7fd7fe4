package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/akumi07/RoleMaster21/internal/models"
	"github.com/akumi07/RoleMaster21/internal/services"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

const streamHeartbeat = 25 * time.Second

// StreamHandler pushes directory snapshots to clients as server-sent events
type StreamHandler struct {
	directory DirectoryView
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(directory DirectoryView, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		directory: directory,
		logger:    logger,
		heartbeat: streamHeartbeat,
	}
}

// Stream handles GET /users/stream. Each cache change is sent as a
// "snapshot" event; a failed subscription is sent as an "error" event
// and ends the stream. Slow clients only ever see the latest snapshot.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		pkghttp.WriteInternalError(w, "streaming unsupported")
		return
	}

	updates := make(chan services.DirectoryUpdate, 1)
	unsubscribe := h.directory.Subscribe(func(update services.DirectoryUpdate) {
		for {
			select {
			case updates <- update:
				return
			default:
			}
			// Drop the stale update and retry
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case update := <-updates:
			if update.Err != nil {
				h.writeEvent(w, "error", pkghttp.ErrorResponse{
					Error:   "fetch_failed",
					Message: "failed to fetch users",
				})
				flusher.Flush()
				return
			}
			users := update.Users
			if users == nil {
				users = []models.User{}
			}
			if err := h.writeEvent(w, "snapshot", users); err != nil {
				h.logger.Debug("stream client gone", slog.Any("error", err))
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode stream event", slog.Any("error", err))
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
