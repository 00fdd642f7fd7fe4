package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/akumi07/RoleMaster21/internal/services"
	pkghttp "github.com/akumi07/RoleMaster21/pkg/http"
)

// HealthChecker pings a backing store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SyncStatus reports the state of the live directory subscription
type SyncStatus interface {
	State() services.SyncState
}

// HealthHandler reports database and directory sync health
type HealthHandler struct {
	db   HealthChecker
	sync SyncStatus
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db HealthChecker, sync SyncStatus) *HealthHandler {
	return &HealthHandler{
		db:   db,
		sync: sync,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	Directory string `json:"directory"`
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Database:  "up",
		Directory: string(h.sync.State()),
	}
	status := http.StatusOK

	if err := h.db.HealthCheck(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "down"
		status = http.StatusServiceUnavailable
	}

	if h.sync.State() != services.SyncLive {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	pkghttp.WriteJSON(w, status, resp)
}
