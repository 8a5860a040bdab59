package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hongminglow/story-be/internal/http/respond"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports uptime and database reachability.
type HealthHandler struct {
	startedAt time.Time
	ping      func(context.Context) error
	logger    *slog.Logger
}

// NewHealthHandler creates a health endpoint handler. ping may be nil.
func NewHealthHandler(startedAt time.Time, ping func(context.Context) error, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, ping: ping, logger: logger}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"status":   "ok",
		"database": "ok",
		"uptime":   time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	status := http.StatusOK
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Error("health check: database ping failed", "error", err)
			payload["status"] = "degraded"
			payload["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	respond.JSON(w, status, payload)
}
