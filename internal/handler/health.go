package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/notes-api/internal/repository"
)

// pingTimeout bounds the database round-trip of one health check.
const pingTimeout = 2 * time.Second

// HealthHandler reports whether the process can reach its database.
//
// HTTP: GET /healthz (no auth)
// RESPONSE: 200 {"status": "healthy"} or 503 {"status": "unhealthy"}
type HealthHandler struct {
	db     repository.Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(db repository.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth pings the database.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy"})
}

// HandleRoot answers GET / with a fixed greeting.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "hello world"})
}
