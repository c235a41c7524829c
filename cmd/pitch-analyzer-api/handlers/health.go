package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/spherical/pitch-analyzer/internal/observability"
)

// Pinger reports whether backing stores are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the root, liveness and readiness endpoints.
type HealthHandler struct {
	logger  *observability.Logger
	pinger  Pinger
	service string
}

// NewHealthHandler creates a new health handler. A nil pinger is always ready.
func NewHealthHandler(logger *observability.Logger, pinger Pinger, service string) *HealthHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &HealthHandler{logger: logger, pinger: pinger, service: service}
}

// Root handles GET /.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Startup Pitch Analyzer API"})
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": h.service})
}

// Ready handles GET /ready.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.WithContext(r.Context()).Warn().Err(err).Msg("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
