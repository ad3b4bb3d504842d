package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mcoot/pinauthority/internal/api/apierr"
	"github.com/mcoot/pinauthority/internal/api/response"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health
type HealthHandler struct {
	pinger Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler. A nil pinger is always healthy.
func NewHealthHandler(pinger Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{pinger: pinger, logger: logger}
}

// Health handles GET /api/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := h.pinger.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", slog.String("error", err.Error()))
			apierr.WriteError(w, apierr.NewServiceUnavailableError())
			return
		}
	}

	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
