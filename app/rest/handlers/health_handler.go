package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health and readiness probes.
type HealthHandler struct {
	db     HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger.With("component", "health_handler"),
	}
}

// HealthCheck handles GET /v1/health
func (h *HealthHandler) HealthCheck(c echo.Context) error {
	resp := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		if err := h.db.HealthCheck(c.Request().Context()); err != nil {
			h.logger.Error("database health check failed", "error", err)
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
		resp["database"] = "ok"
	}

	return c.JSON(http.StatusOK, resp)
}

// LivenessCheck handles GET /v1/live
func (h *HealthHandler) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "alive"})
}
