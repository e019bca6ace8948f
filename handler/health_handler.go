package handler

import (
	"log/slog"
	"net/http"

	"content-scheduler/service"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness and dependency checks.
type HealthHandler struct {
	checker *service.HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(checker *service.HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleHealth handles GET /health. It only confirms the process is up.
func (h *HealthHandler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// HandleReadiness handles GET /health/ready and checks hard dependencies.
func (h *HealthHandler) HandleReadiness(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.checker.Check(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"reason": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
