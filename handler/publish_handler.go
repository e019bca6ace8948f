package handler

import (
	"log/slog"
	"net/http"

	"content-scheduler/service"

	"github.com/labstack/echo/v4"
)

// PublishHandler triggers an on-demand publish sweep, mainly for operators
// who do not want to wait for the next periodic run.
type PublishHandler struct {
	scheduler service.PublishSchedulerService
	logger    *slog.Logger
}

// NewPublishHandler creates a publish handler.
func NewPublishHandler(scheduler service.PublishSchedulerService, logger *slog.Logger) *PublishHandler {
	return &PublishHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// HandleSweep handles POST /api/v1/publish/sweep.
func (h *PublishHandler) HandleSweep(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.scheduler.Sweep(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "on-demand publish sweep failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "publish sweep failed")
	}

	return c.JSON(http.StatusOK, map[string]int{
		"due":       result.Due,
		"published": result.Published,
		"rearmed":   result.Rearmed,
		"failed":    result.Failed,
	})
}
