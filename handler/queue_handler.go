package handler

import (
	"log/slog"
	"net/http"
	"time"

	"content-scheduler/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RescheduleRequest is the body of PATCH /api/v1/queue/:item_id.
type RescheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// QueueHandler exposes queue item operations over HTTP.
type QueueHandler struct {
	scheduler service.SchedulerService
	logger    *slog.Logger
}

// NewQueueHandler creates a queue handler.
func NewQueueHandler(scheduler service.SchedulerService, logger *slog.Logger) *QueueHandler {
	return &QueueHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// HandleReschedule handles PATCH /api/v1/queue/:item_id.
func (h *QueueHandler) HandleReschedule(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid queue item id")
	}

	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to bind reschedule request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	if err := h.scheduler.RescheduleGeneration(ctx, itemID, req.ScheduledFor); err != nil {
		h.logger.WarnContext(ctx, "failed to reschedule queue item",
			"item_id", itemID, "error", err)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleCancel handles DELETE /api/v1/queue/:item_id. Cancelling an item a
// worker already claimed is a no-op, matching the queue semantics.
func (h *QueueHandler) HandleCancel(c echo.Context) error {
	ctx := c.Request().Context()

	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid queue item id")
	}

	if err := h.scheduler.CancelSchedule(ctx, itemID); err != nil {
		h.logger.ErrorContext(ctx, "failed to cancel queue item", "item_id", itemID, "error", err)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}
