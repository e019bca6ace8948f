package handler

import (
	"log/slog"
	"net/http"
	"time"

	"content-scheduler/domain"
	"content-scheduler/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CreateArticleRequest is the body of POST /api/v1/articles.
type CreateArticleRequest struct {
	Title     string   `json:"title"`
	Keywords  []string `json:"keywords"`
	Notes     string   `json:"notes"`
	Frequency string   `json:"frequency"`
}

// ScheduleRequest is the body of POST /api/v1/articles/:id/schedule.
type ScheduleRequest struct {
	GenerationAt time.Time `json:"generation_at"`
	PublishAt    time.Time `json:"publish_at"`
	Scheduling   string    `json:"scheduling_type"`
}

// ScheduleResponse returns the queue item created for the article.
type ScheduleResponse struct {
	ItemID       uuid.UUID `json:"item_id"`
	ArticleID    uuid.UUID `json:"article_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
	MaxAttempts  int       `json:"max_attempts"`
}

// ArticleHandler exposes the lifecycle operations over HTTP.
type ArticleHandler struct {
	scheduler service.SchedulerService
	reporter  service.StatusReporterService
	logger    *slog.Logger
}

// NewArticleHandler creates an article handler.
func NewArticleHandler(scheduler service.SchedulerService, reporter service.StatusReporterService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{
		scheduler: scheduler,
		reporter:  reporter,
		logger:    logger,
	}
}

// HandleCreate handles POST /api/v1/articles.
func (h *ArticleHandler) HandleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateArticleRequest
	if err := c.Bind(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to bind create request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title cannot be empty")
	}

	article, err := h.scheduler.CreateArticle(ctx, req.Title, req.Keywords, req.Notes,
		domain.PublishFrequency(req.Frequency))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create article", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"article_id": article.ID,
		"status":     article.Status,
	})
}

// HandleSchedule handles POST /api/v1/articles/:id/schedule.
func (h *ArticleHandler) HandleSchedule(c echo.Context) error {
	ctx := c.Request().Context()

	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	var req ScheduleRequest
	if err := c.Bind(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to bind schedule request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request format")
	}

	item, err := h.scheduler.ScheduleGeneration(ctx, articleID,
		req.GenerationAt, req.PublishAt, domain.SchedulingType(req.Scheduling))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to schedule generation",
			"article_id", articleID, "error", err)
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, ScheduleResponse{
		ItemID:       item.ID,
		ArticleID:    item.ArticleID,
		ScheduledFor: item.ScheduledFor,
		MaxAttempts:  item.MaxAttempts,
	})
}

// HandleDelete handles DELETE /api/v1/articles/:id.
func (h *ArticleHandler) HandleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	if err := h.scheduler.DeleteArticle(ctx, articleID); err != nil {
		h.logger.WarnContext(ctx, "failed to delete article", "article_id", articleID, "error", err)
		return httpError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// HandleStatus handles GET /api/v1/articles/:id/status.
func (h *ArticleHandler) HandleStatus(c echo.Context) error {
	ctx := c.Request().Context()

	articleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid article id")
	}

	snapshot, err := h.reporter.GetStatus(ctx, articleID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, snapshot)
}
