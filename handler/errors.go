package handler

import (
	"errors"
	"net/http"

	"content-scheduler/domain"

	"github.com/labstack/echo/v4"
)

// httpError maps domain errors onto HTTP status codes so every handler
// reports the same failure the same way.
func httpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrArticleNotFound),
		errors.Is(err, domain.ErrQueueItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, domain.ErrArticleDeleted):
		return echo.NewHTTPError(http.StatusGone, err.Error())

	case errors.Is(err, domain.ErrDuplicateQueueItem),
		errors.Is(err, domain.ErrGenerationConflict),
		domain.IsInvalidTransition(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, domain.ErrPastDueTime):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
