package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// NewHTTPServer creates and configures the Echo HTTP server.
func NewHTTPServer(deps *Dependencies, otelEnabled bool, otelServiceName string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	if otelEnabled {
		e.Use(otelecho.Middleware(otelServiceName))
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/health" || path == "/health/ready" ||
				path == "/api/v1/health" || path == "/metrics"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			deps.Logger.InfoContext(ctx, "HTTP request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api := e.Group("/api/v1")
	api.POST("/articles", deps.ArticleHandler.HandleCreate)
	api.POST("/articles/:id/schedule", deps.ArticleHandler.HandleSchedule)
	api.DELETE("/articles/:id", deps.ArticleHandler.HandleDelete)
	api.GET("/articles/:id/status", deps.ArticleHandler.HandleStatus)
	api.PATCH("/queue/:item_id", deps.QueueHandler.HandleReschedule)
	api.DELETE("/queue/:item_id", deps.QueueHandler.HandleCancel)
	api.POST("/publish/sweep", deps.PublishHandler.HandleSweep)
	api.GET("/health", deps.HealthHandler.HandleHealth)

	e.GET("/health", deps.HealthHandler.HandleHealth)
	e.GET("/health/ready", deps.HealthHandler.HandleReadiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// StartHTTPServer starts the HTTP server in a goroutine.
func StartHTTPServer(e *echo.Echo, port int, log *slog.Logger) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Info("starting HTTP server", "port", port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()
}
