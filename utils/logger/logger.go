// ABOUTME: This file provides slog-based JSON logging for the content scheduler
// ABOUTME: Output format matches the platform log forwarder (time/level/msg keys)
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration loaded from the environment.
type Config struct {
	Level       string `env:"LOG_LEVEL" default:"info"`
	ServiceName string `env:"SERVICE_NAME" default:"content-scheduler"`
}

// LoadConfigFromEnv loads logger configuration from environment variables.
func LoadConfigFromEnv() *Config {
	return &Config{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		ServiceName: getEnvOrDefault("SERVICE_NAME", "content-scheduler"),
	}
}

// New creates a JSON slog logger. When otelEnabled is true, records are also
// exported through the OTel log bridge.
func New(cfg *Config, otelEnabled bool) *slog.Logger {
	stdout := newJSONHandler(os.Stdout, cfg.ServiceName, parseLevel(cfg.Level))
	if otelEnabled {
		return slog.New(NewMultiHandler(stdout, cfg.ServiceName))
	}
	return slog.New(stdout)
}

// NewWithWriter creates a logger writing to the given writer. Used by tests.
func NewWithWriter(w io.Writer, serviceName, level string) *slog.Logger {
	return slog.New(newJSONHandler(w, serviceName, parseLevel(level)))
}

func newJSONHandler(w io.Writer, serviceName string, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "time", Value: a.Value}
			case slog.LevelKey:
				// Lowercase for log-forwarder compatibility
				if lv, ok := a.Value.Any().(slog.Level); ok {
					return slog.Attr{Key: "level", Value: slog.StringValue(strings.ToLower(lv.String()))}
				}
				return a
			case slog.MessageKey:
				return slog.Attr{Key: "msg", Value: a.Value}
			default:
				return a
			}
		},
	}

	handler := slog.NewJSONHandler(w, options)
	return handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", "1.0.0"),
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
