package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
		t.Setenv("OTEL_ENABLED", "")

		cfg := ConfigFromEnv()

		assert.Equal(t, "content-scheduler", cfg.ServiceName)
		assert.Equal(t, "http://localhost:4318", cfg.OTLPEndpoint)
		assert.True(t, cfg.Enabled)
	})

	t.Run("custom values", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "test-service")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel:4318")
		t.Setenv("OTEL_ENABLED", "false")

		cfg := ConfigFromEnv()

		assert.Equal(t, "test-service", cfg.ServiceName)
		assert.Equal(t, "http://otel:4318", cfg.OTLPEndpoint)
		assert.False(t, cfg.Enabled)
	})
}

func TestInitProvider_Disabled(t *testing.T) {
	cfg := Config{
		ServiceName:  "test",
		OTLPEndpoint: "http://localhost:4318",
		Enabled:      false,
	}

	shutdown, err := InitProvider(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
