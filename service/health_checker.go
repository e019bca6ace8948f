package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content-scheduler/repository"
)

// HealthChecker verifies the scheduler's two hard dependencies: the
// database and the content generation service.
type HealthChecker struct {
	db        repository.DB
	generator repository.GeneratorRepository
	logger    *slog.Logger
}

// NewHealthChecker creates a health checker.
func NewHealthChecker(db repository.DB, generator repository.GeneratorRepository, logger *slog.Logger) *HealthChecker {
	return &HealthChecker{
		db:        db,
		generator: generator,
		logger:    logger,
	}
}

// Check reports the first unhealthy dependency.
func (h *HealthChecker) Check(ctx context.Context) error {
	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database unhealthy", "error", err)
		return fmt.Errorf("database unhealthy: %w", err)
	}

	if err := h.generator.CheckHealth(ctx); err != nil {
		h.logger.ErrorContext(ctx, "generator unhealthy", "error", err)
		return fmt.Errorf("generator unhealthy: %w", err)
	}

	return nil
}

// WaitForGenerator polls until the generation service answers its health
// endpoint, or the context expires. Used at startup so the first queue tick
// does not burn retry attempts against a service that is still booting.
func (h *HealthChecker) WaitForGenerator(ctx context.Context, interval time.Duration) error {
	if err := h.generator.CheckHealth(ctx); err == nil {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("gave up waiting for generator: %w", ctx.Err())
		case <-ticker.C:
			if err := h.generator.CheckHealth(ctx); err == nil {
				h.logger.InfoContext(ctx, "generator is healthy")
				return nil
			}
			h.logger.DebugContext(ctx, "generator not yet healthy")
		}
	}
}
