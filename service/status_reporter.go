package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"content-scheduler/domain"
	"content-scheduler/repository"

	"github.com/google/uuid"
)

// StatusReporter projects a read-only lifecycle snapshot for one article.
type StatusReporter struct {
	articleRepo repository.ArticleRepository
	queueRepo   repository.QueueRepository
	logger      *slog.Logger
}

// NewStatusReporter creates a status reporter.
func NewStatusReporter(
	articleRepo repository.ArticleRepository,
	queueRepo repository.QueueRepository,
	logger *slog.Logger,
) *StatusReporter {
	return &StatusReporter{
		articleRepo: articleRepo,
		queueRepo:   queueRepo,
		logger:      logger,
	}
}

// GetStatus builds the snapshot. The article row is the source of truth for
// phase and progress; the queue item only contributes scheduling metadata
// for runs that have not started.
func (r *StatusReporter) GetStatus(ctx context.Context, articleID uuid.UUID) (*StatusSnapshot, error) {
	article, err := r.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load article for status report: %w", err)
	}

	snapshot := &StatusSnapshot{
		ArticleID:   article.ID,
		Status:      article.Status,
		Phase:       article.GenerationPhase,
		Progress:    article.GenerationProgress,
		StartedAt:   article.GenerationStartedAt,
		CompletedAt: article.GenerationCompletedAt,
		PublishedAt: article.PublishedAt,
		Error:       article.GenerationError,
	}

	if article.Status == domain.StatusScheduled {
		item, err := r.queueRepo.FindActiveByArticle(ctx, articleID)
		switch {
		case err == nil:
			scheduledFor := item.ScheduledFor
			snapshot.NextRunAt = &scheduledFor
			snapshot.QueueAttempts = item.Attempts
		case errors.Is(err, domain.ErrQueueItemNotFound):
			// Scheduled without an active item: the orphan pruner or a
			// cancel got here first. The article row still tells the story.
		default:
			r.logger.WarnContext(ctx, "failed to load queue item for status report",
				"article_id", articleID, "error", err)
		}
	}

	return snapshot, nil
}
