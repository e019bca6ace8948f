package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"content-scheduler/config"
	"content-scheduler/dlq"
	"content-scheduler/domain"
	"content-scheduler/metrics"
	"content-scheduler/repository"

	"golang.org/x/sync/errgroup"
)

// QueueWorker drains the generation queue. Each tick claims a batch of due
// items and runs the pipeline for them with bounded concurrency.
type QueueWorker struct {
	queueRepo   repository.QueueRepository
	articleRepo repository.ArticleRepository
	pipeline    PipelineService
	archive     *dlq.FileDLQ
	cfg         config.QueueConfig
	logger      *slog.Logger
}

// NewQueueWorker creates a queue worker.
func NewQueueWorker(
	queueRepo repository.QueueRepository,
	articleRepo repository.ArticleRepository,
	pipeline PipelineService,
	archive *dlq.FileDLQ,
	cfg config.QueueConfig,
	logger *slog.Logger,
) *QueueWorker {
	return &QueueWorker{
		queueRepo:   queueRepo,
		articleRepo: articleRepo,
		pipeline:    pipeline,
		archive:     archive,
		cfg:         cfg,
		logger:      logger,
	}
}

// ProcessQueue claims and processes one batch of due items. Returning
// domain.ErrGeneratorOverloaded tells the runner to back off before the
// next tick.
func (w *QueueWorker) ProcessQueue(ctx context.Context) error {
	items, err := w.queueRepo.DequeueDue(ctx, w.cfg.BatchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "failed to claim due queue items", "error", err)
		return fmt.Errorf("failed to claim due queue items: %w", err)
	}

	metrics.QueueBatchSize.Observe(float64(len(items)))
	if len(items) == 0 {
		w.logger.DebugContext(ctx, "no due queue items")
		return nil
	}

	w.logger.InfoContext(ctx, "processing due queue items", "count", len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for _, item := range items {
		g.Go(func() error {
			return w.processItem(gctx, item)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrGeneratorOverloaded) {
			w.logger.WarnContext(ctx, "generator overloaded, backing off")
			return err
		}
		return fmt.Errorf("queue batch failed: %w", err)
	}
	return nil
}

// processItem runs the pipeline for one claimed item and settles the item
// according to the outcome. Only overload propagates upward; everything
// else is absorbed so one bad article cannot stall the batch.
func (w *QueueWorker) processItem(ctx context.Context, item *domain.QueueItem) error {
	err := w.pipeline.Run(ctx, item.ArticleID)
	if err == nil {
		if markErr := w.queueRepo.MarkCompleted(ctx, item.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark queue item completed",
				"item_id", item.ID, "error", markErr)
		}
		metrics.RecordQueueOutcome("completed")
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrArticleDeleted), errors.Is(err, domain.ErrArticleNotFound):
		// The article went away between enqueue and claim. Nothing to
		// generate, so the item just completes.
		w.logger.InfoContext(ctx, "queue item skipped, article gone",
			"item_id", item.ID, "article_id", item.ArticleID)
		if markErr := w.queueRepo.MarkCompleted(ctx, item.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to mark stale queue item completed",
				"item_id", item.ID, "error", markErr)
		}
		metrics.RecordQueueOutcome("skipped")
		return nil

	case domain.IsRecoverable(err) || errors.Is(err, domain.ErrGenerationConflict):
		w.settleRetryable(ctx, item, err)
		if errors.Is(err, domain.ErrGeneratorOverloaded) {
			return domain.ErrGeneratorOverloaded
		}
		return nil

	default:
		w.logger.ErrorContext(ctx, "queue item failed fatally",
			"item_id", item.ID, "article_id", item.ArticleID, "error", err)
		if markErr := w.queueRepo.MarkFailedTerminal(ctx, item.ID, err.Error()); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to terminally fail queue item",
				"item_id", item.ID, "error", markErr)
		}
		metrics.RecordQueueOutcome("failed")
		w.archiveExhausted(ctx, item, err)
		return nil
	}
}

// settleRetryable re-queues the item with backoff, or archives it when this
// attempt was its last.
func (w *QueueWorker) settleRetryable(ctx context.Context, item *domain.QueueItem, cause error) {
	exhausted := item.Attempts+1 >= item.MaxAttempts

	if markErr := w.queueRepo.MarkFailed(ctx, item.ID, cause.Error(), w.cfg.BackoffBase, w.cfg.BackoffCap); markErr != nil {
		w.logger.ErrorContext(ctx, "failed to mark queue item failed",
			"item_id", item.ID, "error", markErr)
		return
	}

	if exhausted {
		w.logger.WarnContext(ctx, "queue item exhausted retry attempts",
			"item_id", item.ID, "article_id", item.ArticleID,
			"attempts", item.Attempts+1, "max_attempts", item.MaxAttempts)
		metrics.RecordQueueOutcome("exhausted")
		w.archiveExhausted(ctx, item, cause)
		return
	}

	// The pipeline left the article failed; put it back in scheduled so the
	// retried item can claim it. The reset is a guarded no-op when another
	// worker still holds the claim (conflict path).
	if resetErr := w.articleRepo.ResetForRetry(ctx, item.ArticleID); resetErr != nil {
		w.logger.ErrorContext(ctx, "failed to reset article for retry",
			"item_id", item.ID, "article_id", item.ArticleID, "error", resetErr)
	}

	w.logger.InfoContext(ctx, "queue item re-queued with backoff",
		"item_id", item.ID, "article_id", item.ArticleID,
		"attempts", item.Attempts+1, "max_attempts", item.MaxAttempts)
	metrics.RecordQueueOutcome("retried")
}

func (w *QueueWorker) archiveExhausted(ctx context.Context, item *domain.QueueItem, cause error) {
	if w.archive == nil {
		return
	}
	// Archive failures are advisory: the durable record is the failed item
	// row itself.
	if err := w.archive.Archive(ctx, item, cause); err != nil {
		w.logger.ErrorContext(ctx, "failed to archive exhausted item",
			"item_id", item.ID, "error", err)
	}
}

// PruneOrphans removes queue entries whose article was deleted underneath
// them.
func (w *QueueWorker) PruneOrphans(ctx context.Context) error {
	count, err := w.queueRepo.PruneOrphans(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune orphaned queue items: %w", err)
	}
	if count > 0 {
		metrics.OrphansPruned.Add(float64(count))
	}
	return nil
}
