package repository

import (
	"context"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
)

// ArticleRepository handles article persistence. All status mutations are
// compare-and-set against the expected current status, so lifecycle guards
// hold even under concurrent callers.
type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// MarkScheduled moves an idea or failed article to scheduled and
	// records both schedule times.
	MarkScheduled(ctx context.Context, id uuid.UUID, generationAt, publishAt time.Time) error

	// ClaimGeneration atomically moves scheduled -> generating. Returns
	// domain.ErrGenerationConflict if another run already holds the claim.
	ClaimGeneration(ctx context.Context, id uuid.UUID) error

	// UpdateGenerationProgress persists phase, progress and the content
	// written so far. Rejected unless the article is generating.
	UpdateGenerationProgress(ctx context.Context, id uuid.UUID, phase domain.Phase, progress int, content *domain.ArticleContent) error

	// CompleteGeneration moves generating -> wait_for_publish.
	CompleteGeneration(ctx context.Context, id uuid.UUID) error

	// FailGeneration moves generating -> failed and records the error.
	FailGeneration(ctx context.Context, id uuid.UUID, message string) error

	// ResetForRetry moves failed -> scheduled so a re-queued generation
	// attempt can claim the article again. A no-op when the article is not
	// failed (another worker may still hold the claim).
	ResetForRetry(ctx context.Context, id uuid.UUID) error

	// FindDueForPublish returns wait_for_publish articles whose scheduled
	// publish time has passed, oldest first.
	FindDueForPublish(ctx context.Context, now time.Time, limit int) ([]*domain.Article, error)

	// MarkPublished moves wait_for_publish -> published.
	MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error

	// RearmPublish keeps a recurring article in wait_for_publish with the
	// next scheduled time, recording the publish that just succeeded.
	RearmPublish(ctx context.Context, id uuid.UUID, nextAt, lastPublishedAt time.Time) error

	// SoftDelete moves any non-terminal article to deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// QueueRepository handles the durable generation queue.
type QueueRepository interface {
	// Enqueue inserts a queued item for the article. Fails with
	// domain.ErrDuplicateQueueItem if an active entry already exists.
	Enqueue(ctx context.Context, articleID uuid.UUID, dueAt time.Time, scheduling domain.SchedulingType, maxAttempts int) (*domain.QueueItem, error)

	// Reschedule atomically moves a still-queued item to a new due time,
	// assigning a fresh queue position so tie-break ordering stays stable.
	Reschedule(ctx context.Context, itemID uuid.UUID, newDueAt time.Time) error

	// Cancel removes a queued item. No-op if already processing or missing.
	Cancel(ctx context.Context, itemID uuid.UUID) error

	// CancelByArticle removes the article's queued item, if any.
	CancelByArticle(ctx context.Context, articleID uuid.UUID) error

	// DequeueDue claims up to limit due items, oldest (dueAt, position)
	// first, marking them processing. Safe under concurrent consumers.
	DequeueDue(ctx context.Context, limit int) ([]*domain.QueueItem, error)

	// MarkCompleted finishes an item after a successful pipeline run.
	MarkCompleted(ctx context.Context, itemID uuid.UUID) error

	// MarkFailed increments attempts; below max attempts the item is
	// re-queued with exponential backoff, otherwise it becomes failed.
	MarkFailed(ctx context.Context, itemID uuid.UUID, message string, backoffBase, backoffCap time.Duration) error

	// MarkFailedTerminal fails an item immediately, bypassing remaining
	// attempts. Used for fatal errors that retrying cannot fix.
	MarkFailedTerminal(ctx context.Context, itemID uuid.UUID, message string) error

	// GetItem returns one item by id.
	GetItem(ctx context.Context, itemID uuid.UUID) (*domain.QueueItem, error)

	// FindActiveByArticle returns the queued or processing item for an
	// article, or domain.ErrQueueItemNotFound.
	FindActiveByArticle(ctx context.Context, articleID uuid.UUID) (*domain.QueueItem, error)

	// PruneOrphans deletes items whose article is gone or deleted.
	PruneOrphans(ctx context.Context) (int64, error)
}

// GeneratorRepository is the external content generation capability. Every
// call may fail transiently (unavailable, overloaded, timeout) or
// permanently; the pipeline classifies and retries accordingly.
type GeneratorRepository interface {
	Research(ctx context.Context, topic string, keywords []string) (string, error)
	Outline(ctx context.Context, title string, keywords []string, research string) (string, error)
	Write(ctx context.Context, outline, research string) (string, error)
	SelectImages(ctx context.Context, draft string) ([]string, error)
	QualityCheck(ctx context.Context, content string) ([]string, error)
	Validate(ctx context.Context, content string) ([]string, error)
	Revise(ctx context.Context, content string, issues []string) (string, error)
	SEOAudit(ctx context.Context, content string) (string, error)
	CheckHealth(ctx context.Context) error
}
