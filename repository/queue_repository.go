package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const queueColumns = `
	id, article_id, scheduled_for, queue_position, scheduling_type, status,
	attempts, max_attempts, error_message, created_at, started_at, completed_at`

// queueRepository implementation.
type queueRepository struct {
	db     DB
	logger *slog.Logger
}

// NewQueueRepository creates a new generation queue repository.
func NewQueueRepository(db DB, logger *slog.Logger) QueueRepository {
	return &queueRepository{
		db:     db,
		logger: logger,
	}
}

func (r *queueRepository) Enqueue(ctx context.Context, articleID uuid.UUID, dueAt time.Time, scheduling domain.SchedulingType, maxAttempts int) (*domain.QueueItem, error) {
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive")
	}

	// INSERT ... SELECT guarded by NOT EXISTS keeps at most one active
	// entry per article without a separate existence round trip.
	query := `
		INSERT INTO generation_queue
			(id, article_id, scheduled_for, queue_position, scheduling_type, status, attempts, max_attempts, created_at)
		SELECT $1, $2, $3, nextval('generation_queue_position_seq'), $4, $5, 0, $6, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM generation_queue
			WHERE article_id = $2 AND status = ANY($7)
		)
		RETURNING ` + queueColumns

	row := r.db.QueryRow(ctx, query,
		uuid.New(), articleID, dueAt, string(scheduling),
		string(domain.QueueItemStatusQueued), maxAttempts,
		[]string{string(domain.QueueItemStatusQueued), string(domain.QueueItemStatusProcessing)})

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDuplicateQueueItem
		}
		r.logger.ErrorContext(ctx, "failed to enqueue article", "error", err, "article_id", articleID)
		return nil, fmt.Errorf("failed to enqueue article: %w", err)
	}

	r.logger.InfoContext(ctx, "article enqueued",
		"article_id", articleID, "item_id", item.ID,
		"scheduled_for", dueAt, "scheduling_type", scheduling)
	return item, nil
}

func (r *queueRepository) Reschedule(ctx context.Context, itemID uuid.UUID, newDueAt time.Time) error {
	// Single atomic UPDATE: the item either moves in one step or the guard
	// rejects it because a worker already claimed it.
	query := `
		UPDATE generation_queue
		SET scheduled_for = $2, queue_position = nextval('generation_queue_position_seq')
		WHERE id = $1 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, itemID, newDueAt, string(domain.QueueItemStatusQueued))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to reschedule queue item", "error", err, "item_id", itemID)
		return fmt.Errorf("failed to reschedule queue item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		item, err := r.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		return fmt.Errorf("queue item %s is %s, only queued items can be rescheduled", itemID, item.Status)
	}

	r.logger.InfoContext(ctx, "queue item rescheduled", "item_id", itemID, "scheduled_for", newDueAt)
	return nil
}

func (r *queueRepository) Cancel(ctx context.Context, itemID uuid.UUID) error {
	query := `DELETE FROM generation_queue WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, itemID, string(domain.QueueItemStatusQueued))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to cancel queue item", "error", err, "item_id", itemID)
		return fmt.Errorf("failed to cancel queue item: %w", err)
	}
	if tag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "queue item cancelled", "item_id", itemID)
	}
	return nil
}

func (r *queueRepository) CancelByArticle(ctx context.Context, articleID uuid.UUID) error {
	query := `DELETE FROM generation_queue WHERE article_id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, articleID, string(domain.QueueItemStatusQueued))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to cancel queue items for article", "error", err, "article_id", articleID)
		return fmt.Errorf("failed to cancel queue items for article: %w", err)
	}
	if tag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "queue items cancelled for article",
			"article_id", articleID, "count", tag.RowsAffected())
	}
	return nil
}

func (r *queueRepository) DequeueDue(ctx context.Context, limit int) ([]*domain.QueueItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	// SKIP LOCKED lets concurrent workers claim disjoint batches without
	// blocking on each other.
	query := `
		UPDATE generation_queue
		SET status = $2, started_at = now()
		WHERE id IN (
			SELECT id FROM generation_queue
			WHERE status = $3 AND scheduled_for <= now()
			ORDER BY scheduled_for ASC, queue_position ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + queueColumns

	rows, err := r.db.Query(ctx, query, limit,
		string(domain.QueueItemStatusProcessing), string(domain.QueueItemStatusQueued))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to dequeue due items", "error", err)
		return nil, fmt.Errorf("failed to dequeue due items: %w", err)
	}
	defer rows.Close()

	var items []*domain.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue item rows: %w", err)
	}

	if len(items) > 0 {
		r.logger.InfoContext(ctx, "claimed due queue items", "count", len(items))
	}
	return items, nil
}

func (r *queueRepository) MarkCompleted(ctx context.Context, itemID uuid.UUID) error {
	query := `
		UPDATE generation_queue
		SET status = $2, completed_at = now(), error_message = NULL
		WHERE id = $1 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, itemID,
		string(domain.QueueItemStatusCompleted), string(domain.QueueItemStatusProcessing))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to complete queue item", "error", err, "item_id", itemID)
		return fmt.Errorf("failed to complete queue item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("queue item %s is not processing: %w", itemID, domain.ErrQueueItemNotFound)
	}

	r.logger.InfoContext(ctx, "queue item completed", "item_id", itemID)
	return nil
}

func (r *queueRepository) MarkFailed(ctx context.Context, itemID uuid.UUID, message string, backoffBase, backoffCap time.Duration) error {
	// One statement decides between re-queue with exponential backoff and
	// terminal failure, so a crash between steps cannot strand the item.
	query := `
		UPDATE generation_queue
		SET attempts = attempts + 1,
		    error_message = $2,
		    status = CASE
		        WHEN attempts + 1 >= max_attempts THEN 'failed'
		        ELSE 'queued'
		    END,
		    scheduled_for = CASE
		        WHEN attempts + 1 >= max_attempts THEN scheduled_for
		        ELSE now() + LEAST($3::interval * power(2, attempts), $4::interval)
		    END,
		    queue_position = CASE
		        WHEN attempts + 1 >= max_attempts THEN queue_position
		        ELSE nextval('generation_queue_position_seq')
		    END,
		    started_at = NULL,
		    completed_at = CASE
		        WHEN attempts + 1 >= max_attempts THEN now()
		        ELSE NULL
		    END
		WHERE id = $1 AND status = 'processing'
	`
	tag, err := r.db.Exec(ctx, query, itemID, message, backoffBase, backoffCap)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to mark queue item failed", "error", err, "item_id", itemID)
		return fmt.Errorf("failed to mark queue item failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("queue item %s is not processing: %w", itemID, domain.ErrQueueItemNotFound)
	}

	r.logger.WarnContext(ctx, "queue item attempt failed", "item_id", itemID, "error_message", message)
	return nil
}

func (r *queueRepository) MarkFailedTerminal(ctx context.Context, itemID uuid.UUID, message string) error {
	query := `
		UPDATE generation_queue
		SET status = $2, attempts = attempts + 1, error_message = $3,
		    started_at = NULL, completed_at = now()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, itemID,
		string(domain.QueueItemStatusFailed), message, string(domain.QueueItemStatusProcessing))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to terminally fail queue item", "error", err, "item_id", itemID)
		return fmt.Errorf("failed to terminally fail queue item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("queue item %s is not processing: %w", itemID, domain.ErrQueueItemNotFound)
	}

	r.logger.WarnContext(ctx, "queue item failed terminally", "item_id", itemID, "error_message", message)
	return nil
}

func (r *queueRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*domain.QueueItem, error) {
	query := `SELECT ` + queueColumns + ` FROM generation_queue WHERE id = $1`

	item, err := scanQueueItem(r.db.QueryRow(ctx, query, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueueItemNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get queue item", "error", err, "item_id", itemID)
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}
	return item, nil
}

func (r *queueRepository) FindActiveByArticle(ctx context.Context, articleID uuid.UUID) (*domain.QueueItem, error) {
	query := `SELECT ` + queueColumns + `
		FROM generation_queue
		WHERE article_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1`

	row := r.db.QueryRow(ctx, query, articleID,
		[]string{string(domain.QueueItemStatusQueued), string(domain.QueueItemStatusProcessing)})

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrQueueItemNotFound
		}
		r.logger.ErrorContext(ctx, "failed to find active queue item", "error", err, "article_id", articleID)
		return nil, fmt.Errorf("failed to find active queue item: %w", err)
	}
	return item, nil
}

func (r *queueRepository) PruneOrphans(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM generation_queue gq
		WHERE gq.status = $1
		AND NOT EXISTS (
			SELECT 1 FROM articles a
			WHERE a.id = gq.article_id AND a.status <> $2
		)
	`
	tag, err := r.db.Exec(ctx, query,
		string(domain.QueueItemStatusQueued), string(domain.StatusDeleted))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to prune orphaned queue items", "error", err)
		return 0, fmt.Errorf("failed to prune orphaned queue items: %w", err)
	}

	if tag.RowsAffected() > 0 {
		r.logger.InfoContext(ctx, "pruned orphaned queue items", "count", tag.RowsAffected())
	}
	return tag.RowsAffected(), nil
}

// scanQueueItem scans one queue row from either QueryRow or Rows.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var (
		item       domain.QueueItem
		scheduling string
		status     string
	)

	err := row.Scan(
		&item.ID,
		&item.ArticleID,
		&item.ScheduledFor,
		&item.QueuePosition,
		&scheduling,
		&status,
		&item.Attempts,
		&item.MaxAttempts,
		&item.ErrorMessage,
		&item.CreatedAt,
		&item.StartedAt,
		&item.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Scheduling = domain.SchedulingType(scheduling)
	item.Status = domain.QueueItemStatus(status)
	return &item, nil
}
