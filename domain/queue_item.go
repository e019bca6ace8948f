package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueItemStatus represents the state of a scheduled generation request.
type QueueItemStatus string

const (
	QueueItemStatusQueued     QueueItemStatus = "queued"
	QueueItemStatusProcessing QueueItemStatus = "processing"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

// SchedulingType records whether a queue entry came from an explicit user
// action or from an automatic scheduling rule.
type SchedulingType string

const (
	SchedulingManual    SchedulingType = "manual"
	SchedulingAutomatic SchedulingType = "automatic"
)

// QueueItem is a scheduled generation request. It references an article by
// id only; the article may be deleted independently, leaving the item
// orphaned until the pruning job removes it.
type QueueItem struct {
	ID            uuid.UUID       `db:"id"`
	ArticleID     uuid.UUID       `db:"article_id"`
	ScheduledFor  time.Time       `db:"scheduled_for"`
	QueuePosition int64           `db:"queue_position"`
	Scheduling    SchedulingType  `db:"scheduling_type"`
	Status        QueueItemStatus `db:"status"`
	Attempts      int             `db:"attempts"`
	MaxAttempts   int             `db:"max_attempts"`
	ErrorMessage  *string         `db:"error_message"`
	CreatedAt     time.Time       `db:"created_at"`
	StartedAt     *time.Time      `db:"started_at"`
	CompletedAt   *time.Time      `db:"completed_at"`
}

// IsTerminal returns true if the item will not be processed again.
func (q *QueueItem) IsTerminal() bool {
	return q.Status == QueueItemStatusCompleted || q.Status == QueueItemStatusFailed
}

// CanRetry returns true if a failed attempt should be re-enqueued.
func (q *QueueItem) CanRetry() bool {
	return q.Attempts < q.MaxAttempts
}
