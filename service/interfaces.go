package service

import (
	"context"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
)

// SchedulerService exposes the article lifecycle operations behind the API.
type SchedulerService interface {
	CreateArticle(ctx context.Context, title string, keywords []string, notes string, frequency domain.PublishFrequency) (*domain.Article, error)
	ScheduleGeneration(ctx context.Context, articleID uuid.UUID, generationAt, publishAt time.Time, scheduling domain.SchedulingType) (*domain.QueueItem, error)
	RescheduleGeneration(ctx context.Context, itemID uuid.UUID, newDueAt time.Time) error
	CancelSchedule(ctx context.Context, itemID uuid.UUID) error
	DeleteArticle(ctx context.Context, articleID uuid.UUID) error
}

// PipelineService runs the multi-phase generation for one article.
type PipelineService interface {
	Run(ctx context.Context, articleID uuid.UUID) error
}

// QueueWorkerService drains due queue items.
type QueueWorkerService interface {
	ProcessQueue(ctx context.Context) error
	PruneOrphans(ctx context.Context) error
}

// PublishSchedulerService publishes due wait_for_publish articles.
type PublishSchedulerService interface {
	Sweep(ctx context.Context) (*SweepResult, error)
}

// StatusReporterService projects a read-only lifecycle snapshot.
type StatusReporterService interface {
	GetStatus(ctx context.Context, articleID uuid.UUID) (*StatusSnapshot, error)
}

// SweepResult summarizes one publish sweep run.
type SweepResult struct {
	Due       int
	Published int
	Rearmed   int
	Failed    int
}

// StatusSnapshot is the reporter's projection of one article's lifecycle.
// Article fields are the source of truth; queue metadata only describes a
// run that has not started yet.
type StatusSnapshot struct {
	ArticleID uuid.UUID            `json:"article_id"`
	Status    domain.ArticleStatus `json:"status"`
	Phase     domain.Phase         `json:"phase,omitempty"`
	Progress  int                  `json:"progress"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Error       *string    `json:"error,omitempty"`

	NextRunAt     *time.Time `json:"next_run_at,omitempty"`
	QueueAttempts int        `json:"queue_attempts,omitempty"`
}
