package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"content-scheduler/config"
	"content-scheduler/domain"
	"content-scheduler/events"
	"content-scheduler/repository"

	"github.com/google/uuid"
)

// Scheduler implements the lifecycle operations exposed by the API: creating
// articles, putting them on the generation queue, and taking them off again.
type Scheduler struct {
	articleRepo repository.ArticleRepository
	queueRepo   repository.QueueRepository
	publisher   events.Publisher
	cfg         config.QueueConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewScheduler creates a scheduler service.
func NewScheduler(
	articleRepo repository.ArticleRepository,
	queueRepo repository.QueueRepository,
	publisher events.Publisher,
	cfg config.QueueConfig,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		articleRepo: articleRepo,
		queueRepo:   queueRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Scheduler) CreateArticle(ctx context.Context, title string, keywords []string, notes string, frequency domain.PublishFrequency) (*domain.Article, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}
	if frequency == "" {
		frequency = domain.FrequencyOnce
	}

	article := &domain.Article{
		Title:     title,
		Keywords:  keywords,
		Notes:     notes,
		Status:    domain.StatusIdea,
		Frequency: frequency,
	}
	if err := s.articleRepo.Create(ctx, article); err != nil {
		return nil, err
	}
	return article, nil
}

// ScheduleGeneration moves the article to scheduled and puts it on the
// queue. Both times must lie in the future and publish must follow
// generation.
func (s *Scheduler) ScheduleGeneration(ctx context.Context, articleID uuid.UUID, generationAt, publishAt time.Time, scheduling domain.SchedulingType) (*domain.QueueItem, error) {
	now := s.now()
	if !generationAt.After(now) {
		return nil, fmt.Errorf("generation time %s: %w", generationAt.Format(time.RFC3339), domain.ErrPastDueTime)
	}
	if !publishAt.After(generationAt) {
		return nil, fmt.Errorf("publish time must be after generation time")
	}
	if scheduling == "" {
		scheduling = domain.SchedulingManual
	}

	if err := s.articleRepo.MarkScheduled(ctx, articleID, generationAt, publishAt); err != nil {
		return nil, err
	}

	item, err := s.queueRepo.Enqueue(ctx, articleID, generationAt, scheduling, s.cfg.MaxAttempts)
	if err != nil {
		return nil, fmt.Errorf("article %s marked scheduled but enqueue failed: %w", articleID, err)
	}

	s.logger.InfoContext(ctx, "generation scheduled",
		"article_id", articleID, "item_id", item.ID,
		"generation_at", generationAt, "publish_at", publishAt)
	s.emit(ctx, events.EventArticleScheduled, articleID,
		fmt.Sprintf("generation at %s", generationAt.Format(time.RFC3339)))
	return item, nil
}

// RescheduleGeneration moves a still-queued item to a new due time.
func (s *Scheduler) RescheduleGeneration(ctx context.Context, itemID uuid.UUID, newDueAt time.Time) error {
	if !newDueAt.After(s.now()) {
		return fmt.Errorf("new due time %s: %w", newDueAt.Format(time.RFC3339), domain.ErrPastDueTime)
	}
	return s.queueRepo.Reschedule(ctx, itemID, newDueAt)
}

// CancelSchedule removes a queued item. Items a worker already claimed are
// left alone.
func (s *Scheduler) CancelSchedule(ctx context.Context, itemID uuid.UUID) error {
	return s.queueRepo.Cancel(ctx, itemID)
}

// DeleteArticle soft-deletes the article and drops its queued work. The
// order matters: once the article is deleted, a concurrent claim fails its
// status guard, so the window for a wasted run is a single in-flight claim.
func (s *Scheduler) DeleteArticle(ctx context.Context, articleID uuid.UUID) error {
	if err := s.articleRepo.SoftDelete(ctx, articleID); err != nil {
		return err
	}

	if err := s.queueRepo.CancelByArticle(ctx, articleID); err != nil {
		s.logger.ErrorContext(ctx, "failed to cancel queue items for deleted article",
			"article_id", articleID, "error", err)
	}

	s.emit(ctx, events.EventArticleDeleted, articleID, "")
	return nil
}

func (s *Scheduler) emit(ctx context.Context, eventType events.EventType, articleID uuid.UUID, detail string) {
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		ArticleID: articleID,
		Detail:    detail,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", eventType, "article_id", articleID, "error", err)
	}
}
