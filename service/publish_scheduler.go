package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content-scheduler/config"
	"content-scheduler/domain"
	"content-scheduler/events"
	"content-scheduler/metrics"
	"content-scheduler/repository"
)

// PublishScheduler publishes articles whose scheduled publish time has
// passed. The sweep is idempotent: each publish is a compare-and-set on
// wait_for_publish, and an article that already moved is a no-op.
type PublishScheduler struct {
	articleRepo repository.ArticleRepository
	publisher   events.Publisher
	cfg         config.PublishConfig
	logger      *slog.Logger
	now         func() time.Time
}

// NewPublishScheduler creates a publish scheduler.
func NewPublishScheduler(
	articleRepo repository.ArticleRepository,
	publisher events.Publisher,
	cfg config.PublishConfig,
	logger *slog.Logger,
) *PublishScheduler {
	return &PublishScheduler{
		articleRepo: articleRepo,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Sweep publishes every due article once. Per-article failures are logged
// and counted but never stop the sweep; the article stays due and the next
// sweep retries it.
func (s *PublishScheduler) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now().UTC()

	due, err := s.articleRepo.FindDueForPublish(ctx, now, s.cfg.SweepLimit)
	if err != nil {
		metrics.RecordPublishSweep("error")
		return nil, fmt.Errorf("failed to find due articles: %w", err)
	}

	result := &SweepResult{Due: len(due)}
	if len(due) == 0 {
		s.logger.DebugContext(ctx, "no articles due for publish")
		metrics.RecordPublishSweep("empty")
		return result, nil
	}

	s.logger.InfoContext(ctx, "publish sweep started", "due", len(due))

	for _, article := range due {
		if ctx.Err() != nil {
			s.logger.WarnContext(ctx, "context canceled, stopping sweep",
				"remaining", result.Due-result.Published-result.Rearmed-result.Failed)
			break
		}

		if err := s.publishOne(ctx, article, now, result); err != nil {
			result.Failed++
			metrics.RecordError("publish", "sweep")
			s.logger.ErrorContext(ctx, "failed to publish article",
				"article_id", article.ID, "error", err)
		}
	}

	metrics.RecordPublishSweep("completed")
	s.logger.InfoContext(ctx, "publish sweep finished",
		"due", result.Due, "published", result.Published,
		"rearmed", result.Rearmed, "failed", result.Failed)
	return result, nil
}

// publishOne settles one due article. Recurring articles stay in
// wait_for_publish with the schedule advanced; one-shot articles move to
// published.
func (s *PublishScheduler) publishOne(ctx context.Context, article *domain.Article, now time.Time, result *SweepResult) error {
	if article.Frequency.Recurring() {
		next := s.nextOccurrence(article, now)
		if err := s.articleRepo.RearmPublish(ctx, article.ID, next, now); err != nil {
			return err
		}

		result.Rearmed++
		metrics.RecordPublished(string(article.Frequency))
		s.logger.InfoContext(ctx, "recurring article published",
			"article_id", article.ID, "frequency", article.Frequency, "next_at", next)
		s.emit(ctx, article, fmt.Sprintf("recurring %s, next at %s", article.Frequency, next.Format(time.RFC3339)))
		return nil
	}

	if err := s.articleRepo.MarkPublished(ctx, article.ID, now); err != nil {
		return err
	}

	result.Published++
	metrics.RecordPublished(string(article.Frequency))
	s.logger.InfoContext(ctx, "article published", "article_id", article.ID)
	s.emit(ctx, article, "")
	return nil
}

// nextOccurrence advances the schedule from its own anchor, not from the
// sweep instant, so a late sweep does not drift the cadence. Occurrences
// already in the past are skipped.
func (s *PublishScheduler) nextOccurrence(article *domain.Article, now time.Time) time.Time {
	anchor := now
	if article.PublishScheduledAt != nil {
		anchor = *article.PublishScheduledAt
	}

	next := article.Frequency.Next(anchor)
	for !next.After(now) {
		next = article.Frequency.Next(next)
	}
	return next
}

func (s *PublishScheduler) emit(ctx context.Context, article *domain.Article, detail string) {
	if err := s.publisher.Publish(ctx, events.Event{
		Type:      events.EventArticlePublished,
		ArticleID: article.ID,
		Detail:    detail,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"article_id", article.ID, "error", err)
	}
}
