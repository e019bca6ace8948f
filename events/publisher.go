// Package events publishes article lifecycle events to a Redis stream so
// downstream consumers (site builders, notification services) can react
// without polling the scheduler.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"content-scheduler/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType identifies a lifecycle event.
type EventType string

const (
	EventArticleScheduled EventType = "article.scheduled"
	EventArticleGenerated EventType = "article.generated"
	EventArticlePublished EventType = "article.published"
	EventArticleFailed    EventType = "article.failed"
	EventArticleDeleted   EventType = "article.deleted"
)

// Event is one lifecycle notification.
type Event struct {
	Type       EventType
	ArticleID  uuid.UUID
	OccurredAt time.Time
	Detail     string
}

// Publisher emits lifecycle events. Implementations must tolerate being
// called from concurrent pipeline runs.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// redisPublisher writes events to a capped Redis stream.
type redisPublisher struct {
	client  *redis.Client
	stream  string
	maxLen  int64
	timeout time.Duration
	logger  *slog.Logger
}

// NewRedisPublisher creates a stream-backed publisher.
func NewRedisPublisher(cfg config.RedisConfig, logger *slog.Logger) Publisher {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	return &redisPublisher{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.StreamMaxLen,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// NewRedisPublisherWithClient wires an existing client, used by tests.
func NewRedisPublisherWithClient(client *redis.Client, cfg config.RedisConfig, logger *slog.Logger) Publisher {
	return &redisPublisher{
		client:  client,
		stream:  cfg.Stream,
		maxLen:  cfg.StreamMaxLen,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type cannot be empty")
	}
	if event.ArticleID == uuid.Nil {
		return fmt.Errorf("event article id cannot be empty")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":        string(event.Type),
			"article_id":  event.ArticleID.String(),
			"occurred_at": event.OccurredAt.Format(time.RFC3339Nano),
			"detail":      event.Detail,
		},
	}).Result()
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to publish lifecycle event",
			"error", err, "event_type", event.Type, "article_id", event.ArticleID)
		return fmt.Errorf("failed to publish lifecycle event: %w", err)
	}

	p.logger.DebugContext(ctx, "lifecycle event published",
		"event_type", event.Type, "article_id", event.ArticleID, "message_id", id)
	return nil
}

func (p *redisPublisher) Close() error {
	return p.client.Close()
}

// NopPublisher discards events. Used when the event stream is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
