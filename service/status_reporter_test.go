package service

import (
	"context"
	"testing"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusReporter_GetStatus(t *testing.T) {
	t.Run("should report phase and progress for a generating article", func(t *testing.T) {
		articleRepo := newMemArticleRepo()
		queueRepo := newMemQueueRepo()
		started := time.Now().Add(-time.Minute)
		article := &domain.Article{
			ID:                  uuid.New(),
			Status:              domain.StatusGenerating,
			GenerationPhase:     domain.PhaseWriting,
			GenerationProgress:  50,
			GenerationStartedAt: &started,
		}
		articleRepo.put(article)

		r := NewStatusReporter(articleRepo, queueRepo, testLogger())
		snapshot, err := r.GetStatus(context.Background(), article.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusGenerating, snapshot.Status)
		assert.Equal(t, domain.PhaseWriting, snapshot.Phase)
		assert.Equal(t, 50, snapshot.Progress)
		assert.Equal(t, &started, snapshot.StartedAt)
		assert.Nil(t, snapshot.NextRunAt, "queue metadata only applies before the run starts")
	})

	t.Run("should include queue metadata for a scheduled article", func(t *testing.T) {
		articleRepo := newMemArticleRepo()
		queueRepo := newMemQueueRepo()
		article := &domain.Article{ID: uuid.New(), Status: domain.StatusScheduled}
		articleRepo.put(article)

		dueAt := time.Now().Add(time.Hour)
		item, err := queueRepo.Enqueue(context.Background(), article.ID, dueAt, domain.SchedulingManual, 3)
		require.NoError(t, err)

		r := NewStatusReporter(articleRepo, queueRepo, testLogger())
		snapshot, err := r.GetStatus(context.Background(), article.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusScheduled, snapshot.Status)
		require.NotNil(t, snapshot.NextRunAt)
		assert.WithinDuration(t, item.ScheduledFor, *snapshot.NextRunAt, time.Second)
	})

	t.Run("should tolerate a scheduled article with no queue item", func(t *testing.T) {
		articleRepo := newMemArticleRepo()
		queueRepo := newMemQueueRepo()
		article := &domain.Article{ID: uuid.New(), Status: domain.StatusScheduled}
		articleRepo.put(article)

		r := NewStatusReporter(articleRepo, queueRepo, testLogger())
		snapshot, err := r.GetStatus(context.Background(), article.ID)
		require.NoError(t, err)
		assert.Nil(t, snapshot.NextRunAt)
	})

	t.Run("should report the failure message for a failed article", func(t *testing.T) {
		articleRepo := newMemArticleRepo()
		message := "phase writing failed (recoverable): generator timeout"
		article := &domain.Article{
			ID:                 uuid.New(),
			Status:             domain.StatusFailed,
			GenerationPhase:    domain.PhaseWriting,
			GenerationProgress: 25,
			GenerationError:    &message,
		}
		articleRepo.put(article)

		r := NewStatusReporter(articleRepo, newMemQueueRepo(), testLogger())
		snapshot, err := r.GetStatus(context.Background(), article.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.StatusFailed, snapshot.Status)
		require.NotNil(t, snapshot.Error)
		assert.Contains(t, *snapshot.Error, "generator timeout")
	})

	t.Run("should return not found for missing articles", func(t *testing.T) {
		r := NewStatusReporter(newMemArticleRepo(), newMemQueueRepo(), testLogger())

		_, err := r.GetStatus(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrArticleNotFound)
	})
}
