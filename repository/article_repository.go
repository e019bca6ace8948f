package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const articleColumns = `
	id, title, keywords, notes, status, frequency,
	generation_scheduled_at, publish_scheduled_at,
	generation_started_at, generation_completed_at,
	published_at, last_published_at,
	generation_phase, generation_progress, generation_error,
	content, created_at, updated_at`

// articleRepository implementation.
type articleRepository struct {
	db     DB
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db DB, logger *slog.Logger) ArticleRepository {
	return &articleRepository{
		db:     db,
		logger: logger,
	}
}

func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if article.Status == "" {
		article.Status = domain.StatusIdea
	}
	if article.Frequency == "" {
		article.Frequency = domain.FrequencyOnce
	}

	contentJSON, err := json.Marshal(article.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal article content: %w", err)
	}

	query := `
		INSERT INTO articles (id, title, keywords, notes, status, frequency, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
	`
	if _, err := r.db.Exec(ctx, query,
		article.ID, article.Title, article.Keywords, article.Notes,
		string(article.Status), string(article.Frequency), contentJSON,
	); err != nil {
		r.logger.ErrorContext(ctx, "failed to create article", "error", err, "article_id", article.ID)
		return fmt.Errorf("failed to create article: %w", err)
	}

	r.logger.InfoContext(ctx, "article created", "article_id", article.ID, "title", article.Title)
	return nil
}

func (r *articleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrArticleNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get article", "error", err, "article_id", id)
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return article, nil
}

func (r *articleRepository) MarkScheduled(ctx context.Context, id uuid.UUID, generationAt, publishAt time.Time) error {
	query := `
		UPDATE articles
		SET status = $2, generation_scheduled_at = $3, publish_scheduled_at = $4,
		    generation_error = NULL, updated_at = now()
		WHERE id = $1 AND status = ANY($5)
	`
	tag, err := r.db.Exec(ctx, query, id, string(domain.StatusScheduled),
		generationAt, publishAt,
		[]string{string(domain.StatusIdea), string(domain.StatusFailed)})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to mark article scheduled", "error", err, "article_id", id)
		return fmt.Errorf("failed to mark article scheduled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionRejection(ctx, id, domain.StatusScheduled)
	}

	r.logger.InfoContext(ctx, "article scheduled",
		"article_id", id, "generation_at", generationAt, "publish_at", publishAt)
	return nil
}

func (r *articleRepository) ClaimGeneration(ctx context.Context, id uuid.UUID) error {
	// The status guard in the WHERE clause is the single-flight gate: only
	// one caller observes the scheduled row and flips it.
	query := `
		UPDATE articles
		SET status = $2, generation_started_at = now(),
		    generation_progress = 0, generation_phase = '', generation_error = NULL,
		    updated_at = now()
		WHERE id = $1 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, id,
		string(domain.StatusGenerating), string(domain.StatusScheduled))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to claim generation", "error", err, "article_id", id)
		return fmt.Errorf("failed to claim generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionRejection(ctx, id, domain.StatusGenerating)
	}

	r.logger.InfoContext(ctx, "generation claimed", "article_id", id)
	return nil
}

func (r *articleRepository) UpdateGenerationProgress(ctx context.Context, id uuid.UUID, phase domain.Phase, progress int, content *domain.ArticleContent) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal article content: %w", err)
	}

	query := `
		UPDATE articles
		SET generation_phase = $2, generation_progress = $3, content = $4, updated_at = now()
		WHERE id = $1 AND status = $5
	`
	tag, err := r.db.Exec(ctx, query, id, string(phase), progress, contentJSON,
		string(domain.StatusGenerating))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to update generation progress", "error", err, "article_id", id)
		return fmt.Errorf("failed to update generation progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %s is not generating: %w", id, domain.ErrArticleNotFound)
	}

	r.logger.DebugContext(ctx, "generation progress persisted",
		"article_id", id, "phase", phase, "progress", progress)
	return nil
}

func (r *articleRepository) CompleteGeneration(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE articles
		SET status = $2, generation_completed_at = now(), generation_error = NULL,
		    generation_phase = $3, generation_progress = 100, updated_at = now()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id,
		string(domain.StatusWaitForPublish), string(domain.PhaseCompleted),
		string(domain.StatusGenerating))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to complete generation", "error", err, "article_id", id)
		return fmt.Errorf("failed to complete generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionRejection(ctx, id, domain.StatusWaitForPublish)
	}

	r.logger.InfoContext(ctx, "generation completed", "article_id", id)
	return nil
}

func (r *articleRepository) FailGeneration(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE articles
		SET status = $2, generation_error = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id,
		string(domain.StatusFailed), message, string(domain.StatusGenerating))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to fail generation", "error", err, "article_id", id)
		return fmt.Errorf("failed to fail generation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionRejection(ctx, id, domain.StatusFailed)
	}

	r.logger.WarnContext(ctx, "generation failed", "article_id", id, "generation_error", message)
	return nil
}

func (r *articleRepository) ResetForRetry(ctx context.Context, id uuid.UUID) error {
	// The failure record is kept; the next claim clears it on success. The
	// status guard makes this safe against a concurrent claim still running.
	query := `
		UPDATE articles
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, id,
		string(domain.StatusScheduled), string(domain.StatusFailed))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to reset article for retry", "error", err, "article_id", id)
		return fmt.Errorf("failed to reset article for retry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.DebugContext(ctx, "retry reset skipped, article not failed", "article_id", id)
		return nil
	}

	r.logger.InfoContext(ctx, "article reset for retry", "article_id", id)
	return nil
}

func (r *articleRepository) FindDueForPublish(ctx context.Context, now time.Time, limit int) ([]*domain.Article, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	query := `SELECT ` + articleColumns + `
		FROM articles
		WHERE status = $1 AND publish_scheduled_at <= $2
		ORDER BY publish_scheduled_at ASC
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, string(domain.StatusWaitForPublish), now, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to find due articles", "error", err)
		return nil, fmt.Errorf("failed to find due articles: %w", err)
	}
	defer rows.Close()

	var articles []*domain.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *articleRepository) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) error {
	query := `
		UPDATE articles
		SET status = $2, published_at = $3, last_published_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id,
		string(domain.StatusPublished), publishedAt, string(domain.StatusWaitForPublish))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to mark article published", "error", err, "article_id", id)
		return fmt.Errorf("failed to mark article published: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.currentStatus(ctx, id)
		if err != nil {
			return err
		}
		// Re-publishing is a no-op, which makes the sweep idempotent.
		if current == domain.StatusPublished {
			return nil
		}
		return &domain.InvalidTransitionError{From: current, To: domain.StatusPublished}
	}

	r.logger.InfoContext(ctx, "article published", "article_id", id, "published_at", publishedAt)
	return nil
}

func (r *articleRepository) RearmPublish(ctx context.Context, id uuid.UUID, nextAt, lastPublishedAt time.Time) error {
	query := `
		UPDATE articles
		SET publish_scheduled_at = $2, last_published_at = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`
	tag, err := r.db.Exec(ctx, query, id, nextAt, lastPublishedAt,
		string(domain.StatusWaitForPublish))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to re-arm publish schedule", "error", err, "article_id", id)
		return fmt.Errorf("failed to re-arm publish schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionRejection(ctx, id, domain.StatusWaitForPublish)
	}

	r.logger.InfoContext(ctx, "recurring publish re-armed", "article_id", id, "next_at", nextAt)
	return nil
}

func (r *articleRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE articles
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
	`
	tag, err := r.db.Exec(ctx, query, id, string(domain.StatusDeleted))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to delete article", "error", err, "article_id", id)
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, err := r.currentStatus(ctx, id)
		if err != nil {
			return err
		}
		// Deleting a deleted article is a no-op.
		if current == domain.StatusDeleted {
			return nil
		}
		return &domain.InvalidTransitionError{From: current, To: domain.StatusDeleted}
	}

	r.logger.InfoContext(ctx, "article deleted", "article_id", id)
	return nil
}

// transitionRejection inspects why a compare-and-set update matched no rows
// and returns the appropriate typed error.
func (r *articleRepository) transitionRejection(ctx context.Context, id uuid.UUID, target domain.ArticleStatus) error {
	current, err := r.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if target == domain.StatusGenerating && current == domain.StatusGenerating {
		return domain.ErrGenerationConflict
	}
	if current == domain.StatusDeleted {
		return domain.ErrArticleDeleted
	}
	return &domain.InvalidTransitionError{From: current, To: target}
}

func (r *articleRepository) currentStatus(ctx context.Context, id uuid.UUID) (domain.ArticleStatus, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM articles WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrArticleNotFound
		}
		return "", fmt.Errorf("failed to read article status: %w", err)
	}
	return domain.ArticleStatus(status), nil
}

// scanArticle scans one article row from either QueryRow or Rows.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var (
		article     domain.Article
		status      string
		frequency   string
		phase       string
		contentJSON []byte
	)

	err := row.Scan(
		&article.ID,
		&article.Title,
		&article.Keywords,
		&article.Notes,
		&status,
		&frequency,
		&article.GenerationScheduledAt,
		&article.PublishScheduledAt,
		&article.GenerationStartedAt,
		&article.GenerationCompletedAt,
		&article.PublishedAt,
		&article.LastPublishedAt,
		&phase,
		&article.GenerationProgress,
		&article.GenerationError,
		&contentJSON,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Status = domain.ArticleStatus(status)
	article.Frequency = domain.PublishFrequency(frequency)
	article.GenerationPhase = domain.Phase(phase)

	if len(contentJSON) > 0 {
		if err := json.Unmarshal(contentJSON, &article.Content); err != nil {
			return nil, fmt.Errorf("failed to unmarshal article content: %w", err)
		}
	}

	return &article, nil
}
