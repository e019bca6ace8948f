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
	"content-scheduler/metrics"
	"content-scheduler/repository"
	"content-scheduler/retry"

	"github.com/google/uuid"
)

// Pipeline executes the multi-phase generation run for one article. The
// claim on the article is taken once, up front; every phase then persists
// its output before the next phase starts, so a crash resumes from failed
// rather than losing completed work silently.
type Pipeline struct {
	articleRepo  repository.ArticleRepository
	generator    repository.GeneratorRepository
	publisher    events.Publisher
	retrier      *retry.Retrier
	plan         domain.PhasePlan
	phaseTimeout time.Duration
	logger       *slog.Logger
}

// NewPipeline creates a generation pipeline.
func NewPipeline(
	articleRepo repository.ArticleRepository,
	generator repository.GeneratorRepository,
	publisher events.Publisher,
	genCfg config.GeneratorConfig,
	phaseTimeout time.Duration,
	logger *slog.Logger,
) *Pipeline {
	retrier := retry.New(retry.Config{
		MaxAttempts:   genCfg.PhaseRetries,
		BaseDelay:     genCfg.RetryBase,
		MaxDelay:      genCfg.RetryMax,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}, isTransientError, logger)

	return &Pipeline{
		articleRepo:  articleRepo,
		generator:    generator,
		publisher:    publisher,
		retrier:      retrier,
		plan:         domain.NewPhasePlan(),
		phaseTimeout: phaseTimeout,
		logger:       logger,
	}
}

// runState carries the intermediate artifacts between phases.
type runState struct {
	content domain.ArticleContent
	issues  []string
}

// body returns the most refined text produced so far.
func (s *runState) body() string {
	if s.content.Optimized != "" {
		return s.content.Optimized
	}
	return s.content.Draft
}

// Run claims the article and drives it through the phase plan.
func (p *Pipeline) Run(ctx context.Context, articleID uuid.UUID) error {
	if err := p.articleRepo.ClaimGeneration(ctx, articleID); err != nil {
		p.logger.WarnContext(ctx, "could not claim article for generation",
			"article_id", articleID, "error", err)
		return fmt.Errorf("failed to claim article %s: %w", articleID, err)
	}

	article, err := p.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return p.abort(ctx, articleID, domain.NewFatalPhaseError(domain.PhaseResearch,
			fmt.Errorf("failed to load claimed article: %w", err)))
	}

	p.logger.InfoContext(ctx, "generation run started",
		"article_id", articleID, "title", article.Title)

	state := &runState{content: article.Content}

	for _, step := range p.plan {
		if step.Conditional && !p.shouldRun(step.Phase, state) {
			p.logger.DebugContext(ctx, "conditional phase skipped",
				"article_id", articleID, "phase", step.Phase)
			continue
		}

		if step.Phase == domain.PhaseCompleted {
			return p.complete(ctx, article)
		}

		start := time.Now()
		err := p.retrier.Do(ctx, func() error {
			return p.executePhase(ctx, article, step.Phase, state)
		})
		if err != nil {
			metrics.RecordPhase(string(step.Phase), "failure", time.Since(start))
			return p.abort(ctx, articleID, classifyPhaseFailure(step.Phase, err))
		}
		metrics.RecordPhase(string(step.Phase), "success", time.Since(start))

		if err := p.articleRepo.UpdateGenerationProgress(ctx, articleID, step.Phase, step.Progress, &state.content); err != nil {
			return p.abort(ctx, articleID, domain.NewFatalPhaseError(step.Phase, err))
		}

		p.logger.InfoContext(ctx, "phase completed",
			"article_id", articleID, "phase", step.Phase,
			"progress", step.Progress, "duration_ms", time.Since(start).Milliseconds())
	}

	// The plan always ends with the completed marker, so this is unreachable
	// unless the plan was rebuilt without it.
	return p.complete(ctx, article)
}

// shouldRun decides whether a conditional phase applies to this run. Both
// follow-up phases exist to repair content the review phases flagged, so a
// clean run skips them entirely.
func (p *Pipeline) shouldRun(phase domain.Phase, state *runState) bool {
	switch phase {
	case domain.PhaseUpdating, domain.PhaseSEOAudit:
		return len(state.issues) > 0
	default:
		return true
	}
}

func (p *Pipeline) executePhase(ctx context.Context, article *domain.Article, phase domain.Phase, state *runState) error {
	ctx, cancel := context.WithTimeout(ctx, p.phaseTimeout)
	defer cancel()

	switch phase {
	case domain.PhaseResearch:
		research, err := p.generator.Research(ctx, article.Title, article.Keywords)
		if err != nil {
			return err
		}
		state.content.ResearchData = research

	case domain.PhaseOutline:
		outline, err := p.generator.Outline(ctx, article.Title, article.Keywords, state.content.ResearchData)
		if err != nil {
			return err
		}
		state.content.Outline = outline

	case domain.PhaseWriting:
		draft, err := p.generator.Write(ctx, state.content.Outline, state.content.ResearchData)
		if err != nil {
			return err
		}
		state.content.Draft = draft

	case domain.PhaseImageSelection:
		imageURLs, err := p.generator.SelectImages(ctx, state.content.Draft)
		if err != nil {
			return err
		}
		state.content.ImageURLs = imageURLs

	case domain.PhaseQualityControl:
		issues, err := p.generator.QualityCheck(ctx, state.body())
		if err != nil {
			return err
		}
		state.issues = append(state.issues, issues...)

	case domain.PhaseValidating:
		issues, err := p.generator.Validate(ctx, state.body())
		if err != nil {
			return err
		}
		state.issues = append(state.issues, issues...)
		if len(state.issues) > 0 {
			state.content.FactCheckReport = strings.Join(state.issues, "\n")
		}

	case domain.PhaseUpdating:
		revised, err := p.generator.Revise(ctx, state.body(), state.issues)
		if err != nil {
			return err
		}
		state.content.Optimized = revised

	case domain.PhaseSEOAudit:
		metadata, err := p.generator.SEOAudit(ctx, state.body())
		if err != nil {
			return err
		}
		state.content.SEOMetadata = metadata

	default:
		return fmt.Errorf("unknown pipeline phase %q", phase)
	}

	return nil
}

func (p *Pipeline) complete(ctx context.Context, article *domain.Article) error {
	if err := p.articleRepo.CompleteGeneration(ctx, article.ID); err != nil {
		return fmt.Errorf("failed to complete generation for article %s: %w", article.ID, err)
	}

	p.logger.InfoContext(ctx, "generation run completed", "article_id", article.ID)
	p.emit(ctx, events.EventArticleGenerated, article.ID, "")
	return nil
}

// abort records the failure on the article and returns the classified error
// so the queue layer can decide whether the item deserves another attempt.
func (p *Pipeline) abort(ctx context.Context, articleID uuid.UUID, phaseErr *domain.PhaseError) error {
	metrics.RecordError("pipeline", string(phaseErr.Phase))

	if err := p.articleRepo.FailGeneration(ctx, articleID, phaseErr.Error()); err != nil {
		p.logger.ErrorContext(ctx, "failed to record generation failure",
			"article_id", articleID, "error", err)
	}

	p.emit(ctx, events.EventArticleFailed, articleID, phaseErr.Error())
	return phaseErr
}

func (p *Pipeline) emit(ctx context.Context, eventType events.EventType, articleID uuid.UUID, detail string) {
	if err := p.publisher.Publish(ctx, events.Event{
		Type:      eventType,
		ArticleID: articleID,
		Detail:    detail,
	}); err != nil {
		p.logger.WarnContext(ctx, "failed to publish lifecycle event",
			"event_type", eventType, "article_id", articleID, "error", err)
	}
}
