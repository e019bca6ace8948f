package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"content-scheduler/domain"

	"github.com/google/uuid"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memArticleRepo is an in-memory ArticleRepository with the same
// compare-and-set semantics as the SQL implementation.
type memArticleRepo struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article

	// recorded calls
	progressLog []progressEntry

	// injected failures
	findErr     error
	publishErr  error
	progressErr error
}

type progressEntry struct {
	Phase    domain.Phase
	Progress int
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{articles: make(map[uuid.UUID]*domain.Article)}
}

func (m *memArticleRepo) put(a *domain.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[a.ID] = a
}

func (m *memArticleRepo) get(id uuid.UUID) *domain.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.articles[id]
}

func (m *memArticleRepo) Create(_ context.Context, article *domain.Article) error {
	if article.ID == uuid.Nil {
		article.ID = uuid.New()
	}
	if article.Status == "" {
		article.Status = domain.StatusIdea
	}
	m.put(article)
	return nil
}

func (m *memArticleRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return nil, domain.ErrArticleNotFound
	}
	copied := *article
	return &copied, nil
}

func (m *memArticleRepo) MarkScheduled(_ context.Context, id uuid.UUID, generationAt, publishAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if article.Status != domain.StatusIdea && article.Status != domain.StatusFailed {
		if article.Status == domain.StatusDeleted {
			return domain.ErrArticleDeleted
		}
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusScheduled}
	}
	article.Status = domain.StatusScheduled
	article.GenerationScheduledAt = &generationAt
	article.PublishScheduledAt = &publishAt
	return nil
}

func (m *memArticleRepo) ClaimGeneration(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	switch article.Status {
	case domain.StatusScheduled:
		article.Status = domain.StatusGenerating
		started := time.Now()
		article.GenerationStartedAt = &started
		article.GenerationProgress = 0
		article.GenerationError = nil
		return nil
	case domain.StatusGenerating:
		return domain.ErrGenerationConflict
	case domain.StatusDeleted:
		return domain.ErrArticleDeleted
	default:
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusGenerating}
	}
}

func (m *memArticleRepo) UpdateGenerationProgress(_ context.Context, id uuid.UUID, phase domain.Phase, progress int, content *domain.ArticleContent) error {
	if m.progressErr != nil {
		return m.progressErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok || article.Status != domain.StatusGenerating {
		return fmt.Errorf("article not generating: %w", domain.ErrArticleNotFound)
	}
	article.GenerationPhase = phase
	article.GenerationProgress = progress
	article.Content = *content
	m.progressLog = append(m.progressLog, progressEntry{Phase: phase, Progress: progress})
	return nil
}

func (m *memArticleRepo) CompleteGeneration(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if article.Status != domain.StatusGenerating {
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusWaitForPublish}
	}
	article.Status = domain.StatusWaitForPublish
	completed := time.Now()
	article.GenerationCompletedAt = &completed
	article.GenerationPhase = domain.PhaseCompleted
	article.GenerationProgress = 100
	article.GenerationError = nil
	return nil
}

func (m *memArticleRepo) FailGeneration(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if article.Status != domain.StatusGenerating {
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusFailed}
	}
	article.Status = domain.StatusFailed
	article.GenerationError = &message
	return nil
}

func (m *memArticleRepo) ResetForRetry(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok || article.Status != domain.StatusFailed {
		return nil
	}
	article.Status = domain.StatusScheduled
	return nil
}

func (m *memArticleRepo) FindDueForPublish(_ context.Context, now time.Time, limit int) ([]*domain.Article, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.Article
	for _, article := range m.articles {
		if article.DueForPublish(now) {
			copied := *article
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].PublishScheduledAt.Before(*due[j].PublishScheduledAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *memArticleRepo) MarkPublished(_ context.Context, id uuid.UUID, publishedAt time.Time) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if article.Status == domain.StatusPublished {
		return nil
	}
	if article.Status != domain.StatusWaitForPublish {
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusPublished}
	}
	article.Status = domain.StatusPublished
	article.PublishedAt = &publishedAt
	article.LastPublishedAt = &publishedAt
	return nil
}

func (m *memArticleRepo) RearmPublish(_ context.Context, id uuid.UUID, nextAt, lastPublishedAt time.Time) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	if article.Status != domain.StatusWaitForPublish {
		return &domain.InvalidTransitionError{From: article.Status, To: domain.StatusWaitForPublish}
	}
	article.PublishScheduledAt = &nextAt
	article.LastPublishedAt = &lastPublishedAt
	return nil
}

func (m *memArticleRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	article, ok := m.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	article.Status = domain.StatusDeleted
	return nil
}

// memQueueRepo is an in-memory QueueRepository.
type memQueueRepo struct {
	mu       sync.Mutex
	items    map[uuid.UUID]*domain.QueueItem
	position int64

	cancelled  []uuid.UUID
	pruneCount int64
}

func newMemQueueRepo() *memQueueRepo {
	return &memQueueRepo{items: make(map[uuid.UUID]*domain.QueueItem)}
}

func (m *memQueueRepo) put(item *domain.QueueItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
}

func (m *memQueueRepo) get(id uuid.UUID) *domain.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *memQueueRepo) Enqueue(_ context.Context, articleID uuid.UUID, dueAt time.Time, scheduling domain.SchedulingType, maxAttempts int) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.ArticleID == articleID && !existing.IsTerminal() {
			return nil, domain.ErrDuplicateQueueItem
		}
	}
	m.position++
	item := &domain.QueueItem{
		ID:            uuid.New(),
		ArticleID:     articleID,
		ScheduledFor:  dueAt,
		QueuePosition: m.position,
		Scheduling:    scheduling,
		Status:        domain.QueueItemStatusQueued,
		MaxAttempts:   maxAttempts,
		CreatedAt:     time.Now(),
	}
	m.items[item.ID] = item
	copied := *item
	return &copied, nil
}

func (m *memQueueRepo) Reschedule(_ context.Context, itemID uuid.UUID, newDueAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return domain.ErrQueueItemNotFound
	}
	if item.Status != domain.QueueItemStatusQueued {
		return fmt.Errorf("queue item %s is %s, only queued items can be rescheduled", itemID, item.Status)
	}
	m.position++
	item.ScheduledFor = newDueAt
	item.QueuePosition = m.position
	return nil
}

func (m *memQueueRepo) Cancel(_ context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if ok && item.Status == domain.QueueItemStatusQueued {
		delete(m.items, itemID)
		m.cancelled = append(m.cancelled, itemID)
	}
	return nil
}

func (m *memQueueRepo) CancelByArticle(_ context.Context, articleID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.ArticleID == articleID && item.Status == domain.QueueItemStatusQueued {
			delete(m.items, id)
			m.cancelled = append(m.cancelled, id)
		}
	}
	return nil
}

func (m *memQueueRepo) DequeueDue(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var due []*domain.QueueItem
	for _, item := range m.items {
		if item.Status == domain.QueueItemStatusQueued && !item.ScheduledFor.After(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledFor.Equal(due[j].ScheduledFor) {
			return due[i].QueuePosition < due[j].QueuePosition
		}
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	claimed := make([]*domain.QueueItem, 0, len(due))
	for _, item := range due {
		item.Status = domain.QueueItemStatusProcessing
		started := now
		item.StartedAt = &started
		copied := *item
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (m *memQueueRepo) MarkCompleted(_ context.Context, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status != domain.QueueItemStatusProcessing {
		return domain.ErrQueueItemNotFound
	}
	item.Status = domain.QueueItemStatusCompleted
	completed := time.Now()
	item.CompletedAt = &completed
	return nil
}

func (m *memQueueRepo) MarkFailed(_ context.Context, itemID uuid.UUID, message string, backoffBase, backoffCap time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status != domain.QueueItemStatusProcessing {
		return domain.ErrQueueItemNotFound
	}
	item.Attempts++
	item.ErrorMessage = &message
	item.StartedAt = nil
	if item.Attempts >= item.MaxAttempts {
		item.Status = domain.QueueItemStatusFailed
		completed := time.Now()
		item.CompletedAt = &completed
		return nil
	}
	backoff := backoffBase << (item.Attempts - 1)
	if backoff > backoffCap {
		backoff = backoffCap
	}
	item.Status = domain.QueueItemStatusQueued
	item.ScheduledFor = time.Now().Add(backoff)
	m.position++
	item.QueuePosition = m.position
	return nil
}

func (m *memQueueRepo) MarkFailedTerminal(_ context.Context, itemID uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok || item.Status != domain.QueueItemStatusProcessing {
		return domain.ErrQueueItemNotFound
	}
	item.Attempts++
	item.Status = domain.QueueItemStatusFailed
	item.ErrorMessage = &message
	completed := time.Now()
	item.CompletedAt = &completed
	return nil
}

func (m *memQueueRepo) GetItem(_ context.Context, itemID uuid.UUID) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[itemID]
	if !ok {
		return nil, domain.ErrQueueItemNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memQueueRepo) FindActiveByArticle(_ context.Context, articleID uuid.UUID) (*domain.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ArticleID == articleID && !item.IsTerminal() {
			copied := *item
			return &copied, nil
		}
	}
	return nil, domain.ErrQueueItemNotFound
}

func (m *memQueueRepo) PruneOrphans(_ context.Context) (int64, error) {
	return m.pruneCount, nil
}

// fakeGenerator records phase calls and lets tests fail individual phases.
type fakeGenerator struct {
	mu    sync.Mutex
	calls []string

	researchErr error
	outlineErr  error
	writeErr    error
	imagesErr   error
	qualityErr  error
	validateErr error
	reviseErr   error
	seoErr      error
	healthErr   error

	qualityIssues  []string
	validateIssues []string

	// failuresBefore lets a phase fail n times before succeeding
	failuresBefore map[string]int

	// researchGate, when set, blocks Research until the channel closes
	researchGate chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{failuresBefore: make(map[string]int)}
}

func (g *fakeGenerator) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGenerator) callSequence() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGenerator) transientFailure(call string, configured error) error {
	if configured != nil {
		return configured
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failuresBefore[call] > 0 {
		g.failuresBefore[call]--
		return domain.ErrGeneratorUnavailable
	}
	return nil
}

func (g *fakeGenerator) Research(_ context.Context, topic string, _ []string) (string, error) {
	g.record("research")
	if g.researchGate != nil {
		<-g.researchGate
	}
	if err := g.transientFailure("research", g.researchErr); err != nil {
		return "", err
	}
	return "research about " + topic, nil
}

func (g *fakeGenerator) Outline(_ context.Context, title string, _ []string, _ string) (string, error) {
	g.record("outline")
	if err := g.transientFailure("outline", g.outlineErr); err != nil {
		return "", err
	}
	return "outline for " + title, nil
}

func (g *fakeGenerator) Write(_ context.Context, _, _ string) (string, error) {
	g.record("write")
	if err := g.transientFailure("write", g.writeErr); err != nil {
		return "", err
	}
	return "draft text", nil
}

func (g *fakeGenerator) SelectImages(_ context.Context, _ string) ([]string, error) {
	g.record("images")
	if err := g.transientFailure("images", g.imagesErr); err != nil {
		return nil, err
	}
	return []string{"https://images.example.com/1.jpg"}, nil
}

func (g *fakeGenerator) QualityCheck(_ context.Context, _ string) ([]string, error) {
	g.record("quality")
	if err := g.transientFailure("quality", g.qualityErr); err != nil {
		return nil, err
	}
	return g.qualityIssues, nil
}

func (g *fakeGenerator) Validate(_ context.Context, _ string) ([]string, error) {
	g.record("validate")
	if err := g.transientFailure("validate", g.validateErr); err != nil {
		return nil, err
	}
	return g.validateIssues, nil
}

func (g *fakeGenerator) Revise(_ context.Context, _ string, _ []string) (string, error) {
	g.record("revise")
	if err := g.transientFailure("revise", g.reviseErr); err != nil {
		return "", err
	}
	return "revised text", nil
}

func (g *fakeGenerator) SEOAudit(_ context.Context, _ string) (string, error) {
	g.record("seo")
	if err := g.transientFailure("seo", g.seoErr); err != nil {
		return "", err
	}
	return `{"title":"seo title"}`, nil
}

func (g *fakeGenerator) CheckHealth(_ context.Context) error {
	return g.healthErr
}

// fakePipeline lets worker tests script pipeline outcomes per article.
type fakePipeline struct {
	mu      sync.Mutex
	results map[uuid.UUID]error
	runs    []uuid.UUID
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{results: make(map[uuid.UUID]error)}
}

func (p *fakePipeline) Run(_ context.Context, articleID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, articleID)
	return p.results[articleID]
}

func (p *fakePipeline) runCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runs)
}

func (p *fakePipeline) runOrder() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uuid.UUID(nil), p.runs...)
}
