package domain

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus represents the lifecycle state of an article.
type ArticleStatus string

const (
	StatusIdea           ArticleStatus = "idea"
	StatusScheduled      ArticleStatus = "scheduled"
	StatusGenerating     ArticleStatus = "generating"
	StatusWaitForPublish ArticleStatus = "wait_for_publish"
	StatusPublished      ArticleStatus = "published"
	StatusFailed         ArticleStatus = "failed"
	StatusDeleted        ArticleStatus = "deleted"
)

// legalTransitions maps each status to the set of statuses it may move to.
// Deletion is handled separately: every non-terminal status may be deleted.
var legalTransitions = map[ArticleStatus][]ArticleStatus{
	StatusIdea:           {StatusScheduled},
	StatusScheduled:      {StatusGenerating},
	StatusGenerating:     {StatusWaitForPublish, StatusFailed},
	StatusWaitForPublish: {StatusPublished},
	StatusPublished:      {},
	StatusFailed:         {StatusIdea, StatusScheduled},
	StatusDeleted:        {},
}

// CanTransitionTo reports whether moving from s to target is a legal
// lifecycle transition.
func (s ArticleStatus) CanTransitionTo(target ArticleStatus) bool {
	if target == StatusDeleted {
		return s != StatusDeleted
	}
	for _, next := range legalTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns an InvalidTransitionError if the move from
// one status to another is not allowed by the lifecycle.
func ValidateTransition(from, to ArticleStatus) error {
	if !from.CanTransitionTo(to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// IsTerminal reports whether no further lifecycle transitions are possible.
func (s ArticleStatus) IsTerminal() bool {
	return s == StatusPublished || s == StatusDeleted
}

// PublishFrequency controls whether an article publishes once or re-arms
// itself on a recurring schedule after each successful publish.
type PublishFrequency string

const (
	FrequencyOnce    PublishFrequency = "once"
	FrequencyDaily   PublishFrequency = "daily"
	FrequencyWeekly  PublishFrequency = "weekly"
	FrequencyMonthly PublishFrequency = "monthly"
)

// Recurring reports whether the frequency re-arms the article after publish.
func (f PublishFrequency) Recurring() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// Next computes the next publish time from the current one using a fixed
// calendar offset. Returns the zero time for one-shot schedules.
func (f PublishFrequency) Next(current time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return current.AddDate(0, 1, 0)
	default:
		return time.Time{}
	}
}

// ArticleContent holds the payload written incrementally by pipeline phases.
// All fields are opaque to the scheduler; the generator owns their format.
type ArticleContent struct {
	ResearchData    string   `json:"research_data,omitempty"`
	Outline         string   `json:"outline,omitempty"`
	Draft           string   `json:"draft,omitempty"`
	Optimized       string   `json:"optimized,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	SEOMetadata     string   `json:"seo_metadata,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	FactCheckReport string   `json:"fact_check_report,omitempty"`
}

// Article is the unit of work tracked through the lifecycle.
type Article struct {
	ID       uuid.UUID
	Title    string
	Keywords []string
	Notes    string

	Status    ArticleStatus
	Frequency PublishFrequency

	GenerationScheduledAt *time.Time
	PublishScheduledAt    *time.Time
	GenerationStartedAt   *time.Time
	GenerationCompletedAt *time.Time
	PublishedAt           *time.Time
	// LastPublishedAt records the most recent successful publish for
	// recurring articles, which return to wait_for_publish and therefore
	// must keep PublishedAt null.
	LastPublishedAt *time.Time

	GenerationPhase    Phase
	GenerationProgress int
	GenerationError    *string

	Content ArticleContent

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DueForPublish reports whether the article should be picked up by the
// publish sweep at the given instant.
func (a *Article) DueForPublish(now time.Time) bool {
	return a.Status == StatusWaitForPublish &&
		a.PublishScheduledAt != nil &&
		!a.PublishScheduledAt.After(now)
}
