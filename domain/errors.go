// ABOUTME: Domain-level sentinel and typed errors for the content scheduler
// ABOUTME: These errors are used with errors.Is/errors.As for classification
package domain

import (
	"errors"
	"fmt"
)

// Article-related errors
var (
	// ErrArticleNotFound indicates the requested article does not exist
	ErrArticleNotFound = errors.New("article not found")

	// ErrArticleDeleted indicates the article was soft-deleted and is
	// excluded from all processing
	ErrArticleDeleted = errors.New("article is deleted")

	// ErrGenerationConflict indicates a single-flight violation: another
	// invocation already holds generating status for the article
	ErrGenerationConflict = errors.New("generation already in progress for article")
)

// Queue-related errors
var (
	// ErrQueueItemNotFound indicates the requested queue item does not exist
	ErrQueueItemNotFound = errors.New("queue item not found")

	// ErrDuplicateQueueItem indicates an active queue entry already exists
	// for the article; it must be cancelled before enqueueing again
	ErrDuplicateQueueItem = errors.New("active queue item already exists for article")

	// ErrPastDueTime indicates the requested due time is in the past
	ErrPastDueTime = errors.New("scheduled time must be in the future")

	// ErrQueueEmpty indicates no due item was available to claim
	ErrQueueEmpty = errors.New("no due queue item available")
)

// External generator errors
var (
	// ErrGeneratorUnavailable indicates the generation service is not reachable
	ErrGeneratorUnavailable = errors.New("generation service unavailable")

	// ErrGeneratorOverloaded indicates the generation service returned 429
	ErrGeneratorOverloaded = errors.New("generation service overloaded")
)

// InvalidTransitionError reports an illegal lifecycle transition. Callers
// surface this as a 4xx-equivalent condition; it is never retried.
type InvalidTransitionError struct {
	From ArticleStatus
	To   ArticleStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}

// PhaseError wraps a failure of one pipeline phase with its recoverability.
// Recoverable failures (network, timeout, overload) are retried; fatal
// failures (malformed input, policy violation) abort the pipeline.
type PhaseError struct {
	Phase Phase
	Err   error
	Fatal bool
}

func (e *PhaseError) Error() string {
	kind := "recoverable"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("phase %s failed (%s): %v", e.Phase, kind, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// NewRecoverablePhaseError marks a transient phase failure eligible for retry.
func NewRecoverablePhaseError(phase Phase, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err, Fatal: false}
}

// NewFatalPhaseError marks an unrecoverable phase failure that aborts the run.
func NewFatalPhaseError(phase Phase, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err, Fatal: true}
}

// IsRecoverable reports whether err is a phase error that may be retried.
// Errors that are not phase errors are treated as fatal: an unclassified
// failure must never loop the pipeline.
func IsRecoverable(err error) bool {
	var pe *PhaseError
	if errors.As(err, &pe) {
		return !pe.Fatal
	}
	return false
}
