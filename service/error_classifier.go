// ABOUTME: This file classifies generator failures for retry decisions
// ABOUTME: Transient transport problems are retried, everything else aborts the phase
package service

import (
	"context"
	"errors"
	"net"
	"syscall"

	"content-scheduler/domain"
)

// isTransientError reports whether a generator call failure is worth
// retrying within the same phase.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, domain.ErrGeneratorUnavailable) ||
		errors.Is(err, domain.ErrGeneratorOverloaded) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errno, ok := opErr.Err.(syscall.Errno); ok {
			return errno == syscall.ECONNREFUSED ||
				errno == syscall.ECONNRESET ||
				errno == syscall.ETIMEDOUT
		}
		if opErr.Timeout() {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// classifyPhaseFailure wraps a phase failure with its recoverability so the
// queue layer can decide between re-enqueue and terminal failure.
func classifyPhaseFailure(phase domain.Phase, err error) *domain.PhaseError {
	if isTransientError(err) {
		return domain.NewRecoverablePhaseError(phase, err)
	}
	return domain.NewFatalPhaseError(phase, err)
}
