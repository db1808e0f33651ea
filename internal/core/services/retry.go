package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/SscSPs/ledger_engine/internal/apperrors"
)

const (
	conflictBaseDelay = 5 * time.Millisecond
	conflictMaxDelay  = 100 * time.Millisecond
)

// withConflictRetry runs fn until it succeeds, fails with anything other than apperrors.ErrConflict,
// or maxAttempts is reached. Exhaustion is reported as apperrors.ErrTransient.
func withConflictRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil || !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(conflictDelay(attempt)):
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", apperrors.ErrTransient, maxAttempts, err)
}

func conflictDelay(attempt int) time.Duration {
	d := conflictBaseDelay << (attempt - 1)
	if d > conflictMaxDelay || d <= 0 {
		d = conflictMaxDelay
	}
	// Jitter so that racing writers do not retry in lockstep.
	return d/2 + rand.N(d/2+1)
}

// backoffDelay is the capped exponential delay used when a subscription cannot recompute.
func backoffDelay(attempt int, max time.Duration) time.Duration {
	d := 100 * time.Millisecond
	for i := 0; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}
