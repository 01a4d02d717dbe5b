package service

import (
	"context"
	"fmt"
	"time"

	"anoa.com/pointboard/internal/modules/points/repository"
	"anoa.com/pointboard/pkg/apperror"
)

// CounterUpdater applies increments to the counter with a bounded
// compare-and-swap loop on the row version.
type CounterUpdater struct {
	maxAttempts int
	backoff     time.Duration
}

func NewCounterUpdater(maxAttempts int, backoff time.Duration) *CounterUpdater {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CounterUpdater{maxAttempts: maxAttempts, backoff: backoff}
}

// Increment adds amount to userID's total and returns the committed-to-be
// total and version. It fails with apperror.ErrConflictExceeded once every
// attempt lost a race to a concurrent writer.
func (u *CounterUpdater) Increment(ctx context.Context, counter repository.CounterRepository, userID string, amount int64) (int64, int64, error) {
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		current, err := counter.FindByUser(ctx, userID)
		if err != nil {
			return 0, 0, fmt.Errorf("read counter for %s: %w", userID, err)
		}

		if current == nil {
			created, err := counter.InsertIfAbsent(ctx, userID, amount)
			if err != nil {
				return 0, 0, fmt.Errorf("create counter for %s: %w", userID, err)
			}
			if created {
				return amount, 1, nil
			}
		} else {
			changed, err := counter.ConditionalUpdate(ctx, userID, amount, current.Version)
			if err != nil {
				return 0, 0, fmt.Errorf("update counter for %s: %w", userID, err)
			}
			if changed > 0 {
				return current.TotalPoints + amount, current.Version + 1, nil
			}
		}

		if attempt < u.maxAttempts && u.backoff > 0 {
			timer := time.NewTimer(u.backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return 0, 0, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return 0, 0, fmt.Errorf("%w: user=%s after %d attempts", apperror.ErrConflictExceeded, userID, u.maxAttempts)
}
