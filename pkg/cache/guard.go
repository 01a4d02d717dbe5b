package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"anoa.com/pointboard/pkg/apperror"
)

const lockSuffix = ":lock"

type WaitMode int

const (
	// WaitDeadline polls for the lock until Deadline, then loads straight from
	// the source without populating the cache.
	WaitDeadline WaitMode = iota
	// WaitRetry makes Attempts acquisition attempts and fails with
	// apperror.ErrLockTimeout once they are used up.
	WaitRetry
)

func (m WaitMode) String() string {
	if m == WaitRetry {
		return "retry"
	}
	return "deadline"
}

// WaitPolicy controls what a caller does when another process is already
// loading the same key.
type WaitPolicy struct {
	Mode     WaitMode
	Attempts int
	TTL      time.Duration
	Sleep    time.Duration
	Deadline time.Duration
}

// Guard implements cache-aside reads with at most one source load per key per
// miss episode across every process sharing the cache.
type Guard struct {
	locker *Locker
}

func NewGuard(c Cache) *Guard {
	return &Guard{locker: NewLocker(c)}
}

// LockKey returns the lock key guarding key.
func LockKey(key string) string {
	return key + lockSuffix
}

// GetOrLoad returns the cached value for key, loading it at most once per miss.
// read reports a miss with a nil value. Errors from read (including decode
// failures) and from load propagate unchanged. write may be nil.
func GetOrLoad[T any](
	ctx context.Context,
	g *Guard,
	key string,
	read func(ctx context.Context) (*T, error),
	write func(ctx context.Context, v *T) error,
	load func(ctx context.Context) (*T, error),
	policy WaitPolicy,
) (*T, error) {
	cached, err := read(ctx)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	lock, err := g.acquire(ctx, LockKey(key), policy)
	if err != nil {
		return nil, err
	}
	if lock == nil {
		// Deadline passed while someone else held the lock.
		log.Printf("[Guard] key=%s lock wait deadline %s exceeded, loading from source", key, policy.Deadline)
		return load(ctx)
	}
	defer lock.releaseQuietly(ctx)

	// The previous holder may have populated the cache while we waited.
	cached, err = read(ctx)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return cached, nil
	}

	loaded, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if loaded != nil && write != nil {
		if err := write(ctx, loaded); err != nil {
			log.Printf("[Guard] key=%s failed to populate cache: %v", key, err)
		}
	}
	return loaded, nil
}

// WithLock runs action while holding the lock guarding key, making up to
// attempts acquisition attempts separated by sleep.
func (g *Guard) WithLock(ctx context.Context, key string, attempts int, ttl, sleep time.Duration, action func(ctx context.Context) error) error {
	lock, err := g.acquire(ctx, LockKey(key), WaitPolicy{
		Mode:     WaitRetry,
		Attempts: attempts,
		TTL:      ttl,
		Sleep:    sleep,
	})
	if err != nil {
		return err
	}
	defer lock.releaseQuietly(ctx)

	return action(ctx)
}

// acquire returns (nil, nil) only in WaitDeadline mode once the deadline passed.
func (g *Guard) acquire(ctx context.Context, lockKey string, policy WaitPolicy) (*Lock, error) {
	if policy.Mode == WaitRetry {
		attempts := policy.Attempts
		if attempts < 1 {
			attempts = 1
		}
		for attempt := 1; attempt <= attempts; attempt++ {
			lock, err := g.locker.TryAcquire(ctx, lockKey, policy.TTL)
			if err != nil {
				return nil, err
			}
			if lock != nil {
				return lock, nil
			}
			if attempt < attempts {
				if err := sleepCtx(ctx, policy.Sleep); err != nil {
					return nil, err
				}
			}
		}
		return nil, fmt.Errorf("%w: key=%s after %d attempts", apperror.ErrLockTimeout, lockKey, attempts)
	}

	deadline := time.Now().Add(policy.Deadline)
	for {
		lock, err := g.locker.TryAcquire(ctx, lockKey, policy.TTL)
		if err != nil {
			return nil, err
		}
		if lock != nil {
			return lock, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		if err := sleepCtx(ctx, policy.Sleep); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
