package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Lock is a held distributed lock. Ownership is proven by Token, never by the
// key merely existing.
type Lock struct {
	Key   string
	Token string
	TTL   time.Duration

	cache    Cache
	released bool
}

type Locker struct {
	cache Cache
}

func NewLocker(c Cache) *Locker {
	return &Locker{cache: c}
}

// TryAcquire makes a single attempt. A nil Lock with a nil error means someone
// else holds the key.
func (l *Locker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := uuid.NewString()
	ok, err := l.cache.SetIfAbsent(ctx, key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return &Lock{Key: key, Token: token, TTL: ttl, cache: l.cache}, nil
}

// Release deletes the key only if it still carries this lock's token, so a
// lock that expired and was re-acquired by another owner is left untouched.
// Releasing twice is a no-op.
func (lk *Lock) Release(ctx context.Context) (bool, error) {
	if lk == nil || lk.released {
		return false, nil
	}
	lk.released = true

	ok, err := lk.cache.DeleteIfEquals(ctx, lk.Key, lk.Token)
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", lk.Key, err)
	}
	return ok, nil
}

// releaseQuietly is used from defer paths; the TTL cleans up whatever a failed
// release leaves behind.
func (lk *Lock) releaseQuietly(ctx context.Context) {
	if _, err := lk.Release(context.WithoutCancel(ctx)); err != nil {
		log.Printf("[Lock] failed to release lock key=%s: %v", lk.Key, err)
	}
}
