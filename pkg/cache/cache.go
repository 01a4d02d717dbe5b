// Package cache holds the shared Redis-backed cache, the token-checked
// distributed lock built on it, and the single-flight cache-aside Guard.
package cache

import (
	"context"
	"time"
)

// SortedEntry is one member of a sorted structure such as the leaderboard.
type SortedEntry struct {
	Member string
	Score  float64
}

// Cache is the subset of a shared key/value store the services rely on.
// Get reports a miss with ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// SetIfAbsent stores value only when key does not exist.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// DeleteIfEquals removes key only while it still holds value.
	DeleteIfEquals(ctx context.Context, key, value string) (bool, error)

	// TopN returns up to n members ordered by score, highest first.
	TopN(ctx context.Context, key string, n int) ([]SortedEntry, error)
	// ReplaceSorted drops key and repopulates it with entries in one atomic step.
	ReplaceSorted(ctx context.Context, key string, entries []SortedEntry) error
	RemoveMember(ctx context.Context, key, member string) error
}
