package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anoa.com/pointboard/pkg/apperror"
	"anoa.com/pointboard/pkg/cache"
)

const totalKeyPrefix = "points:total:"

// CachedTotal mirrors a user's counter row in the shared cache.
type CachedTotal struct {
	UserID     string    `json:"user_id"`
	Total      int64     `json:"total"`
	Version    int64     `json:"version,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
}

type TotalCache interface {
	Key(userID string) string
	// Get returns nil, nil on a miss and wraps apperror.ErrCacheDecode when
	// the stored payload cannot be parsed.
	Get(ctx context.Context, userID string) (*CachedTotal, error)
	Set(ctx context.Context, userID string, total *CachedTotal) error
	Delete(ctx context.Context, userID string) error
}

type totalCache struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewTotalCache(c cache.Cache, ttl time.Duration) TotalCache {
	return &totalCache{cache: c, ttl: ttl}
}

func (t *totalCache) Key(userID string) string {
	return totalKeyPrefix + userID
}

func (t *totalCache) Get(ctx context.Context, userID string) (*CachedTotal, error) {
	raw, ok, err := t.cache.Get(ctx, t.Key(userID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var cached CachedTotal
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("%w: key=%s: %v", apperror.ErrCacheDecode, t.Key(userID), err)
	}
	return &cached, nil
}

func (t *totalCache) Set(ctx context.Context, userID string, total *CachedTotal) error {
	if total == nil {
		return nil
	}
	payload, err := json.Marshal(total)
	if err != nil {
		return fmt.Errorf("encode cached total: %w", err)
	}
	return t.cache.Set(ctx, t.Key(userID), string(payload), t.ttl)
}

func (t *totalCache) Delete(ctx context.Context, userID string) error {
	return t.cache.Delete(ctx, t.Key(userID))
}
