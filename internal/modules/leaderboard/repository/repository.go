package repository

import (
	"context"

	"anoa.com/pointboard/pkg/cache"
)

const LeaderboardKey = "points:leaderboard"

type Score struct {
	UserID string
	Total  int64
}

// LeaderboardRepository is the cached snapshot. It is only written by a full
// Replace or a single-member Remove.
type LeaderboardRepository interface {
	Top(ctx context.Context, n int) ([]Score, error)
	Replace(ctx context.Context, scores []Score) error
	Remove(ctx context.Context, userID string) error
}

type leaderboardRepository struct {
	cache cache.Cache
	key   string
}

func NewLeaderboardRepository(c cache.Cache) LeaderboardRepository {
	return &leaderboardRepository{cache: c, key: LeaderboardKey}
}

func (r *leaderboardRepository) Top(ctx context.Context, n int) ([]Score, error) {
	entries, err := r.cache.TopN(ctx, r.key, n)
	if err != nil {
		return nil, err
	}
	scores := make([]Score, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, Score{UserID: e.Member, Total: int64(e.Score)})
	}
	return scores, nil
}

func (r *leaderboardRepository) Replace(ctx context.Context, scores []Score) error {
	entries := make([]cache.SortedEntry, 0, len(scores))
	for _, s := range scores {
		entries = append(entries, cache.SortedEntry{Member: s.UserID, Score: float64(s.Total)})
	}
	return r.cache.ReplaceSorted(ctx, r.key, entries)
}

func (r *leaderboardRepository) Remove(ctx context.Context, userID string) error {
	return r.cache.RemoveMember(ctx, r.key, userID)
}
