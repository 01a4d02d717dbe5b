package service

import (
	"context"
	"fmt"

	"anoa.com/pointboard/internal/entity"
	leaderboardDto "anoa.com/pointboard/internal/modules/leaderboard/dto"
	leaderboardRepo "anoa.com/pointboard/internal/modules/leaderboard/repository"
)

// TopReader reads the highest totals from the durable counter.
type TopReader interface {
	FindTop(ctx context.Context, limit int) ([]entity.UserPoints, error)
}

type LeaderboardService interface {
	// GetLeaderboard reads the cached snapshot, highest total first.
	GetLeaderboard(ctx context.Context) ([]leaderboardDto.LeaderboardEntry, error)
	// Refresh rebuilds the snapshot from the counter in one atomic replace.
	Refresh(ctx context.Context) error
	// RemoveUser drops one user without waiting for the next refresh.
	RemoveUser(ctx context.Context, userID string) error
}

type leaderboardService struct {
	repo     leaderboardRepo.LeaderboardRepository
	counter  TopReader
	size     int
	readSize int
}

func NewLeaderboardService(repo leaderboardRepo.LeaderboardRepository, counter TopReader, size, readSize int) LeaderboardService {
	return &leaderboardService{
		repo:     repo,
		counter:  counter,
		size:     size,
		readSize: readSize,
	}
}

func (s *leaderboardService) GetLeaderboard(ctx context.Context) ([]leaderboardDto.LeaderboardEntry, error) {
	scores, err := s.repo.Top(ctx, s.readSize)
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}

	entries := make([]leaderboardDto.LeaderboardEntry, 0, len(scores))
	for i, score := range scores {
		entries = append(entries, leaderboardDto.LeaderboardEntry{
			Position: i + 1,
			UserID:   score.UserID,
			Total:    score.Total,
			Tier:     GetTierStatus(score.Total),
		})
	}
	return entries, nil
}

func (s *leaderboardService) Refresh(ctx context.Context) error {
	rows, err := s.counter.FindTop(ctx, s.size)
	if err != nil {
		return fmt.Errorf("read top %d totals: %w", s.size, err)
	}

	scores := make([]leaderboardRepo.Score, 0, len(rows))
	for _, row := range rows {
		scores = append(scores, leaderboardRepo.Score{UserID: row.UserID, Total: row.TotalPoints})
	}
	if err := s.repo.Replace(ctx, scores); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}
	return nil
}

func (s *leaderboardService) RemoveUser(ctx context.Context, userID string) error {
	return s.repo.Remove(ctx, userID)
}
