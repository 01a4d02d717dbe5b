package service

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"anoa.com/pointboard/internal/config"
	"anoa.com/pointboard/internal/entity"
	leaderboardDto "anoa.com/pointboard/internal/modules/leaderboard/dto"
	pointsDto "anoa.com/pointboard/internal/modules/points/dto"
	"anoa.com/pointboard/internal/modules/points/repository"
	"anoa.com/pointboard/pkg/apperror"
	"anoa.com/pointboard/pkg/cache"
	"github.com/microcosm-cc/bluemonday"
)

type PointsService interface {
	AddPoints(ctx context.Context, req pointsDto.AddPointsRequest) (*pointsDto.PointResponse, error)
	GetTotal(ctx context.Context, userID string) (*pointsDto.TotalPointsResponse, error)
	GetLeaderboard(ctx context.Context) ([]leaderboardDto.LeaderboardEntry, error)
	ListRecords(ctx context.Context, userID string) ([]pointsDto.PointResponse, error)
	UpdateReason(ctx context.Context, id uint64, req pointsDto.UpdateReasonRequest) (*pointsDto.UpdateReasonResponse, error)
	DeleteUser(ctx context.Context, userID string) error
}

// LeaderboardReader serves the cached leaderboard.
type LeaderboardReader interface {
	GetLeaderboard(ctx context.Context) ([]leaderboardDto.LeaderboardEntry, error)
}

type pointsService struct {
	tx          repository.Transactor
	ledger      repository.LedgerRepository
	counter     repository.CounterRepository
	totals      repository.TotalCache
	guard       *cache.Guard
	updater     *CounterUpdater
	pipeline    *CommitPipeline
	leaderboard LeaderboardReader
	policy      cache.WaitPolicy
	sanitizer   *bluemonday.Policy
}

func NewPointsService(
	tx repository.Transactor,
	ledger repository.LedgerRepository,
	counter repository.CounterRepository,
	totals repository.TotalCache,
	guard *cache.Guard,
	pipeline *CommitPipeline,
	leaderboard LeaderboardReader,
	cfg config.PointsConfig,
) PointsService {
	return &pointsService{
		tx:          tx,
		ledger:      ledger,
		counter:     counter,
		totals:      totals,
		guard:       guard,
		updater:     NewCounterUpdater(cfg.CASMaxAttempts, cfg.CASBackoff),
		pipeline:    pipeline,
		leaderboard: leaderboard,
		policy:      WaitPolicyFromConfig(cfg),
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

// WaitPolicyFromConfig builds the read-path wait policy.
func WaitPolicyFromConfig(cfg config.PointsConfig) cache.WaitPolicy {
	mode := cache.WaitDeadline
	if cfg.LockWaitMode == config.WaitModeRetry {
		mode = cache.WaitRetry
	}
	return cache.WaitPolicy{
		Mode:     mode,
		Attempts: cfg.LockRetry,
		TTL:      cfg.LockTTL,
		Sleep:    cfg.LockSleep,
		Deadline: cfg.LockWait,
	}
}

// LockSettingsFromConfig builds the invalidation lock budget.
func LockSettingsFromConfig(cfg config.PointsConfig) LockSettings {
	return LockSettings{
		Attempts: cfg.LockRetry,
		TTL:      cfg.LockTTL,
		Sleep:    cfg.LockSleep,
	}
}

func (s *pointsService) AddPoints(ctx context.Context, req pointsDto.AddPointsRequest) (*pointsDto.PointResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", apperror.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", apperror.ErrValidation)
	}
	reason := s.cleanReason(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", apperror.ErrValidation)
	}

	record := &entity.PointRecord{
		UserID: userID,
		Amount: req.Amount,
		Reason: reason,
	}
	var total int64
	err := s.tx.WithinTransaction(ctx, func(ledger repository.LedgerRepository, counter repository.CounterRepository) error {
		if err := ledger.Append(ctx, record); err != nil {
			return fmt.Errorf("append ledger record: %w", err)
		}
		newTotal, _, err := s.updater.Increment(ctx, counter, userID, req.Amount)
		if err != nil {
			return err
		}
		total = newTotal
		return nil
	})
	if err != nil {
		log.Printf("[PointsService][AddPoints] user=%s amount=%d failed: %v", userID, req.Amount, err)
		return nil, err
	}

	resp := &pointsDto.PointResponse{
		ID:        record.ID,
		UserID:    record.UserID,
		Amount:    record.Amount,
		Reason:    record.Reason,
		Total:     &total,
		CreatedAt: record.CreatedAt,
	}

	// committed, run side effects
	err = s.pipeline.PointsChanged(ctx, PointsChangedEvent{
		UserID:    record.UserID,
		PointID:   record.ID,
		Amount:    record.Amount,
		Total:     total,
		Reason:    record.Reason,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *pointsService) GetTotal(ctx context.Context, userID string) (*pointsDto.TotalPointsResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", apperror.ErrValidation)
	}

	read := func(ctx context.Context) (*repository.CachedTotal, error) {
		return s.totals.Get(ctx, userID)
	}
	write := func(ctx context.Context, v *repository.CachedTotal) error {
		return s.totals.Set(ctx, userID, v)
	}
	load := func(ctx context.Context) (*repository.CachedTotal, error) {
		row, err := s.counter.FindByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load counter for %s: %w", userID, err)
		}
		// unknown users are cached as zero
		cached := &repository.CachedTotal{UserID: userID, InsertedAt: time.Now().UTC()}
		if row != nil {
			cached.Total = row.TotalPoints
			cached.Version = row.Version
		}
		return cached, nil
	}

	cached, err := cache.GetOrLoad(ctx, s.guard, s.totals.Key(userID), read, write, load, s.policy)
	if err != nil {
		return nil, err
	}
	return &pointsDto.TotalPointsResponse{UserID: userID, Total: cached.Total}, nil
}

func (s *pointsService) GetLeaderboard(ctx context.Context) ([]leaderboardDto.LeaderboardEntry, error) {
	return s.leaderboard.GetLeaderboard(ctx)
}

func (s *pointsService) ListRecords(ctx context.Context, userID string) ([]pointsDto.PointResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", apperror.ErrValidation)
	}

	records, err := s.ledger.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]pointsDto.PointResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, pointsDto.PointResponse{
			ID:        r.ID,
			UserID:    r.UserID,
			Amount:    r.Amount,
			Reason:    r.Reason,
			CreatedAt: r.CreatedAt,
		})
	}
	return responses, nil
}

func (s *pointsService) UpdateReason(ctx context.Context, id uint64, req pointsDto.UpdateReasonRequest) (*pointsDto.UpdateReasonResponse, error) {
	reason := s.cleanReason(req.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", apperror.ErrValidation)
	}

	record, err := s.ledger.UpdateReason(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	return &pointsDto.UpdateReasonResponse{
		ID:        record.ID,
		UserID:    record.UserID,
		Amount:    record.Amount,
		Reason:    record.Reason,
		CreatedAt: record.CreatedAt,
	}, nil
}

func (s *pointsService) DeleteUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: userId is required", apperror.ErrValidation)
	}

	var removed int64
	err := s.tx.WithinTransaction(ctx, func(ledger repository.LedgerRepository, counter repository.CounterRepository) error {
		n, err := ledger.DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("delete ledger records: %w", err)
		}
		removed = n
		return counter.Delete(ctx, userID)
	})
	if err != nil {
		log.Printf("[PointsService][DeleteUser] user=%s failed: %v", userID, err)
		return err
	}

	s.pipeline.UserDeleted(ctx, userID)
	log.Printf("[PointsService][DeleteUser] user=%s removed %d records", userID, removed)
	return nil
}

func (s *pointsService) cleanReason(reason string) string {
	sanitized := s.sanitizer.Sanitize(reason)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}
