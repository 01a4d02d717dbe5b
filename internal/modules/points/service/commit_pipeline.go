package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	pointsDto "anoa.com/pointboard/internal/modules/points/dto"
	"anoa.com/pointboard/internal/modules/points/repository"
	"anoa.com/pointboard/pkg/apperror"
	"anoa.com/pointboard/pkg/cache"
)

// EventPublisher is the broker side of the pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LeaderboardPruner drops a single user from the cached leaderboard.
type LeaderboardPruner interface {
	RemoveUser(ctx context.Context, userID string) error
}

// PointsChangedEvent describes a committed ledger append.
type PointsChangedEvent struct {
	UserID    string
	PointID   uint64
	Amount    int64
	Total     int64
	Reason    string
	CreatedAt time.Time
}

// LockSettings is the retry budget used when invalidating under the load lock.
type LockSettings struct {
	Attempts int
	TTL      time.Duration
	Sleep    time.Duration
}

// CommitPipeline runs the side effects of a write. Callers invoke it only
// after the unit of work returned without error.
type CommitPipeline struct {
	guard     *cache.Guard
	totals    repository.TotalCache
	publisher EventPublisher
	pruner    LeaderboardPruner
	topic     string
	lock      LockSettings
}

func NewCommitPipeline(guard *cache.Guard, totals repository.TotalCache, publisher EventPublisher, pruner LeaderboardPruner, topic string, lock LockSettings) *CommitPipeline {
	return &CommitPipeline{
		guard:     guard,
		totals:    totals,
		publisher: publisher,
		pruner:    pruner,
		topic:     topic,
		lock:      lock,
	}
}

// PointsChanged invalidates the cached total and publishes a UserPointsEvent.
// Only a publish failure is returned.
func (p *CommitPipeline) PointsChanged(ctx context.Context, event PointsChangedEvent) error {
	if err := p.invalidate(ctx, event.UserID); err != nil {
		log.Printf("[CommitPipeline][PointsChanged] user=%s cache invalidation failed, ttl will expire it: %v", event.UserID, err)
	}

	payload, err := json.Marshal(pointsDto.UserPointsEvent{
		UserID:    event.UserID,
		PointID:   event.PointID,
		Amount:    event.Amount,
		Total:     event.Total,
		Reason:    event.Reason,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", apperror.ErrNotificationPublish, err)
	}

	if p.publisher == nil {
		return nil
	}
	if err := p.publisher.Publish(ctx, p.topic, payload); err != nil {
		return fmt.Errorf("%w: topic=%s user=%s: %v", apperror.ErrNotificationPublish, p.topic, event.UserID, err)
	}
	return nil
}

// UserDeleted invalidates the cached total and prunes the user from the
// leaderboard. Failures are logged; the next refresh rebuilds the board.
func (p *CommitPipeline) UserDeleted(ctx context.Context, userID string) {
	if err := p.invalidate(ctx, userID); err != nil {
		log.Printf("[CommitPipeline][UserDeleted] user=%s cache invalidation failed: %v", userID, err)
	}
	if p.pruner == nil {
		return
	}
	if err := p.pruner.RemoveUser(ctx, userID); err != nil {
		log.Printf("[CommitPipeline][UserDeleted] user=%s leaderboard prune failed: %v", userID, err)
	}
}

func (p *CommitPipeline) invalidate(ctx context.Context, userID string) error {
	return p.guard.WithLock(ctx, p.totals.Key(userID), p.lock.Attempts, p.lock.TTL, p.lock.Sleep, func(ctx context.Context) error {
		return p.totals.Delete(ctx, userID)
	})
}
