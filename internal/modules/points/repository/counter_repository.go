package repository

import (
	"context"

	"anoa.com/pointboard/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CounterRepository is the version-gated per-user total. Rows are never
// blind-written: they are created with InsertIfAbsent and changed with
// ConditionalUpdate only.
type CounterRepository interface {
	// FindByUser returns nil, nil when the user has no row yet.
	FindByUser(ctx context.Context, userID string) (*entity.UserPoints, error)
	// InsertIfAbsent creates the row at version 1. It reports false when
	// another writer created it first.
	InsertIfAbsent(ctx context.Context, userID string, total int64) (bool, error)
	// ConditionalUpdate adds delta and bumps the version only if the stored
	// version equals expectedVersion. It returns the number of rows changed.
	ConditionalUpdate(ctx context.Context, userID string, delta, expectedVersion int64) (int64, error)
	Delete(ctx context.Context, userID string) error
	// FindTop orders by total descending, ties broken by user id.
	FindTop(ctx context.Context, limit int) ([]entity.UserPoints, error)
}

type counterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) CounterRepository {
	return &counterRepository{db: db}
}

func (r *counterRepository) FindByUser(ctx context.Context, userID string) (*entity.UserPoints, error) {
	// Find with a slice avoids GORM's "record not found" log noise from First()
	var rows []entity.UserPoints
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *counterRepository) InsertIfAbsent(ctx context.Context, userID string, total int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&entity.UserPoints{
			UserID:      userID,
			TotalPoints: total,
			Version:     1,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *counterRepository) ConditionalUpdate(ctx context.Context, userID string, delta, expectedVersion int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.UserPoints{}).
		Where("user_id = ? AND version = ?", userID, expectedVersion).
		Updates(map[string]interface{}{
			"total_points": gorm.Expr("total_points + ?", delta),
			"version":      gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

func (r *counterRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.UserPoints{}).Error
}

func (r *counterRepository) FindTop(ctx context.Context, limit int) ([]entity.UserPoints, error) {
	var rows []entity.UserPoints
	if limit <= 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).
		Order("total_points DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
