package repository

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/pointboard/internal/entity"
	"anoa.com/pointboard/pkg/apperror"
	"gorm.io/gorm"
)

type LedgerRepository interface {
	Append(ctx context.Context, record *entity.PointRecord) error
	FindByUser(ctx context.Context, userID string) ([]entity.PointRecord, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// UpdateReason returns apperror.ErrNotFound for an unknown id.
	UpdateReason(ctx context.Context, id uint64, reason string) (*entity.PointRecord, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, record *entity.PointRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *ledgerRepository) FindByUser(ctx context.Context, userID string) ([]entity.PointRecord, error) {
	var records []entity.PointRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

func (r *ledgerRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.PointRecord{})
	return result.RowsAffected, result.Error
}

func (r *ledgerRepository) UpdateReason(ctx context.Context, id uint64, reason string) (*entity.PointRecord, error) {
	var record entity.PointRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("point record %d: %w", id, apperror.ErrNotFound)
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&record).Update("reason", reason).Error; err != nil {
		return nil, err
	}
	record.Reason = reason
	return &record, nil
}
