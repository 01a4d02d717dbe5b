package entity

import "time"

// PointRecord is one ledger entry. Everything but Reason is immutable once written.
type PointRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"size:64;not null;index:idx_points_user_id" json:"user_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:255;not null" json:"reason"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PointRecord) TableName() string {
	return "points"
}

// UserPoints is the per-user counter. Version starts at 1 and is bumped by
// exactly one on every conditional update.
type UserPoints struct {
	UserID      string    `gorm:"primaryKey;size:64" json:"user_id"`
	TotalPoints int64     `gorm:"not null;default:0;index:idx_user_points_total" json:"total_points"`
	Version     int64     `gorm:"not null;default:1" json:"version"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserPoints) TableName() string {
	return "user_points"
}
