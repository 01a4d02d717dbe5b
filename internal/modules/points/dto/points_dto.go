package dto

import "time"

type AddPointsRequest struct {
	UserID string `json:"userId" binding:"required,max=64"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	Reason string `json:"reason" binding:"required,max=255"`
}

type UpdateReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=255"`
}

// PointResponse is one ledger record. Total is the user's running total right
// after this record was applied and is only set by AddPoints.
type PointResponse struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	Total     *int64    `json:"total,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type TotalPointsResponse struct {
	UserID string `json:"user_id"`
	Total  int64  `json:"total"`
}

type UpdateReasonResponse struct {
	ID        uint64    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPointsEvent is published on every committed points change.
type UserPointsEvent struct {
	UserID    string    `json:"user_id"`
	PointID   uint64    `json:"point_id"`
	Amount    int64     `json:"amount"`
	Total     int64     `json:"total"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
