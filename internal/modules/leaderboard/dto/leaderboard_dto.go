package dto

// TierStatus places a total on the rank ladder.
type TierStatus struct {
	RankName     string  `json:"rank_name"`
	NextRank     string  `json:"next_rank"`
	TargetPoints int64   `json:"target_points"`
	Progress     float64 `json:"progress"` // 0-100 towards NextRank
}

// LeaderboardEntry represents a single user entry in the leaderboard.
type LeaderboardEntry struct {
	Position int        `json:"position"` // 1-based position in leaderboard
	UserID   string     `json:"user_id"`
	Total    int64      `json:"total"`
	Tier     TierStatus `json:"tier"`
}
