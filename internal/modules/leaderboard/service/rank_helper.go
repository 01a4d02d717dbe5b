package service

import (
	"math"

	leaderboardDto "anoa.com/pointboard/internal/modules/leaderboard/dto"
)

// Rank thresholds on the all-time total.
const (
	PointsLegenda   = 20000
	PointsSepuh     = 8000
	PointsTokoh     = 3000
	PointsAktivis   = 600
	PointsWarga     = 100
	PointsPendatang = 0
)

type rankStep struct {
	name    string
	minimum int64
}

// ordered highest first
var rankLadder = []rankStep{
	{"Legenda", PointsLegenda},
	{"Sepuh", PointsSepuh},
	{"Tokoh", PointsTokoh},
	{"Aktivis", PointsAktivis},
	{"Warga", PointsWarga},
	{"Pendatang", PointsPendatang},
}

// GetTierStatus maps a total onto the rank ladder.
func GetTierStatus(total int64) leaderboardDto.TierStatus {
	if total >= PointsLegenda {
		return leaderboardDto.TierStatus{
			RankName:     "Legenda",
			NextRank:     "Max Level",
			TargetPoints: PointsLegenda,
			Progress:     100,
		}
	}

	for i := 1; i < len(rankLadder); i++ {
		step := rankLadder[i]
		if total < step.minimum {
			continue
		}
		next := rankLadder[i-1]
		var progress float64
		if total > 0 {
			progress = float64(total) / float64(next.minimum) * 100
		}
		return leaderboardDto.TierStatus{
			RankName:     step.name,
			NextRank:     next.name,
			TargetPoints: next.minimum,
			Progress:     math.Round(progress*100) / 100,
		}
	}

	// negative totals cannot happen with positive-only amounts
	return leaderboardDto.TierStatus{RankName: "Pendatang", NextRank: "Warga", TargetPoints: PointsWarga}
}
