// Package trust holds the reputation rules applied to users by the ride
// lifecycle engine. Nothing else mutates trust scores or ride counters.
package trust

import "github.com/example/campus-carpool/internal/models"

const (
	MaxScore      = 100
	PenaltyPoints = 5
	RewardPoints  = 1
)

// Penalize applies a cancellation: score drops by PenaltyPoints, floored at 0,
// and the cancellation counter grows by one.
func Penalize(u *models.User) {
	u.TrustScore = clamp(u.TrustScore - PenaltyPoints)
	u.Cancellations++
}

// Reward applies a verified completion. points may be 0 when the frequency
// cap withheld the award; the completion still counts.
func Reward(u *models.User, points int) {
	if points < 0 {
		points = 0
	}
	u.TrustScore = clamp(u.TrustScore + points)
	u.RidesCompleted++
}

// Tier buckets a score the way the profile badge does.
func Tier(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "average"
	default:
		return "low"
	}
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
