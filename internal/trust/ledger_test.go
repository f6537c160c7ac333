package trust

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/campus-carpool/internal/models"
)

func TestPenalize(t *testing.T) {
	u := &models.User{TrustScore: 92}
	Penalize(u)
	assert.Equal(t, 87, u.TrustScore)
	assert.Equal(t, 1, u.Cancellations)
}

func TestPenalize_FloorsAtZero(t *testing.T) {
	u := &models.User{TrustScore: 3, Cancellations: 4}
	Penalize(u)
	assert.Equal(t, 0, u.TrustScore)
	assert.Equal(t, 5, u.Cancellations)
}

func TestReward_CapsAtMax(t *testing.T) {
	u := &models.User{TrustScore: 100, RidesCompleted: 14}
	Reward(u, RewardPoints)
	assert.Equal(t, 100, u.TrustScore)
	assert.Equal(t, 15, u.RidesCompleted)
}

func TestReward_ZeroPointsStillCounts(t *testing.T) {
	u := &models.User{TrustScore: 50}
	Reward(u, 0)
	assert.Equal(t, 50, u.TrustScore)
	assert.Equal(t, 1, u.RidesCompleted)
}

func TestTier(t *testing.T) {
	assert.Equal(t, "excellent", Tier(98))
	assert.Equal(t, "excellent", Tier(90))
	assert.Equal(t, "average", Tier(88))
	assert.Equal(t, "low", Tier(45))
}
