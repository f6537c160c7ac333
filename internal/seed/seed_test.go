package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/storage"
)

func TestDemo_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	index := geo.NewIndex()
	log := messaging.NewMemoryLog()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, Demo(ctx, store, index, log, now))
	require.NoError(t, Demo(ctx, store, index, log, now))

	rides, err := store.ListRides(ctx)
	require.NoError(t, err)
	assert.Len(t, rides, 7)

	me, err := store.GetUser(ctx, DemoUserID)
	require.NoError(t, err)
	assert.Equal(t, 92, me.TrustScore)

	msgs, err := log.Messages(ctx, models.DirectConversation("u_1"))
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	ids, err := index.Nearby(ctx, models.Coord{Lat: 32.7292, Lng: -97.1152}, 2000, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"r_2"}, ids)
}

func TestDemo_KeepsExistingUsers(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.PutUser(ctx, models.User{ID: "u_2", Name: "Mike Chen", TrustScore: 60}))
	require.NoError(t, Demo(ctx, store, nil, nil, time.Now()))

	u, err := store.GetUser(ctx, "u_2")
	require.NoError(t, err)
	assert.Equal(t, 60, u.TrustScore)
}
