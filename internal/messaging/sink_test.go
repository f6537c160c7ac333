package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/models"
)

func msg(id, text string) models.Message {
	return models.Message{ID: id, SenderID: "u_1", Text: text, Timestamp: time.Unix(1700000000, 0).UTC()}
}

func TestMemoryLog_KeepsOrderPerKey(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLog()
	require.NoError(t, l.Append(ctx, "ride_a", msg("1", "first")))
	require.NoError(t, l.Append(ctx, "ride_b", msg("2", "other")))
	require.NoError(t, l.Append(ctx, "ride_a", msg("3", "second")))

	got, err := l.Messages(ctx, "ride_a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
}

type failingSink struct{ err error }

func (f failingSink) Append(context.Context, string, models.Message) error { return f.err }

func TestFanout_AppendsEverywhereAndJoinsErrors(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemoryLog(), NewMemoryLog()
	boom := errors.New("broker down")
	f := Fanout{a, failingSink{boom}, nil, b}

	err := f.Append(ctx, "ride_x", msg("1", "hi"))
	assert.ErrorIs(t, err, boom)

	for _, l := range []*MemoryLog{a, b} {
		got, _ := l.Messages(ctx, "ride_x")
		assert.Len(t, got, 1)
	}
}

// fakeList implements ListAppender over an in-memory map.
type fakeList struct{ lists map[string][]string }

func (f *fakeList) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeList) LRange(ctx context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(f.lists[key])
	return cmd
}

func TestRedisLog_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fl := &fakeList{lists: map[string][]string{}}
	l := NewRedisLog(fl)
	require.NoError(t, l.Append(ctx, "ride_a", msg("1", "first")))
	require.NoError(t, l.Append(ctx, "ride_a", msg("2", "second")))
	assert.Len(t, fl.lists["carpool:chat:ride_a"], 2)

	got, err := l.Messages(ctx, "ride_a")
	require.NoError(t, err)
	assert.Equal(t, []models.Message{msg("1", "first"), msg("2", "second")}, got)
}

func TestDecodeEnvelope(t *testing.T) {
	b, err := json.Marshal(Envelope{ConversationKey: "ride_a", Message: msg("1", "hi")})
	require.NoError(t, err)
	e, err := DecodeEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, "ride_a", e.ConversationKey)
	assert.Equal(t, "hi", e.Message.Text)
}
