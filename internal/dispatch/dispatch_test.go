package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/models"
)

type fakeConn struct {
	sent   []interface{}
	err    error
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestHub_PushesToSubscribersOfKey(t *testing.T) {
	h := NewHub()
	a, b, other := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Subscribe("ride_1", a)
	unsubscribe := h.Subscribe("ride_1", b)
	h.Subscribe("ride_2", other)

	require.NoError(t, h.Append(context.Background(), "ride_1", models.Message{Text: "hello"}))
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
	assert.Empty(t, other.sent)

	unsubscribe()
	assert.True(t, b.closed)
	assert.Equal(t, 1, h.Subscribers("ride_1"))
}

func TestHub_DropsBrokenSessions(t *testing.T) {
	h := NewHub()
	broken := &fakeConn{err: errors.New("broken pipe")}
	h.Subscribe("ride_1", broken)

	require.NoError(t, h.Append(context.Background(), "ride_1", models.Message{Text: "hello"}))
	assert.True(t, broken.closed)
	assert.Zero(t, h.Subscribers("ride_1"))
}

func TestHub_BacklogThenHeldPushes(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	ctx := context.Background()

	unsubscribe, err := h.SubscribeWithBacklog("ride_1", conn, func() ([]models.Message, error) {
		// Appends landing while the backlog loads: one already in it, one new.
		require.NoError(t, h.Append(ctx, "ride_1", models.Message{ID: "m2", Text: "second"}))
		require.NoError(t, h.Append(ctx, "ride_1", models.Message{ID: "m3", Text: "third"}))
		return []models.Message{{ID: "m1", Text: "first"}, {ID: "m2", Text: "second"}}, nil
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, h.Append(ctx, "ride_1", models.Message{ID: "m4", Text: "fourth"}))

	var ids []string
	for _, v := range conn.sent {
		ids = append(ids, v.(models.Message).ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids)
}

func TestHub_BacklogErrorDropsSession(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	_, err := h.SubscribeWithBacklog("ride_1", conn, func() ([]models.Message, error) {
		return nil, errors.New("redis down")
	})
	require.Error(t, err)
	assert.True(t, conn.closed)
	assert.Zero(t, h.Subscribers("ride_1"))
}

func TestWebhook_PostsEnvelope(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Append(context.Background(), "ride_9", models.Message{ID: "m1", Text: "CONFIRMED", IsSystem: true})
	require.NoError(t, err)
	assert.JSONEq(t, `"ride_9"`, string(got["conversation_key"]))
}

func TestWebhook_ReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Append(context.Background(), "ride_9", models.Message{})
	assert.Error(t, err)
}
