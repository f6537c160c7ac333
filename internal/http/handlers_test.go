package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/dispatch"
	"github.com/example/campus-carpool/internal/eta"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/ride"
	"github.com/example/campus-carpool/internal/storage"
)

type fixedRoutes struct{}

func (fixedRoutes) Estimate(context.Context, models.Coord, models.Coord) eta.Route {
	return eta.Route{DistanceMiles: 20, DurationLabel: "30 min", TrafficLevel: models.TrafficLow}
}

type testAPI struct {
	srv   *httptest.Server
	store *storage.MemoryStore
	hub   *dispatch.Hub
	eng   *ride.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	home := models.Location{Name: "UTA", Lat: 32.7292, Lng: -97.1152}
	for _, u := range []models.User{
		{ID: "host", Name: "Alex Driver", TrustScore: 95, Location: home},
		{ID: "p1", Name: "Sarah Chen", TrustScore: 72, Location: home},
	} {
		require.NoError(t, store.PutUser(ctx, u))
	}
	log := messaging.NewMemoryLog()
	hub := dispatch.NewHub()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := &ride.Engine{
		Store:    store,
		Sink:     messaging.Fanout{log, hub},
		Routes:   fixedRoutes{},
		AckDelay: time.Millisecond,
		NewCode:  func() string { return "4321" },
		Logger:   quiet,
	}
	s := NewServer(Deps{Engine: eng, Messages: log, Hub: hub, Logger: quiet})
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		eng.Wait()
	})
	return &testAPI{srv: ts, store: store, hub: hub, eng: eng}
}

func (a *testAPI) do(t *testing.T, method, path, user string, body any, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rdr)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)

	var created models.RideView
	code := api.do(t, http.MethodPost, "/api/v1/rides", "host",
		map[string]any{"type": "OFFER", "from": "UTA", "to": "Dallas", "time": "5:00 PM", "seats": 1}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "host", created.HostID)
	assert.Equal(t, 16.0, created.Price)
	id := created.ID

	var v models.RideView
	require.Equal(t, http.StatusAccepted, api.do(t, http.MethodPost, "/api/v1/rides/"+id+"/book", "p1", nil, &v))
	assert.True(t, v.IsPendingForCurrentUser)
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/rides/"+id+"/confirm", "p1", nil, &v))
	assert.Equal(t, models.StatusBooked, v.Status)
	require.NotNil(t, v.Booking)
	assert.Equal(t, "4321", v.Booking.VerificationCode)

	var hostView models.RideView
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/rides/"+id, "host", nil, &hostView))
	assert.Empty(t, hostView.Booking.VerificationCode)

	var errBody errorEnvelope
	code = api.do(t, http.MethodPost, "/api/v1/rides/"+id+"/complete", "host", map[string]string{"code": "1111"}, &errBody)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "verification_failed", errBody.Error.Code)

	var c ride.Completion
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/rides/"+id+"/complete", "host", map[string]string{"code": "4321"}, &c))
	assert.Equal(t, 1, c.PointsAwarded)
	assert.Equal(t, models.StatusCompleted, c.Ride.Status)

	code = api.do(t, http.MethodPost, "/api/v1/rides/"+id+"/cancel", "host", nil, &errBody)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "invalid_state", errBody.Error.Code)

	var u userResponse
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/users/host", "", nil, &u))
	assert.Equal(t, 96, u.TrustScore)
	assert.Equal(t, "excellent", u.TrustTier)
}

func TestErrorMapping(t *testing.T) {
	api := newTestAPI(t)
	var e errorEnvelope

	assert.Equal(t, http.StatusUnauthorized, api.do(t, http.MethodPost, "/api/v1/rides", "", map[string]any{"from": "UTA"}, &e))
	assert.Equal(t, "unauthenticated", e.Error.Code)

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodPost, "/api/v1/rides", "host", map[string]any{"from": "UTA", "to": "Dallas"}, &e))
	assert.Equal(t, "validation_failed", e.Error.Code)

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodPost, "/api/v1/rides", "host", map[string]any{"bogus": 1}, &e))

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/v1/rides/nope", "", nil, &e))
	assert.Equal(t, "not_found", e.Error.Code)

	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodGet, "/api/v1/rides/nearby?lat=x&lng=1", "", nil, &e))
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodGet, "/api/v1/rides?filter=weird", "", nil, &e))
}

func TestNearbyAndList(t *testing.T) {
	api := newTestAPI(t)
	var created models.RideView
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/rides", "host",
		map[string]any{"type": "OFFER", "from": "UTA", "to": "Dallas", "time": "Now"}, &created))

	var out struct {
		Rides []models.RideView `json:"rides"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/rides/nearby?lat=32.73&lng=-97.11&radius=5000", "p1", nil, &out))
	require.Len(t, out.Rides, 1)
	assert.Equal(t, created.ID, out.Rides[0].ID)

	out.Rides = nil
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/rides?filter=mine", "host", nil, &out))
	assert.Len(t, out.Rides, 1)
}

func TestSuggestAndParse(t *testing.T) {
	api := newTestAPI(t)
	var s struct {
		Places []models.Location `json:"places"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/places/suggest?q=plano", "", nil, &s))
	require.Len(t, s.Places, 1)
	assert.Equal(t, "Plano", s.Places[0].Name)

	var d map[string]any
	require.Equal(t, http.StatusOK, api.do(t, http.MethodPost, "/api/v1/rides/parse", "", map[string]string{"text": "driving to Frisco"}, &d))
	assert.Equal(t, "OFFER", d["type"])
}

func TestConversationsAndWebsocketPush(t *testing.T) {
	api := newTestAPI(t)
	key := models.DirectConversation("p1")

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws/conversations/" + key
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return api.hub.Subscribers(key) == 1 }, time.Second, 5*time.Millisecond)

	var m models.Message
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/v1/conversations/"+key+"/messages", "host", map[string]string{"text": "On my way"}, &m))
	assert.Equal(t, "host", m.SenderID)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var pushed models.Message
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, m.ID, pushed.ID)
	assert.Equal(t, "On my way", pushed.Text)

	var got struct {
		Messages []models.Message `json:"messages"`
	}
	require.Equal(t, http.StatusOK, api.do(t, http.MethodGet, "/api/v1/conversations/"+key+"/messages", "", nil, &got))
	require.Len(t, got.Messages, 1)

	var e errorEnvelope
	assert.Equal(t, http.StatusUnprocessableEntity, api.do(t, http.MethodPost, "/api/v1/conversations/"+key+"/messages", "host", map[string]string{"text": "  "}, &e))
}

func TestStatusFor(t *testing.T) {
	status, code := statusFor(models.ErrConflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "conflict", code)
	status, _ = statusFor(io.EOF)
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	resp, err := http.Get(api.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}
