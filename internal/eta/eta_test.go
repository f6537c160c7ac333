package eta

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/models"
)

var (
	uta    = models.Coord{Lat: 32.7292, Lng: -97.1152}
	dallas = models.Coord{Lat: 32.7767, Lng: -96.7970}
)

func osrmServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-97.115200,32.729200;-96.797000,32.776700", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("overview"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOSRMClient_Route(t *testing.T) {
	srv := osrmServer(t, `{"code":"Ok","routes":[{"distance":32186.9,"duration":1800,"geometry":{"coordinates":[[-97.1152,32.7292],[-96.797,32.7767]]}}]}`)
	c := NewOSRMClient(srv.URL)
	c.Traffic = func() float64 { return 1.2 }

	r, err := c.Route(context.Background(), uta, dallas)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, r.DistanceMiles, 0.01)
	assert.Equal(t, "36 min", r.DurationLabel)
	assert.Equal(t, models.TrafficModerate, r.TrafficLevel)
	assert.Equal(t, [][2]float64{{32.7292, -97.1152}, {32.7767, -96.797}}, r.Geometry)
}

func TestOSRMClient_NoRoute(t *testing.T) {
	srv := osrmServer(t, `{"code":"NoRoute","routes":[]}`)
	_, err := NewOSRMClient(srv.URL).Route(context.Background(), uta, dallas)
	assert.ErrorIs(t, err, models.ErrUpstreamUnavailable)
}

func TestClassifyTraffic(t *testing.T) {
	assert.Equal(t, models.TrafficLow, classifyTraffic(1.05))
	assert.Equal(t, models.TrafficModerate, classifyTraffic(1.11))
	assert.Equal(t, models.TrafficHeavy, classifyTraffic(1.29))
}

func TestFallback(t *testing.T) {
	r := Fallback(uta, dallas)
	want := geo.HaversineMiles(uta, dallas) * 1.4
	assert.InDelta(t, want, r.DistanceMiles, 1e-9)
	assert.Equal(t, "~53 min", r.DurationLabel)
	assert.Equal(t, models.TrafficLow, r.TrafficLevel)
	assert.Nil(t, r.Geometry)
}

type fakeClient struct {
	calls int
	route Route
	err   error
}

func (f *fakeClient) Route(context.Context, models.Coord, models.Coord) (Route, error) {
	f.calls++
	return f.route, f.err
}

func TestService_FallsBackOnUpstreamFailure(t *testing.T) {
	fc := &fakeClient{err: errors.New("connection refused")}
	s := &Service{Client: fc}
	r := s.Estimate(context.Background(), uta, dallas)
	assert.Equal(t, Fallback(uta, dallas), r)
	assert.Equal(t, 1, fc.calls)
}

func TestService_CachesClientResults(t *testing.T) {
	fc := &fakeClient{route: Route{DistanceMiles: 21, DurationLabel: "30 min", TrafficLevel: models.TrafficLow}}
	s := &Service{Client: fc, Cache: NewCache(time.Minute)}
	first := s.Estimate(context.Background(), uta, dallas)
	second := s.Estimate(context.Background(), uta, dallas)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fc.calls)
}
