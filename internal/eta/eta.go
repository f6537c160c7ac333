package eta

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
)

// Route is a driving estimate between two points.
type Route struct {
	DistanceMiles float64             `json:"distance_miles"`
	DurationLabel string              `json:"duration_label"`
	TrafficLevel  models.TrafficLevel `json:"traffic_level"`
	Geometry      [][2]float64        `json:"geometry,omitempty"`
}

// Client is a routing backend that may fail.
type Client interface {
	Route(ctx context.Context, from, to models.Coord) (Route, error)
}

// Cache is a tiny in-memory cache for route lookups keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
}

type cacheEntry struct {
	v  Route
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (Route, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return Route{}, false
	}
	if time.Since(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return Route{}, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.Coord, v Route) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: time.Now()}
	c.mu.Unlock()
}

// Fallback is the deterministic estimate used when routing is unavailable:
// straight-line miles × 1.4 for road winding, two minutes per mile.
func Fallback(from, to models.Coord) Route {
	dist := geo.HaversineMiles(from, to) * 1.4
	return Route{
		DistanceMiles: dist,
		DurationLabel: fmt.Sprintf("~%d min", int(math.Round(dist*2))),
		TrafficLevel:  models.TrafficLow,
	}
}

// Service answers route estimates and never fails: cache, then Client, then
// Fallback.
type Service struct {
	Client Client // optional OSRM client
	Cache  *Cache // optional route cache
	Logger *slog.Logger
}

func (s *Service) Estimate(ctx context.Context, from, to models.Coord) Route {
	if s.Cache != nil {
		if v, ok := s.Cache.Get(from, to); ok {
			return v
		}
	}
	if s.Client != nil {
		v, err := s.Client.Route(ctx, from, to)
		if err == nil {
			if s.Cache != nil {
				s.Cache.Set(from, to, v)
			}
			return v
		}
		if s.Logger != nil {
			s.Logger.Warn("route estimate fell back", "error", err)
		}
	}
	observability.RouteFallbacks.Inc()
	return Fallback(from, to)
}
