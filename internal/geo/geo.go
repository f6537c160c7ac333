package geo

import (
	"context"
	"math"
	"sync"

	"github.com/example/campus-carpool/internal/models"
)

// Index tracks pickup points of rides that are still bookable.
type Index interface {
	Upsert(ctx context.Context, rideID string, at models.Coord) error
	Remove(ctx context.Context, rideID string) error
	Nearby(ctx context.Context, at models.Coord, radiusMeters float64, limit int) ([]string, error)
}

type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]models.Coord
}

func NewIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]models.Coord)}
}

func (g *MemoryIndex) Upsert(_ context.Context, rideID string, at models.Coord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points[rideID] = at
	return nil
}

func (g *MemoryIndex) Remove(_ context.Context, rideID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.points, rideID)
	return nil
}

// naive scan; fine for a campus-sized ride board
func (g *MemoryIndex) Nearby(_ context.Context, at models.Coord, radiusMeters float64, limit int) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	type pair struct {
		id   string
		dist float64
	}
	arr := make([]pair, 0, len(g.points))
	for id, c := range g.points {
		dist := HaversineMeters(at.Lat, at.Lng, c.Lat, c.Lng)
		if radiusMeters > 0 && dist > radiusMeters {
			continue
		}
		arr = append(arr, pair{id, dist})
	}
	// partial selection sort for top-N
	n := limit
	if n <= 0 || n > len(arr) {
		n = len(arr)
	}
	for i := 0; i < n; i++ {
		minIdx := i
		for j := i + 1; j < len(arr); j++ {
			if arr[j].dist < arr[minIdx].dist || (arr[j].dist == arr[minIdx].dist && arr[j].id < arr[minIdx].id) {
				minIdx = j
			}
		}
		arr[i], arr[minIdx] = arr[minIdx], arr[i]
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, arr[i].id)
	}
	return out, nil
}

const (
	earthRadiusMeters = 6371000.0
	earthRadiusMiles  = 3958.8
)

// HaversineMeters returns the great-circle distance in meters.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return earthRadiusMeters * centralAngle(lat1, lon1, lat2, lon2)
}

// HaversineMiles returns the great-circle distance in statute miles.
func HaversineMiles(a, b models.Coord) float64 {
	return earthRadiusMiles * centralAngle(a.Lat, a.Lng, b.Lat, b.Lng)
}

func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
