package eta

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/example/campus-carpool/internal/models"
)

const metersToMiles = 0.000621371

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	Client   *http.Client
	// Traffic returns a duration multiplier in [1, 1.3). OSRM has no live
	// traffic, so the default samples one at random.
	Traffic func() float64
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, Client: &http.Client{Timeout: 2 * time.Second}}
}

// Route queries OSRM /route with full geojson geometry. Every failure is
// reported as models.ErrUpstreamUnavailable.
func (o *OSRMClient) Route(ctx context.Context, from, to models.Coord) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson", o.Endpoint, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, fmt.Errorf("%w: osrm request: %v", models.ErrUpstreamUnavailable, err)
	}
	resp, err := o.Client.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("%w: osrm: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("%w: osrm status %d", models.ErrUpstreamUnavailable, resp.StatusCode)
	}
	var out struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Route{}, fmt.Errorf("%w: osrm decode: %v", models.ErrUpstreamUnavailable, err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Route{}, fmt.Errorf("%w: osrm no route: %v", models.ErrUpstreamUnavailable, out.Code)
	}
	best := out.Routes[0]

	factor := o.trafficFactor()
	minutes := math.Round(math.Round(best.Duration/60) * factor)

	// OSRM emits [lng, lat]; maps want [lat, lng].
	geometry := make([][2]float64, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		geometry = append(geometry, [2]float64{c[1], c[0]})
	}
	return Route{
		DistanceMiles: best.Distance * metersToMiles,
		DurationLabel: fmt.Sprintf("%d min", int(minutes)),
		TrafficLevel:  classifyTraffic(factor),
		Geometry:      geometry,
	}, nil
}

func (o *OSRMClient) trafficFactor() float64 {
	if o.Traffic != nil {
		return o.Traffic()
	}
	return 1 + rand.Float64()*0.3
}

func classifyTraffic(factor float64) models.TrafficLevel {
	switch {
	case factor > 1.25:
		return models.TrafficHeavy
	case factor > 1.1:
		return models.TrafficModerate
	default:
		return models.TrafficLow
	}
}
