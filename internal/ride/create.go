package ride

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
)

const (
	pricePerMile = 0.8
	minimumPrice = 5
	offerSeats   = 3
)

type CreateRequest struct {
	HostID      string          `json:"-"`
	Type        models.RideType `json:"type"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Time        string          `json:"time"`
	Description string          `json:"description,omitempty"`
	Seats       int             `json:"seats,omitempty"` // OFFER only; 0 means the default
}

func (req *CreateRequest) validate() error {
	req.From = strings.TrimSpace(req.From)
	req.To = strings.TrimSpace(req.To)
	req.Time = strings.TrimSpace(req.Time)
	var missing []string
	if req.HostID == "" {
		missing = append(missing, "host")
	}
	if req.From == "" {
		missing = append(missing, "from")
	}
	if req.To == "" {
		missing = append(missing, "to")
	}
	if req.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", models.ErrValidation, strings.Join(missing, ", "))
	}
	if req.Type == "" {
		req.Type = models.RideRequest
	}
	if !req.Type.Valid() {
		return fmt.Errorf("%w: unknown ride type %q", models.ErrValidation, req.Type)
	}
	if req.Seats < 0 {
		return fmt.Errorf("%w: seats must not be negative", models.ErrValidation)
	}
	return nil
}

// Create posts a new OPEN ride. Endpoint resolution and route estimation
// happen before anything is written; the ride is stored in one step.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (models.Ride, error) {
	if err := req.validate(); err != nil {
		return models.Ride{}, err
	}
	host, err := e.Store.GetUser(ctx, req.HostID)
	if err != nil {
		return models.Ride{}, fmt.Errorf("ride.Create: %w", err)
	}

	origin := host.Location.Coord()
	from := e.places().Resolve(req.From, origin)
	to := e.places().Resolve(req.To, origin)
	route := e.routes().Estimate(ctx, from.Coord(), to.Coord())

	seats := 1
	if req.Type == models.RideOffer {
		seats = offerSeats
		if req.Seats > 0 {
			seats = req.Seats
		}
	}
	desc := req.Description
	if desc == "" {
		desc = "Need a ride to this location."
		if req.Type == models.RideOffer {
			desc = "I have space in my car."
		}
	}

	now := e.now()
	r := models.Ride{
		ID:            uuid.NewString(),
		Type:          req.Type,
		HostID:        host.ID,
		From:          from,
		To:            to,
		Time:          req.Time,
		Description:   desc,
		Price:         math.Max(minimumPrice, math.Round(route.DistanceMiles*pricePerMile)),
		Seats:         seats,
		Status:        models.StatusOpen,
		TripDistance:  route.DistanceMiles,
		TripDuration:  route.DurationLabel,
		TrafficLevel:  route.TrafficLevel,
		RouteGeometry: route.Geometry,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Store.CreateRide(ctx, r); err != nil {
		return models.Ride{}, fmt.Errorf("ride.Create: %w", err)
	}
	r.Version = 1

	observability.RidesCreated.WithLabelValues(string(r.Type)).Inc()
	e.logger().Info("ride created", "ride_id", r.ID, "user_id", host.ID, "type", r.Type, "seats", r.Seats, "price", r.Price)
	e.syncIndex(ctx, r)
	return r, nil
}
