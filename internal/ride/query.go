package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
)

// Filters accepted by List.
const (
	FilterAll     = "all"
	FilterMine    = "mine"
	FilterOffer   = string(models.RideOffer)
	FilterRequest = string(models.RideRequest)
)

// NewView projects a ride for one viewer. The verification code is only
// shown to the rider (the booked counterparty of an OFFER, the host of a
// REQUEST), who reads it to the driver at drop-off. Pending intents are
// never exposed.
func NewView(r models.Ride, viewer models.User, host *models.User) models.RideView {
	r = r.Clone()
	booked := viewer.ID != "" && r.PassengerID() == viewer.ID
	_, pending := r.Pending[viewer.ID]
	r.Pending = nil
	if r.Booking != nil && (viewer.ID == "" || r.RiderID() != viewer.ID) {
		r.Booking.VerificationCode = ""
	}
	v := models.RideView{
		Ride:                    r,
		Host:                    host,
		IsBookedByCurrentUser:   booked,
		IsPendingForCurrentUser: pending && viewer.ID != "",
	}
	if viewer.ID != "" {
		v.DistanceFromUser = roundTenth(geo.HaversineMiles(viewer.Location.Coord(), r.From.Coord()))
	}
	return v
}

func roundTenth(x float64) float64 { return math.Round(x*10) / 10 }

// Get returns one ride as seen by viewerID. An empty viewer gets the
// anonymous view.
func (e *Engine) Get(ctx context.Context, rideID, viewerID string) (models.RideView, error) {
	r, err := e.Store.GetRide(ctx, rideID)
	if err != nil {
		return models.RideView{}, fmt.Errorf("ride.Get: %w", err)
	}
	viewer, err := e.viewer(ctx, viewerID)
	if err != nil {
		return models.RideView{}, fmt.Errorf("ride.Get: %w", err)
	}
	return NewView(r, viewer, e.host(ctx, r.HostID)), nil
}

// List returns the ride board for a viewer, nearest pickup first. "all" and
// the type filters only show rides that are still live; "mine" shows every
// ride the viewer hosts or holds the booking on.
func (e *Engine) List(ctx context.Context, viewerID, filter string) ([]models.RideView, error) {
	if filter == "" {
		filter = FilterAll
	}
	switch filter {
	case FilterAll, FilterMine, FilterOffer, FilterRequest:
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", models.ErrValidation, filter)
	}
	if filter == FilterMine && viewerID == "" {
		return nil, fmt.Errorf("%w: missing user", models.ErrValidation)
	}
	viewer, err := e.viewer(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("ride.List: %w", err)
	}
	rides, err := e.Store.ListRides(ctx)
	if err != nil {
		return nil, fmt.Errorf("ride.List: %w", err)
	}

	hosts := make(map[string]*models.User)
	out := make([]models.RideView, 0, len(rides))
	for _, r := range rides {
		if !matches(r, filter, viewerID) {
			continue
		}
		h, ok := hosts[r.HostID]
		if !ok {
			h = e.host(ctx, r.HostID)
			hosts[r.HostID] = h
		}
		out = append(out, NewView(r, viewer, h))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceFromUser < out[j].DistanceFromUser })
	return out, nil
}

func matches(r models.Ride, filter, viewerID string) bool {
	switch filter {
	case FilterMine:
		return r.HostID == viewerID || r.PassengerID() == viewerID
	case FilterOffer, FilterRequest:
		return string(r.Type) == filter && !r.Status.Terminal()
	default:
		return !r.Status.Terminal()
	}
}

// Nearby ranks OPEN rides around a point by pickup distance in miles plus a
// reputation term, so a closer ride wins unless its host is much less
// trusted. The viewer's own rides are left out.
func (e *Engine) Nearby(ctx context.Context, viewerID string, at models.Coord, radiusMeters float64, limit int) ([]models.RideView, error) {
	if limit <= 0 {
		limit = 10
	}
	viewer, err := e.viewer(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("ride.Nearby: %w", err)
	}
	cands, err := e.candidates(ctx, at, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("ride.Nearby: %w", err)
	}

	type scored struct {
		v    models.RideView
		cost float64
	}
	list := make([]scored, 0, len(cands))
	for _, r := range cands {
		if r.Status != models.StatusOpen || (viewerID != "" && r.HostID == viewerID) {
			continue
		}
		h := e.host(ctx, r.HostID)
		score := 0
		if h != nil {
			score = h.TrustScore
		}
		miles := geo.HaversineMiles(at, r.From.Coord())
		v := NewView(r, viewer, h)
		v.DistanceFromUser = roundTenth(miles)
		list = append(list, scored{v, miles + 0.2*float64(100-score)})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].cost < list[j].cost })
	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]models.RideView, len(list))
	for i, s := range list {
		out[i] = s.v
	}
	return out, nil
}

// candidates reads pickup candidates from the index when one is configured,
// otherwise it scans the store.
func (e *Engine) candidates(ctx context.Context, at models.Coord, radiusMeters float64) ([]models.Ride, error) {
	if e.Index == nil {
		rides, err := e.Store.ListRides(ctx)
		if err != nil {
			return nil, err
		}
		out := rides[:0]
		for _, r := range rides {
			c := r.From.Coord()
			if radiusMeters > 0 && geo.HaversineMeters(at.Lat, at.Lng, c.Lat, c.Lng) > radiusMeters {
				continue
			}
			out = append(out, r)
		}
		return out, nil
	}
	ids, err := e.Index.Nearby(ctx, at, radiusMeters, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.Ride, 0, len(ids))
	for _, id := range ids {
		r, err := e.Store.GetRide(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Say appends a user's chat message to a conversation.
func (e *Engine) Say(ctx context.Context, key, senderID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	switch {
	case key == "":
		return models.Message{}, fmt.Errorf("%w: missing conversation", models.ErrValidation)
	case senderID == "" || senderID == models.SystemSender:
		return models.Message{}, fmt.Errorf("%w: invalid sender", models.ErrValidation)
	case text == "":
		return models.Message{}, fmt.Errorf("%w: empty message", models.ErrValidation)
	}
	m := e.message(senderID, text)
	if e.Sink == nil {
		return m, nil
	}
	if err := e.Sink.Append(ctx, key, m); err != nil {
		observability.SinkErrors.Inc()
		return models.Message{}, fmt.Errorf("ride.Say: %w", err)
	}
	return m, nil
}

func (e *Engine) viewer(ctx context.Context, id string) (models.User, error) {
	if id == "" {
		return models.User{}, nil
	}
	return e.Store.GetUser(ctx, id)
}

// host returns nil when the host record is gone; the ride is still shown.
func (e *Engine) host(ctx context.Context, id string) *models.User {
	u, err := e.Store.GetUser(ctx, id)
	if err != nil {
		return nil
	}
	return &u
}
