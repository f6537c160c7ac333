package ride

import (
	"context"
	"fmt"
	"time"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
	"github.com/example/campus-carpool/internal/storage"
)

// InitiateBooking records the viewer's intent to book. Status, seats and the
// booking slot are left alone. Repeating the call while the viewer is already
// pending or already booked changes nothing.
func (e *Engine) InitiateBooking(ctx context.Context, rideID, viewerID string) (models.RideView, error) {
	if viewerID == "" {
		return models.RideView{}, fmt.Errorf("%w: missing user", models.ErrValidation)
	}
	unlock := e.locks.lock(rideID)
	defer unlock()

	var (
		out          models.Ride
		host, viewer models.User
		changed      bool
	)
	err := e.Store.Update(ctx, func(tx storage.Tx) error {
		r, err := tx.Ride(rideID)
		if err != nil {
			return err
		}
		if r.HostID == viewerID {
			return invalid("host cannot book their own ride")
		}
		if r.Status.Terminal() {
			return invalid("ride is %s", r.Status)
		}
		if viewer, err = tx.User(viewerID); err != nil {
			return err
		}
		if host, err = tx.User(r.HostID); err != nil {
			return err
		}
		out = r
		if r.PassengerID() == viewerID {
			return nil
		}
		if _, ok := r.Pending[viewerID]; ok {
			return nil
		}
		if r.Status != models.StatusOpen {
			return invalid("ride is %s", r.Status)
		}
		now := e.now()
		if r.Pending == nil {
			r.Pending = make(map[string]time.Time)
		}
		r.Pending[viewerID] = now
		r.UpdatedAt = now
		tx.PutRide(r)
		out = r
		changed = true
		return nil
	})
	if err != nil {
		return models.RideView{}, fmt.Errorf("ride.InitiateBooking: %w", err)
	}
	if changed {
		out.Version++
		observability.BookingsInitiated.Inc()
		e.logger().Info("booking initiated", "ride_id", rideID, "user_id", viewerID)
		e.notify(ctx, models.RideConversation(rideID), e.message(viewerID, intentText(out, host)))
		e.scheduleAck(rideID, viewerID)
	}
	return NewView(out, viewer, &host), nil
}

// scheduleAck queues the counterparty's simulated reply. It runs off the
// caller's goroutine and takes the ride lock like any other transition.
func (e *Engine) scheduleAck(rideID, userID string) {
	e.acks.Add(1)
	time.AfterFunc(e.ackDelay(), func() {
		defer e.acks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		e.deliverAck(ctx, rideID, userID)
	})
}

func (e *Engine) deliverAck(ctx context.Context, rideID, userID string) {
	unlock := e.locks.lock(rideID)
	defer unlock()

	r, err := e.Store.GetRide(ctx, rideID)
	if err != nil {
		e.logger().Warn("booking ack skipped", "ride_id", rideID, "user_id", userID, "error", err)
		return
	}
	if _, ok := r.Pending[userID]; !ok || r.Status.Terminal() {
		e.logger().Debug("booking ack dropped", "ride_id", rideID, "user_id", userID, "status", r.Status)
		return
	}
	e.notify(ctx, models.RideConversation(rideID), e.message(r.HostID, ackText(r)))
}

// FinalizeBooking turns the viewer's pending booking into the ride's booking
// and issues a fresh verification code. An OFFER loses one seat and becomes
// BOOKED once the last seat is taken; a REQUEST is BOOKED immediately.
func (e *Engine) FinalizeBooking(ctx context.Context, rideID, viewerID string) (models.RideView, error) {
	if viewerID == "" {
		return models.RideView{}, fmt.Errorf("%w: missing user", models.ErrValidation)
	}
	unlock := e.locks.lock(rideID)
	defer unlock()

	var (
		out          models.Ride
		host, viewer models.User
	)
	err := e.Store.Update(ctx, func(tx storage.Tx) error {
		r, err := tx.Ride(rideID)
		if err != nil {
			return err
		}
		if r.Status != models.StatusOpen {
			return invalid("ride is %s", r.Status)
		}
		if _, ok := r.Pending[viewerID]; !ok {
			return invalid("no pending booking for %s", viewerID)
		}
		if r.Type == models.RideOffer && r.Seats <= 0 {
			return invalid("no seats left")
		}
		if viewer, err = tx.User(viewerID); err != nil {
			return err
		}
		if host, err = tx.User(r.HostID); err != nil {
			return err
		}

		now := e.now()
		delete(r.Pending, viewerID)
		r.Booking = &models.Booking{PassengerID: viewerID, VerificationCode: e.newCode(), BookedAt: now}
		if r.Type == models.RideOffer {
			r.Seats--
			if r.Seats == 0 {
				r.Status = models.StatusBooked
			}
		} else {
			r.Status = models.StatusBooked
		}
		if r.Status == models.StatusBooked || len(r.Pending) == 0 {
			r.Pending = nil
		}
		r.UpdatedAt = now
		tx.PutRide(r)
		out = r
		return nil
	})
	if err != nil {
		return models.RideView{}, fmt.Errorf("ride.FinalizeBooking: %w", err)
	}
	out.Version++

	observability.BookingsFinalized.Inc()
	e.logger().Info("booking finalized", "ride_id", rideID, "user_id", viewerID, "status", out.Status, "seats", out.Seats)
	key := models.RideConversation(rideID)
	e.notify(ctx, key,
		e.message(viewerID, confirmText),
		e.message(models.SystemSender, pinText),
	)
	e.syncIndex(ctx, out)
	return NewView(out, viewer, &host), nil
}
