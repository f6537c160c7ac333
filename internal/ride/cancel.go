package ride

import (
	"context"
	"fmt"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
	"github.com/example/campus-carpool/internal/storage"
	"github.com/example/campus-carpool/internal/trust"
)

// Cancel aborts a ride or a booking. The host cancelling ends the ride; the
// booked passenger cancelling releases their seat and reopens the ride. Either
// way the canceller pays the trust penalty in the same transaction.
func (e *Engine) Cancel(ctx context.Context, rideID, userID string) (models.RideView, error) {
	if userID == "" {
		return models.RideView{}, fmt.Errorf("%w: missing user", models.ErrValidation)
	}
	unlock := e.locks.lock(rideID)
	defer unlock()

	var (
		out    models.Ride
		user   models.User
		host   models.User
		byHost bool
	)
	err := e.Store.Update(ctx, func(tx storage.Tx) error {
		r, err := tx.Ride(rideID)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return invalid("ride is already %s", r.Status)
		}
		switch userID {
		case r.HostID:
			byHost = true
			r.Status = models.StatusCancelled
			r.Pending = nil
		case r.PassengerID():
			r.Booking = nil
			if r.Type == models.RideOffer {
				r.Seats++
			}
			r.Status = models.StatusOpen
		default:
			return invalid("only the host or the booked passenger can cancel")
		}

		if user, err = tx.User(userID); err != nil {
			return err
		}
		trust.Penalize(&user)
		tx.PutUser(user)
		if byHost {
			host = user
		} else if host, err = tx.User(r.HostID); err != nil {
			return err
		}

		r.UpdatedAt = e.now()
		tx.PutRide(r)
		out = r
		return nil
	})
	if err != nil {
		return models.RideView{}, fmt.Errorf("ride.Cancel: %w", err)
	}
	out.Version++

	role := "passenger"
	if byHost {
		role = "host"
	}
	observability.Cancellations.WithLabelValues(role).Inc()
	e.logger().Info("ride cancelled", "ride_id", rideID, "user_id", userID, "role", role, "status", out.Status, "trust_score", user.TrustScore)
	e.notify(ctx, models.RideConversation(rideID), e.message(models.SystemSender, cancelText(byHost, user)))
	e.syncIndex(ctx, out)
	return NewView(out, user, &host), nil
}
