package ride

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
	"github.com/example/campus-carpool/internal/storage"
	"github.com/example/campus-carpool/internal/trust"
)

// Completion is the outcome of a verified drop-off.
type Completion struct {
	Ride          models.RideView `json:"ride"`
	PointsAwarded int             `json:"points_awarded"`
	Collusion     bool            `json:"collusion"`
}

// Complete closes a booked ride once the driver presents the passenger's PIN.
// A wrong PIN changes nothing. A passenger who already has a completed ride
// earns the driver no points, though the completion still counts.
func (e *Engine) Complete(ctx context.Context, rideID, driverID, code string) (Completion, error) {
	if !validCode(code) {
		return Completion{}, fmt.Errorf("%w: code must be 4 digits", models.ErrValidation)
	}
	unlock := e.locks.lock(rideID)
	defer unlock()

	var (
		out       models.Ride
		driver    models.User
		host      models.User
		points    int
		collusion bool
	)
	err := e.Store.Update(ctx, func(tx storage.Tx) error {
		r, err := tx.Ride(rideID)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return invalid("ride is already %s", r.Status)
		}
		if r.Booking == nil {
			return invalid("ride has no booking")
		}
		if r.DriverID() != driverID {
			return invalid("only the driver can complete the ride")
		}
		if wait := e.Cooldown - e.now().Sub(r.Booking.BookedAt); e.Cooldown > 0 && wait > 0 {
			return invalid("completion locked for another %s", wait.Round(100*time.Millisecond))
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(r.Booking.VerificationCode)) != 1 {
			return fmt.Errorf("%w: code does not match, ask the passenger to read it again", models.ErrVerification)
		}

		rides, err := tx.Rides()
		if err != nil {
			return err
		}
		collusion = completedBefore(rides, r)
		points = trust.RewardPoints
		if collusion {
			points = 0
		}

		if driver, err = tx.User(driverID); err != nil {
			return err
		}
		trust.Reward(&driver, points)
		tx.PutUser(driver)
		if r.HostID == driverID {
			host = driver
		} else if host, err = tx.User(r.HostID); err != nil {
			return err
		}

		r.Status = models.StatusCompleted
		r.Pending = nil
		r.UpdatedAt = e.now()
		tx.PutRide(r)
		out = r
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrVerification) {
			observability.VerificationFailures.Inc()
			e.logger().Info("completion rejected", "ride_id", rideID, "user_id", driverID, "reason", "pin mismatch")
		}
		return Completion{}, fmt.Errorf("ride.Complete: %w", err)
	}
	out.Version++

	observability.Completions.Inc()
	if collusion {
		observability.CollusionFlags.Inc()
	}
	e.logger().Info("ride completed", "ride_id", rideID, "user_id", driverID, "points", points, "collusion", collusion, "trust_score", driver.TrustScore)
	e.notify(ctx, models.RideConversation(rideID), e.message(models.SystemSender, completeText(points)))
	e.syncIndex(ctx, out)
	return Completion{Ride: NewView(out, driver, &host), PointsAwarded: points, Collusion: collusion}, nil
}

// completedBefore reports whether the ride's passenger already appears on
// another COMPLETED ride. The check is not windowed by time.
func completedBefore(rides []models.Ride, cur models.Ride) bool {
	passenger := cur.PassengerID()
	for i := range rides {
		r := &rides[i]
		if r.ID != cur.ID && r.Status == models.StatusCompleted && r.PassengerID() == passenger {
			return true
		}
	}
	return false
}

func validCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
