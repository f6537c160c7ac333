package ride

import (
	"fmt"
	"strings"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/trust"
)

func firstName(u models.User) string {
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	return u.ID
}

func intentText(r models.Ride, host models.User) string {
	if r.Type == models.RideOffer {
		return fmt.Sprintf("Hi %s! I'd like to book a seat on your ride to %s.", firstName(host), r.To.Name)
	}
	return fmt.Sprintf("Hi %s! I can give you a ride to %s for $%.0f.", firstName(host), r.To.Name, r.Price)
}

func ackText(r models.Ride) string {
	if r.Type == models.RideOffer {
		return "Hey! Yes, I have a seat open. Please confirm the booking if you want to proceed."
	}
	return "That works for me! Please confirm if you are sure you want to drive me."
}

const (
	confirmText = "I've confirmed the booking!"
	pinText     = "CONFIRMED. Passenger: Check your Ride Card for your PIN. Driver will verify at drop-off."
)

func cancelText(byHost bool, u models.User) string {
	if byHost {
		return fmt.Sprintf("Ride cancelled by host %s (-%d Trust Score)", firstName(u), trust.PenaltyPoints)
	}
	return fmt.Sprintf("Booking cancelled by %s (-%d Trust Score)", firstName(u), trust.PenaltyPoints)
}

func completeText(points int) string {
	if points == 0 {
		return "Ride Verified. (No points awarded: Frequency limit reached)."
	}
	return fmt.Sprintf("Ride Verified! +%d Trust Score.", points)
}
