// Package seed loads the demo campus: a handful of students around DFW,
// their open rides, some ride history and chat threads.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/storage"
)

// DemoUserID is the profile the demo client signs in as.
const DemoUserID = "u_me"

var Users = []models.User{
	{
		ID: DemoUserID, Name: "Alex Smith", University: "UT Arlington",
		Bio:        "CS Major. I drive a Honda Civic. Love coffee and podcasts!",
		TrustScore: 92, RidesCompleted: 14, Verified: true,
		Location: models.Location{Name: "UTA Library", Address: "702 Planetarium Pl, Arlington, TX 76019", Lat: 32.7292, Lng: -97.1152},
	},
	{
		ID: "u_1", Name: "Sarah Jenkins", University: "UNT Denton",
		Bio:        "Psychology student. Always on time!",
		TrustScore: 98, RidesCompleted: 45, Cancellations: 1, Verified: true,
		Location: models.Location{Name: "UNT Union", Address: "1155 Union Cir, Denton, TX 76203", Lat: 33.2075, Lng: -97.1526},
	},
	{
		ID: "u_2", Name: "Mike Chen", University: "UT Dallas",
		Bio:        "Commuting from Richardson. Music lover.",
		TrustScore: 45, RidesCompleted: 5, Cancellations: 3, Verified: true,
		Location: models.Location{Name: "UTD Campus", Address: "800 W Campbell Rd, Richardson, TX 75080", Lat: 32.9856, Lng: -96.7502},
	},
	{
		ID: "u_3", Name: "Emily Ross", University: "SMU",
		Bio:        "Just looking for safe rides to campus.",
		TrustScore: 88, RidesCompleted: 22, Cancellations: 2, Verified: true,
		Location: models.Location{Name: "SMU Hall", Address: "6425 Boaz Ln, Dallas, TX 75205", Lat: 32.8412, Lng: -96.7845},
	},
}

func demoRides(now time.Time) []models.Ride {
	open := []models.Ride{
		{
			ID: "r_1", Type: models.RideOffer, HostID: "u_1",
			From: models.Location{Name: "Denton (Artemisa Ln)", Address: "2545 Artemisa Lane, Denton, TX", Lat: 33.2540, Lng: -97.1526},
			To:   models.Location{Name: "Irving (Meadowcreek)", Address: "1223 Meadow Creek Dr, Irving, TX", Lat: 32.8540, Lng: -96.9700},
			Time: "2:30 PM", Price: 12, Seats: 3, Description: "Heading back after class. Smooth jazz listener.",
			TrafficLevel: models.TrafficLow,
		},
		{
			ID: "r_2", Type: models.RideRequest, HostID: "u_2",
			From: models.Location{Name: "Arlington (UTA)", Address: "701 S Nedderman Dr, Arlington, TX", Lat: 32.7292, Lng: -97.1150},
			To:   models.Location{Name: "Dallas (Deep Ellum)", Address: "2625 Main St, Dallas, TX", Lat: 32.7825, Lng: -96.7890},
			Time: "5:00 PM", Price: 18, Seats: 1, Description: "Need to catch a concert.",
			TrafficLevel: models.TrafficHeavy,
		},
		{
			ID: "r_3", Type: models.RideOffer, HostID: "u_3",
			From: models.Location{Name: "Richardson (UTD)", Address: "800 W Campbell Rd, Richardson, TX", Lat: 32.9856, Lng: -96.7502},
			To:   models.Location{Name: "Plano (Legacy West)", Address: "5908 Headquarters Dr, Plano, TX", Lat: 33.0798, Lng: -96.8250},
			Time: "10:00 AM", Price: 8, Seats: 2, Description: "Short hop.",
			TrafficLevel: models.TrafficLow,
		},
	}
	for i := range open {
		r := &open[i]
		r.Status = models.StatusOpen
		r.TripDistance = roundTenth(geo.HaversineMiles(r.From.Coord(), r.To.Coord()) * 1.4)
		r.TripDuration = fmt.Sprintf("~%d min", int(r.TripDistance*2+0.5))
	}

	day := 24 * time.Hour
	history := []models.Ride{
		{
			ID: "h_1", Type: models.RideOffer, HostID: DemoUserID, Status: models.StatusCompleted,
			From: models.Location{Name: "Arlington", Address: "UTA Campus"}, To: models.Location{Name: "Dallas", Address: "Downtown Dallas"},
			Time: "9:00 AM", Price: 15, Seats: 3, TripDistance: 20.5, TripDuration: "30 min", TrafficLevel: models.TrafficModerate,
			Booking:   &models.Booking{PassengerID: "u_3", BookedAt: now.Add(-7 * day)},
			CreatedAt: now.Add(-7 * day),
		},
		{
			ID: "h_2", Type: models.RideRequest, HostID: DemoUserID, Status: models.StatusCompleted,
			From: models.Location{Name: "Dallas", Address: "Uptown"}, To: models.Location{Name: "Arlington", Address: "Home"},
			Time: "11:30 PM", Price: 20, Seats: 1, TripDistance: 22.1, TripDuration: "25 min", TrafficLevel: models.TrafficLow,
			Booking:   &models.Booking{PassengerID: "u_2", BookedAt: now.Add(-9 * day)},
			CreatedAt: now.Add(-9 * day),
		},
		{
			ID: "h_3", Type: models.RideOffer, HostID: "u_1", Status: models.StatusCompleted,
			From: models.Location{Name: "Denton", Address: "UNT"}, To: models.Location{Name: "Frisco", Address: "Stonebriar"},
			Time: "4:00 PM", Price: 10, Seats: 2, TripDistance: 18.2, TripDuration: "28 min", TrafficLevel: models.TrafficHeavy,
			Booking:   &models.Booking{PassengerID: DemoUserID, BookedAt: now.Add(-11 * day)},
			CreatedAt: now.Add(-11 * day),
		},
		{
			ID: "h_4", Type: models.RideOffer, HostID: "u_1", Status: models.StatusCancelled,
			From: models.Location{Name: "Frisco", Address: "IKEA"}, To: models.Location{Name: "Denton", Address: "UNT"},
			Time: "7:00 PM", Price: 10, Seats: 2, TripDistance: 18.2, TripDuration: "25 min", TrafficLevel: models.TrafficLow,
			CreatedAt: now.Add(-11*day + time.Hour),
		},
	}
	out := append(open, history...)
	for i := range out {
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now.Add(-time.Duration(i+1) * time.Minute)
		}
		out[i].UpdatedAt = out[i].CreatedAt
	}
	return out
}

var chats = []struct {
	with string
	text string
	ago  time.Duration
}{
	{"u_1", "Great! See you at the Union Circle stop.", 2 * time.Hour},
	{"u_2", "Thanks for the ride man, really appreciate it.", 24 * time.Hour},
	{"u_3", "Are you still going to Dallas tomorrow?", 72 * time.Hour},
}

// Demo writes the demo data set. Records that already exist are left
// untouched, so running it on every start is safe. index and sink may be
// nil.
func Demo(ctx context.Context, store storage.Store, index geo.Index, sink messaging.Sink, now time.Time) error {
	for _, u := range Users {
		_, err := store.GetUser(ctx, u.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if err := store.PutUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	fresh := false
	for _, r := range demoRides(now) {
		err := store.CreateRide(ctx, r)
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed ride %s: %w", r.ID, err)
		}
		fresh = true
		if index != nil && r.Status == models.StatusOpen {
			if err := index.Upsert(ctx, r.ID, r.From.Coord()); err != nil {
				return fmt.Errorf("seed index %s: %w", r.ID, err)
			}
		}
	}

	// Chat threads are append-only, so only write them with a fresh ride set.
	if sink == nil || !fresh {
		return nil
	}
	for _, c := range chats {
		m := models.Message{ID: "seed_" + c.with, SenderID: c.with, Text: c.text, Timestamp: now.Add(-c.ago)}
		if err := sink.Append(ctx, models.DirectConversation(c.with), m); err != nil {
			return fmt.Errorf("seed chat %s: %w", c.with, err)
		}
	}
	return nil
}

func roundTenth(x float64) float64 { return float64(int(x*10+0.5)) / 10 }
