package models

import "time"

type RideType string

const (
	RideOffer   RideType = "OFFER"
	RideRequest RideType = "REQUEST"
)

func (t RideType) Valid() bool { return t == RideOffer || t == RideRequest }

type RideStatus string

const (
	StatusOpen      RideStatus = "OPEN"
	StatusBooked    RideStatus = "BOOKED"
	StatusCompleted RideStatus = "COMPLETED"
	StatusCancelled RideStatus = "CANCELLED"
)

// Terminal reports whether no further transition is allowed.
func (s RideStatus) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

type TrafficLevel string

const (
	TrafficLow      TrafficLevel = "LOW"
	TrafficModerate TrafficLevel = "MODERATE"
	TrafficHeavy    TrafficLevel = "HEAVY"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Location struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (l Location) Coord() Coord { return Coord{Lat: l.Lat, Lng: l.Lng} }

type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	University     string   `json:"university,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	TrustScore     int      `json:"trust_score"` // 0..100
	RidesCompleted int      `json:"rides_completed"`
	Cancellations  int      `json:"cancellations"`
	Verified       bool     `json:"is_verified_student"`
	Location       Location `json:"location"`
}

// Booking groups the attachments of an active booking so they are set and
// cleared as one value.
type Booking struct {
	// PassengerID is the counterparty who booked. On a REQUEST ride this is
	// the user who drives.
	PassengerID      string    `json:"passenger_id"`
	VerificationCode string    `json:"verification_code,omitempty"`
	BookedAt         time.Time `json:"booked_at"`
}

type Ride struct {
	ID            string       `json:"id"`
	Type          RideType     `json:"type"`
	HostID        string       `json:"host_id"`
	From          Location     `json:"from"`
	To            Location     `json:"to"`
	Time          string       `json:"time"`
	Description   string       `json:"description,omitempty"`
	Price         float64      `json:"price"`
	Seats         int          `json:"seats"`
	Status        RideStatus   `json:"status"`
	TripDistance  float64      `json:"trip_distance"`
	TripDuration  string       `json:"trip_duration"`
	TrafficLevel  TrafficLevel `json:"traffic_level"`
	RouteGeometry [][2]float64 `json:"route_geometry,omitempty"`

	Booking *Booking             `json:"booking,omitempty"`
	Pending map[string]time.Time `json:"pending,omitempty"` // user id -> initiated at

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// DriverID returns who operates the vehicle: the host for an OFFER, the
// booked counterparty for a REQUEST. Empty when a REQUEST has no booking.
func (r Ride) DriverID() string {
	if r.Type == RideOffer {
		return r.HostID
	}
	if r.Booking != nil {
		return r.Booking.PassengerID
	}
	return ""
}

// PassengerID returns the booked counterparty, or "" when unbooked.
func (r Ride) PassengerID() string {
	if r.Booking == nil {
		return ""
	}
	return r.Booking.PassengerID
}

// RiderID returns who rides along and holds the verification code: the
// booked counterparty for an OFFER, the host for a REQUEST. Empty while
// unbooked.
func (r Ride) RiderID() string {
	if r.Booking == nil {
		return ""
	}
	if r.Type == RideRequest {
		return r.HostID
	}
	return r.Booking.PassengerID
}

// Clone returns a deep copy so stores never hand out shared maps or slices.
func (r Ride) Clone() Ride {
	if r.Booking != nil {
		b := *r.Booking
		r.Booking = &b
	}
	if r.Pending != nil {
		p := make(map[string]time.Time, len(r.Pending))
		for k, v := range r.Pending {
			p[k] = v
		}
		r.Pending = p
	}
	if r.RouteGeometry != nil {
		r.RouteGeometry = append([][2]float64(nil), r.RouteGeometry...)
	}
	return r
}

type Message struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"is_system,omitempty"`
}

// SystemSender is the sender id of engine-generated notifications.
const SystemSender = "system"

func RideConversation(rideID string) string { return "ride_" + rideID }

func DirectConversation(userID string) string { return "dm_" + userID }

// RideView is a ride projected for one viewer. It is derived per request and
// never persisted.
type RideView struct {
	Ride
	Host                    *User   `json:"host,omitempty"`
	IsBookedByCurrentUser   bool    `json:"is_booked_by_current_user"`
	IsPendingForCurrentUser bool    `json:"is_pending_for_current_user"`
	DistanceFromUser        float64 `json:"distance_from_user,omitempty"`
}
