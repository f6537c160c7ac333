// Package storage persists rides and users behind an injected Store. Every
// lifecycle transition goes through Store.Update so ride and user changes
// land together or not at all.
package storage

import (
	"context"

	"github.com/example/campus-carpool/internal/models"
)

// Store defines persistence operations for rides and users.
type Store interface {
	GetRide(ctx context.Context, id string) (models.Ride, error)
	ListRides(ctx context.Context) ([]models.Ride, error)
	CreateRide(ctx context.Context, r models.Ride) error
	GetUser(ctx context.Context, id string) (models.User, error)
	PutUser(ctx context.Context, u models.User) error

	// Update runs fn against a consistent view. Writes staged on the Tx are
	// committed only if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view handed to Store.Update callbacks. Reads reflect writes
// already staged in the same transaction.
type Tx interface {
	Ride(id string) (models.Ride, error)
	Rides() ([]models.Ride, error)
	User(id string) (models.User, error)
	PutRide(r models.Ride)
	PutUser(u models.User)
}

// staged collects writes until commit. Backends embed it in their Tx.
type staged struct {
	rides map[string]models.Ride
	users map[string]models.User
	order []string // ride ids in first-write order, for deterministic commits
}

func newStaged() staged {
	return staged{rides: map[string]models.Ride{}, users: map[string]models.User{}}
}

func (s *staged) PutRide(r models.Ride) {
	if _, ok := s.rides[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.rides[r.ID] = r.Clone()
}

func (s *staged) PutUser(u models.User) { s.users[u.ID] = u }

func (s *staged) ride(id string) (models.Ride, bool) {
	r, ok := s.rides[id]
	if !ok {
		return models.Ride{}, false
	}
	return r.Clone(), true
}

func (s *staged) user(id string) (models.User, bool) {
	u, ok := s.users[id]
	return u, ok
}

// overlay replaces committed rides with their staged versions and appends
// staged rides that do not exist yet.
func (s *staged) overlay(committed []models.Ride) []models.Ride {
	out := make([]models.Ride, 0, len(committed))
	seen := make(map[string]bool, len(committed))
	for _, r := range committed {
		if st, ok := s.rides[r.ID]; ok {
			r = st
		}
		seen[r.ID] = true
		out = append(out, r.Clone())
	}
	for _, id := range s.order {
		if !seen[id] {
			out = append(out, s.rides[id].Clone())
		}
	}
	return out
}
