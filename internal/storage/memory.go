package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/campus-carpool/internal/models"
)

type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]models.Ride
	users map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]models.Ride), users: make(map[string]models.User)}
}

func (m *MemoryStore) GetRide(_ context.Context, id string) (models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return models.Ride{}, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *MemoryStore) ListRides(_ context.Context) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedRides(), nil
}

func (m *MemoryStore) CreateRide(_ context.Context, r models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return fmt.Errorf("ride %s exists: %w", r.ID, models.ErrConflict)
	}
	r.Version = 1
	m.rides[r.ID] = r.Clone()
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (m *MemoryStore) PutUser(_ context.Context, u models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// Update holds the store lock for the whole callback, so transactions are
// fully serialized.
func (m *MemoryStore) Update(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{store: m, staged: newStaged()}
	if err := fn(tx); err != nil {
		return err
	}
	for _, id := range tx.order {
		r := tx.rides[id]
		r.Version = m.rides[id].Version + 1
		m.rides[id] = r
	}
	for id, u := range tx.users {
		m.users[id] = u
	}
	return nil
}

func (m *MemoryStore) sortedRides() []models.Ride {
	out := make([]models.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		out = append(out, r.Clone())
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(rides []models.Ride) {
	sort.Slice(rides, func(i, j int) bool {
		if rides[i].CreatedAt.Equal(rides[j].CreatedAt) {
			return rides[i].ID < rides[j].ID
		}
		return rides[i].CreatedAt.After(rides[j].CreatedAt)
	})
}

type memoryTx struct {
	store *MemoryStore
	staged
}

func (t *memoryTx) Ride(id string) (models.Ride, error) {
	if r, ok := t.ride(id); ok {
		return r, nil
	}
	r, ok := t.store.rides[id]
	if !ok {
		return models.Ride{}, fmt.Errorf("ride %s: %w", id, models.ErrNotFound)
	}
	return r.Clone(), nil
}

func (t *memoryTx) Rides() ([]models.Ride, error) {
	return t.overlay(t.store.sortedRides()), nil
}

func (t *memoryTx) User(id string) (models.User, error) {
	if u, ok := t.user(id); ok {
		return u, nil
	}
	u, ok := t.store.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}
