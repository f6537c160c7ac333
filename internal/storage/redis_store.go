package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/campus-carpool/internal/models"
)

const (
	DefaultRidesKey = "carpool:rides"
	DefaultUsersKey = "carpool:users"
)

// RedisStore keeps rides and users as JSON values in two hashes. Update uses
// WATCH on both hashes, so any concurrent write aborts and retries the
// transaction.
type RedisStore struct {
	client     *redis.Client
	ridesKey   string
	usersKey   string
	maxRetries int
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ridesKey: DefaultRidesKey, usersKey: DefaultUsersKey, maxRetries: 5}
}

func (s *RedisStore) GetRide(ctx context.Context, id string) (models.Ride, error) {
	return getJSON[models.Ride](ctx, s.client, s.ridesKey, id)
}

func (s *RedisStore) ListRides(ctx context.Context) ([]models.Ride, error) {
	return listRides(ctx, s.client, s.ridesKey)
}

func (s *RedisStore) CreateRide(ctx context.Context, r models.Ride) error {
	r.Version = 1
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ok, err := s.client.HSetNX(ctx, s.ridesKey, r.ID, b).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("ride %s exists: %w", r.ID, models.ErrConflict)
	}
	return nil
}

func (s *RedisStore) GetUser(ctx context.Context, id string) (models.User, error) {
	return getJSON[models.User](ctx, s.client, s.usersKey, id)
}

func (s *RedisStore) PutUser(ctx context.Context, u models.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.usersKey, u.ID, b).Err()
}

func (s *RedisStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := &redisTx{ctx: ctx, rtx: rtx, store: s, staged: newStaged()}
			if err := fn(tx); err != nil {
				return err
			}
			rides := make(map[string][]byte, len(tx.order))
			for _, id := range tx.order {
				r := tx.rides[id]
				r.Version++
				b, err := json.Marshal(r)
				if err != nil {
					return err
				}
				rides[id] = b
			}
			users := make(map[string][]byte, len(tx.users))
			for id, u := range tx.users {
				b, err := json.Marshal(u)
				if err != nil {
					return err
				}
				users[id] = b
			}
			_, err := rtx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				for id, b := range rides {
					p.HSet(ctx, s.ridesKey, id, b)
				}
				for id, b := range users {
					p.HSet(ctx, s.usersKey, id, b)
				}
				return nil
			})
			return err
		}, s.ridesKey, s.usersKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update after %d attempts: %w", s.maxRetries, models.ErrConflict)
}

type redisTx struct {
	ctx   context.Context
	rtx   *redis.Tx
	store *RedisStore
	staged
}

func (t *redisTx) Ride(id string) (models.Ride, error) {
	if r, ok := t.ride(id); ok {
		return r, nil
	}
	return getJSON[models.Ride](t.ctx, t.rtx, t.store.ridesKey, id)
}

func (t *redisTx) Rides() ([]models.Ride, error) {
	committed, err := listRides(t.ctx, t.rtx, t.store.ridesKey)
	if err != nil {
		return nil, err
	}
	return t.overlay(committed), nil
}

func (t *redisTx) User(id string) (models.User, error) {
	if u, ok := t.user(id); ok {
		return u, nil
	}
	return getJSON[models.User](t.ctx, t.rtx, t.store.usersKey, id)
}

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func getJSON[T any](ctx context.Context, c hashReader, key, field string) (T, error) {
	var out T
	b, err := c.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, fmt.Errorf("%s %s: %w", key, field, models.ErrNotFound)
	}
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode %s %s: %w", key, field, err)
	}
	return out, nil
}

func listRides(ctx context.Context, c hashReader, key string) ([]models.Ride, error) {
	raw, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Ride, 0, len(raw))
	for id, v := range raw {
		var r models.Ride
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode ride %s: %w", id, err)
		}
		out = append(out, r)
	}
	sortNewestFirst(out)
	return out, nil
}
