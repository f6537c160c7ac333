package geo

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/example/campus-carpool/internal/models"
)

// RedisIndex implements Index using Redis GEO commands.
type RedisIndex struct {
	client *redis.Client
	key    string
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	if key == "" {
		key = "open_rides_geo"
	}
	return &RedisIndex{client: client, key: key}
}

func (r *RedisIndex) Upsert(ctx context.Context, rideID string, at models.Coord) error {
	return r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: at.Lng, Latitude: at.Lat, Name: rideID}).Err()
}

func (r *RedisIndex) Remove(ctx context.Context, rideID string) error {
	return r.client.ZRem(ctx, r.key, rideID).Err()
}

func (r *RedisIndex) Nearby(ctx context.Context, at models.Coord, radiusMeters float64, limit int) ([]string, error) {
	if radiusMeters <= 0 {
		radiusMeters = 50000
	}
	q := &redis.GeoSearchQuery{
		Longitude:  at.Lng,
		Latitude:   at.Lat,
		Radius:     radiusMeters,
		RadiusUnit: "m",
		Sort:       "ASC",
	}
	if limit > 0 {
		q.Count = limit
	}
	return r.client.GeoSearch(ctx, r.key, q).Result()
}
