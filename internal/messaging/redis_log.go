package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/example/campus-carpool/internal/models"
)

// ListAppender is the subset of redis the log writes through; tests fake it.
type ListAppender interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// RedisLog stores each conversation as a Redis list of JSON messages.
type RedisLog struct {
	c      ListAppender
	prefix string
}

func NewRedisLog(c ListAppender) *RedisLog {
	return &RedisLog{c: c, prefix: "carpool:chat:"}
}

func (l *RedisLog) Append(ctx context.Context, key string, m models.Message) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return l.c.RPush(ctx, l.prefix+key, b).Err()
}

func (l *RedisLog) Messages(ctx context.Context, key string) ([]models.Message, error) {
	raw, err := l.c.LRange(ctx, l.prefix+key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(raw))
	for i, v := range raw {
		var m models.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", key, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}
