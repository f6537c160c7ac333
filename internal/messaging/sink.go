// Package messaging carries ride notifications into per-conversation logs.
// Delivery and rendering belong to the collaborator behind a Sink; the only
// guarantee a Sink owes callers is append order within one conversation key.
package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/example/campus-carpool/internal/models"
)

// Sink is an append-only per-conversation log.
type Sink interface {
	Append(ctx context.Context, key string, m models.Message) error
}

// Reader returns a conversation in append order.
type Reader interface {
	Messages(ctx context.Context, key string) ([]models.Message, error)
}

// Fanout appends to every sink in order and joins their errors.
type Fanout []Sink

func (f Fanout) Append(ctx context.Context, key string, m models.Message) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, key, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type MemoryLog struct {
	mu    sync.RWMutex
	convs map[string][]models.Message
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{convs: make(map[string][]models.Message)}
}

func (l *MemoryLog) Append(_ context.Context, key string, m models.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.convs[key] = append(l.convs[key], m)
	return nil
}

func (l *MemoryLog) Messages(_ context.Context, key string) ([]models.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Message(nil), l.convs[key]...), nil
}
