// Package ride is the ride lifecycle engine: creation, the two-step booking
// protocol, PIN-verified completion with the anti-collusion frequency cap,
// and cancellation. It is the only caller of the trust ledger.
//
// Every transition on a ride runs under that ride's lock and inside one
// Store.Update, so seat counts, booking attachments and trust scores change
// together or not at all. Notifications are appended after commit, still
// under the lock, which keeps each conversation in transition order.
package ride

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/campus-carpool/internal/eta"
	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/observability"
	"github.com/example/campus-carpool/internal/storage"
)

// Places resolves free-text endpoints. It never fails.
type Places interface {
	Resolve(name string, fallbackOrigin models.Coord) models.Location
}

// Routes estimates a driving route. It never fails.
type Routes interface {
	Estimate(ctx context.Context, from, to models.Coord) eta.Route
}

const (
	DefaultCooldown = 5 * time.Second
	DefaultAckDelay = time.Second
)

type Engine struct {
	Store  storage.Store
	Places Places         // defaults to geo.NewResolver()
	Routes Routes         // defaults to the haversine fallback
	Sink   messaging.Sink // optional
	Index  geo.Index      // optional open-ride pickup index
	Logger *slog.Logger

	// Cooldown is the minimum time between booking and completion. Zero
	// disables the check.
	Cooldown time.Duration
	// AckDelay is how long the simulated counterparty takes to acknowledge a
	// booking intent. Zero means DefaultAckDelay.
	AckDelay time.Duration
	Now      func() time.Time
	NewCode  func() string

	locks lockSet
	acks  sync.WaitGroup
}

// Wait blocks until every scheduled acknowledgement has run.
func (e *Engine) Wait() { e.acks.Wait() }

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) places() Places {
	if e.Places != nil {
		return e.Places
	}
	return geo.NewResolver()
}

func (e *Engine) routes() Routes {
	if e.Routes != nil {
		return e.Routes
	}
	return &eta.Service{Logger: e.Logger}
}

func (e *Engine) ackDelay() time.Duration {
	if e.AckDelay > 0 {
		return e.AckDelay
	}
	return DefaultAckDelay
}

func (e *Engine) newCode() string {
	if e.NewCode != nil {
		return e.NewCode()
	}
	return RandomCode()
}

// RandomCode returns a uniformly random zero-padded 4-digit PIN. Codes are
// scoped to one ride, so collisions across rides are harmless.
func RandomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand: %v", err))
	}
	return fmt.Sprintf("%04d", n.Int64())
}

// notify appends messages in order. Sink failures are logged and counted but
// never fail the transition that produced them.
func (e *Engine) notify(ctx context.Context, key string, msgs ...models.Message) {
	if e.Sink == nil {
		return
	}
	for _, m := range msgs {
		if err := e.Sink.Append(ctx, key, m); err != nil {
			observability.SinkErrors.Inc()
			e.logger().Warn("notification not delivered", "conversation", key, "message_id", m.ID, "error", err)
		}
	}
}

func (e *Engine) message(sender, text string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		SenderID:  sender,
		Text:      text,
		Timestamp: e.now(),
		IsSystem:  sender == models.SystemSender,
	}
}

// syncIndex keeps the pickup index in step with bookability.
func (e *Engine) syncIndex(ctx context.Context, r models.Ride) {
	if e.Index == nil {
		return
	}
	var err error
	if r.Status == models.StatusOpen {
		err = e.Index.Upsert(ctx, r.ID, r.From.Coord())
	} else {
		err = e.Index.Remove(ctx, r.ID)
	}
	if err != nil {
		e.logger().Warn("ride index update failed", "ride_id", r.ID, "error", err)
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrInvalidState, fmt.Sprintf(format, args...))
}

// lockSet serializes work per ride id. Entries are reference counted and
// dropped once no goroutine holds or waits on them.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*rideLock
}

type rideLock struct {
	sync.Mutex
	refs int
}

func (l *lockSet) lock(id string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*rideLock)
	}
	rl, ok := l.locks[id]
	if !ok {
		rl = &rideLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
