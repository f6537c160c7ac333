package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/campus-carpool/internal/models"
)

// Conn is the part of *websocket.Conn the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// WSSession represents one connected conversation subscriber. A held
// session queues pushes until its backlog has been written.
type WSSession struct {
	conn  Conn
	mu    sync.Mutex
	held  bool
	queue []models.Message
}

func (s *WSSession) Send(m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held {
		s.queue = append(s.queue, m)
		return nil
	}
	return s.conn.WriteJSON(m)
}

// release writes backlog, then every queued push the backlog did not already
// contain, and switches the session to direct delivery.
func (s *WSSession) release(backlog []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(backlog))
	for _, m := range backlog {
		seen[m.ID] = struct{}{}
		if err := s.conn.WriteJSON(m); err != nil {
			return err
		}
	}
	for _, m := range s.queue {
		if _, dup := seen[m.ID]; dup && m.ID != "" {
			continue
		}
		if err := s.conn.WriteJSON(m); err != nil {
			return err
		}
	}
	s.queue = nil
	s.held = false
	return nil
}

// Hub pushes appended messages to websocket subscribers of a conversation.
// It is a messaging.Sink.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*WSSession]struct{}
	Logger   *slog.Logger
}

func NewHub() *Hub { return &Hub{sessions: make(map[string]map[*WSSession]struct{})} }

// Subscribe registers conn for key and returns a function that removes it.
func (h *Hub) Subscribe(key string, conn Conn) (unsubscribe func()) {
	s := &WSSession{conn: conn}
	h.add(key, s)
	return func() { h.drop(key, s) }
}

// SubscribeWithBacklog registers conn before reading the backlog, so a
// message appended while the backlog loads is queued and delivered after it
// instead of being lost. On error the session is already dropped.
func (h *Hub) SubscribeWithBacklog(key string, conn Conn, backlog func() ([]models.Message, error)) (unsubscribe func(), err error) {
	s := &WSSession{conn: conn, held: true}
	h.add(key, s)
	var msgs []models.Message
	if backlog != nil {
		if msgs, err = backlog(); err != nil {
			h.drop(key, s)
			return nil, err
		}
	}
	if err := s.release(msgs); err != nil {
		h.drop(key, s)
		return nil, err
	}
	return func() { h.drop(key, s) }, nil
}

func (h *Hub) add(key string, s *WSSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[key] == nil {
		h.sessions[key] = make(map[*WSSession]struct{})
	}
	h.sessions[key][s] = struct{}{}
}

func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[key])
}

// Append sends m to every subscriber of key. Failed sessions are closed and
// dropped; a push failure never fails the append.
func (h *Hub) Append(_ context.Context, key string, m models.Message) error {
	h.mu.RLock()
	targets := make([]*WSSession, 0, len(h.sessions[key]))
	for s := range h.sessions[key] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()
	for _, s := range targets {
		if err := s.Send(m); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("ws send error", "conversation", key, "error", err)
			}
			h.drop(key, s)
		}
	}
	return nil
}

func (h *Hub) drop(key string, s *WSSession) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[key][s]; !ok {
		return
	}
	delete(h.sessions[key], s)
	if len(h.sessions[key]) == 0 {
		delete(h.sessions, key)
	}
	_ = s.conn.Close()
}

var _ Conn = (*websocket.Conn)(nil)
