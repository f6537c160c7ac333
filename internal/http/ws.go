package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/campus-carpool/internal/models"
)

// handleWS subscribes the connection to one conversation. The backlog is
// replayed first, then new messages are pushed by the hub until the client
// goes away. Messages appended while the backlog loads are held, not lost.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "push is not enabled"))
		return
	}
	key := mux.Vars(r)["key"]
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "conversation", key, "error", err)
		return
	}
	unsubscribe, err := s.hub.SubscribeWithBacklog(key, conn, func() ([]models.Message, error) {
		if s.messages == nil {
			return nil, nil
		}
		backlog, err := s.messages.Messages(r.Context(), key)
		if err != nil {
			s.logger.Warn("conversation backlog unavailable", "conversation", key, "error", err)
			return nil, nil
		}
		return backlog, nil
	})
	if err != nil {
		return
	}
	defer unsubscribe()

	// Client frames are ignored; reading detects the close.
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
