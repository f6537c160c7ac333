package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/campus-carpool/internal/models"
	"github.com/example/campus-carpool/internal/ride"
	"github.com/example/campus-carpool/internal/trust"
)

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var req ride.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	uid := userIDFromContext(r.Context())
	req.HostID = uid
	created, err := s.engine.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.engine.Get(r.Context(), created.ID, uid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleParseRide(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if body.Text == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing text", models.ErrValidation))
		return
	}
	d, err := s.parser.Parse(r.Context(), body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	rides, err := s.engine.List(r.Context(), userIDFromContext(r.Context()), r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, r, fmt.Errorf("%w: lat and lng are required numbers", models.ErrValidation))
		return
	}
	radius := 0.0
	if v := q.Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid radius", models.ErrValidation))
			return
		}
		radius = f
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: invalid limit", models.ErrValidation))
			return
		}
		limit = n
	}
	rides, err := s.engine.Nearby(r.Context(), userIDFromContext(r.Context()), models.Coord{Lat: lat, Lng: lng}, radius, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rides": rides})
}

func (s *Server) handleGetRide(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Get(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.InitiateBooking(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, v)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.FinalizeBooking(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	v, err := s.engine.Cancel(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.engine.Complete(r.Context(), mux.Vars(r)["id"], userIDFromContext(r.Context()), body.Code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type userResponse struct {
	models.User
	TrustTier string `json:"trust_tier"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.engine.Store.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: u, TrustTier: trust.Tier(u.TrustScore)})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	places := s.places.Suggest(r.URL.Query().Get("q"), 5)
	if places == nil {
		places = []models.Location{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"places": places})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.messages == nil {
		writeJSON(w, http.StatusOK, map[string]any{"messages": []models.Message{}})
		return
	}
	msgs, err := s.messages.Messages(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleSay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	m, err := s.engine.Say(r.Context(), mux.Vars(r)["key"], userIDFromContext(r.Context()), body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
