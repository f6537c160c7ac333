package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/campus-carpool/internal/dispatch"
	"github.com/example/campus-carpool/internal/geo"
	"github.com/example/campus-carpool/internal/messaging"
	"github.com/example/campus-carpool/internal/nlp"
	"github.com/example/campus-carpool/internal/ride"
)

// Deps are the collaborators the API is built from. Engine is required;
// everything else has a usable default.
type Deps struct {
	Engine   *ride.Engine
	Places   *geo.Resolver
	Parser   nlp.Parser
	Messages messaging.Reader
	Hub      *dispatch.Hub
	Logger   *slog.Logger
}

type Server struct {
	engine   *ride.Engine
	places   *geo.Resolver
	parser   nlp.Parser
	messages messaging.Reader
	hub      *dispatch.Hub
	logger   *slog.Logger
	mux      *mux.Router
	upgrader websocket.Upgrader
}

func NewServer(d Deps) *Server {
	s := &Server{
		engine:   d.Engine,
		places:   d.Places,
		parser:   nlp.WithFallback(d.Parser),
		messages: d.Messages,
		hub:      d.Hub,
		logger:   d.Logger,
		mux:      mux.NewRouter(),
	}
	if s.places == nil {
		s.places = geo.NewResolver()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rides", s.requireUser(s.handleCreateRide)).Methods(http.MethodPost)
	api.HandleFunc("/rides/parse", s.handleParseRide).Methods(http.MethodPost)
	api.HandleFunc("/rides", s.handleListRides).Methods(http.MethodGet)
	api.HandleFunc("/rides/nearby", s.handleNearby).Methods(http.MethodGet)
	api.HandleFunc("/rides/{id}", s.handleGetRide).Methods(http.MethodGet)
	api.HandleFunc("/rides/{id}/book", s.requireUser(s.handleBook)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/confirm", s.requireUser(s.handleConfirm)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/cancel", s.requireUser(s.handleCancel)).Methods(http.MethodPost)
	api.HandleFunc("/rides/{id}/complete", s.requireUser(s.handleComplete)).Methods(http.MethodPost)

	api.HandleFunc("/users/{id}", s.handleGetUser).Methods(http.MethodGet)
	api.HandleFunc("/places/suggest", s.handleSuggest).Methods(http.MethodGet)

	api.HandleFunc("/conversations/{key}/messages", s.handleMessages).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{key}/messages", s.requireUser(s.handleSay)).Methods(http.MethodPost)

	s.mux.HandleFunc("/ws/conversations/{key}", s.handleWS).Methods(http.MethodGet)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
