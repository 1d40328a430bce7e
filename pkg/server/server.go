package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beacon-dev/beacon/pkg/relay"
	"github.com/beacon-dev/beacon/pkg/room"
)

// Server ties the transport together: HTTP routes, the WebSocket
// endpoint, the connection manager, and the relay router.
type Server struct {
	config   *Config
	logger   *slog.Logger
	router   *relay.Router
	manager  *ConnManager
	roomIDs  RoomIDSupplier
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// New creates a Server from the given configuration.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   config,
		logger:   logger.With("component", "server"),
		router:   relay.New(room.NewRegistry(), logger),
		manager:  NewConnManager(config.Limits, logger),
		roomIDs:  UUIDSupplier{},
		upgrader: newUpgrader(config.AllowedOrigins),
	}

	s.httpServer = &http.Server{
		Addr:    config.Addr,
		Handler: s.Routes(),
	}

	return s
}

// SetRoomIDSupplier replaces the room id supplier. Must be called
// before the server starts serving.
func (s *Server) SetRoomIDSupplier(sup RoomIDSupplier) {
	s.roomIDs = sup
}

// Router returns the relay router, mainly for tests.
func (s *Server) Router() *relay.Router {
	return s.router
}

// Manager returns the connection manager, mainly for tests.
func (s *Server) Manager() *ConnManager {
	return s.manager
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/rooms", s.handleCreateRoom)
	r.Get("/rooms/{roomID}", s.handleGetRoom)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleCreateRoom issues a fresh room id. The room itself is created
// lazily when the first participant joins it.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	id := s.roomIDs.NewRoomID()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"room": id})
}

// handleGetRoom returns the current snapshot of a room. Operational
// read-only endpoint; room state is still owned exclusively by the
// relay router.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")

	snap, ok := s.router.Snapshot(id)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.config.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and closes all
// connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	return s.manager.ShutdownWithContext(ctx)
}
