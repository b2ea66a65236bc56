// Package relay implements the Katro relay server: a dumb message
// broker that pairs two clients in a room, rebroadcasts their move
// frames verbatim, and runs a presence lobby with invitations on the
// same connection multiplexer. All rule logic lives in the clients.
package relay

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
)

// Server accepts WebSocket connections and owns the room and lobby
// tables for their lifetime.
type Server struct {
	logger   *log.Logger
	clock    quartz.Clock
	upgrader websocket.Upgrader

	rooms *Rooms
	lobby *Lobby

	mu    sync.Mutex
	conns map[*Conn]struct{}

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithClock injects the clock used to stamp outbound frames; tests use
// a quartz mock for deterministic timestamps.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// NewServer creates a relay server.
func NewServer(logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		logger: logger.WithPrefix("relay"),
		clock:  quartz.NewReal(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The relay has no origin policy: clients are native apps,
			// not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rooms = NewRooms(s.logger)
	s.lobby = NewLobby(s.rooms, s.logger)
	return s
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}
	s.logger.Info("starting relay server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the listener and closes every live connection.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(ws, s, s.logger)

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info("client connected", "total", total)

	conn.start()
}

// drop runs all disconnect cleanup for a connection: lobby record
// removal (with its presence delta) and room seat clearing.
func (s *Server) drop(conn *Conn) {
	s.lobby.Drop(conn)
	s.rooms.Drop(conn)

	s.mu.Lock()
	delete(s.conns, conn)
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info("client disconnected", "total", total)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "ok")
}
