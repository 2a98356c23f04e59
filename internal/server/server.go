// Package server hosts the websocket session layer for the Spades game:
// the HTTP listener, per-session connections, and the orchestrator that
// serializes room transitions and fans out per-player snapshots.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/doubledeck/internal/room"
)

// Server is the websocket front end. It owns the session registry and
// delivers orchestrator messages to sessions.
type Server struct {
	cfg      *Config
	upgrader websocket.Upgrader
	sessions map[string]*Connection
	mu       sync.RWMutex
	logger   *log.Logger
	orch     *Orchestrator
	http     *http.Server
}

// NewServer wires the room manager, orchestrator, and websocket listener
// together.
func NewServer(cfg *Config, logger *log.Logger, clock quartz.Clock) *Server {
	s := &Server{
		cfg:      cfg,
		sessions: make(map[string]*Connection),
		logger:   logger.WithPrefix("server"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	rooms := room.NewManager(logger, nil)
	s.orch = NewOrchestrator(rooms, s, clock, cfg.Pacing(), logger)
	return s
}

// Orchestrator exposes the event layer, mainly for tests
func (s *Server) Orchestrator() *Orchestrator {
	return s.orch
}

// checkOrigin enforces the origin policy: same-origin only in production,
// plus the configured dev origins otherwise.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if !s.cfg.Server.Production {
		for _, allowed := range s.cfg.Server.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// Start runs the listener until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.http = &http.Server{
		Addr:    s.cfg.ListenAddress(),
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting websocket server", "addr", s.cfg.ListenAddress())
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.closeAllSessions()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// handleWebSocket upgrades a request and runs the session until it drops,
// then routes the disconnect into the orchestrator.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.orch, s.logger)
	s.register(client)
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
		s.orch.Disconnect(client.SessionID())
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

// SendToSession delivers a message to one session. Implements the
// orchestrator's sender.
func (s *Server) SendToSession(sessionID string, msg *Message) error {
	s.mu.RLock()
	conn, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("session not connected: %s", sessionID)
	}
	return conn.SendMessage(msg)
}

// SessionCount returns the number of live sessions
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.sessions[c.SessionID()] = c
	total := len(s.sessions)
	s.mu.Unlock()
	s.logger.Info("client connected", "total", total)
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.sessions, c.SessionID())
	total := len(s.sessions)
	s.mu.Unlock()
	_ = c.Close()
	s.logger.Info("client disconnected", "total", total)
}

func (s *Server) closeAllSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.sessions {
		_ = conn.Close()
	}
}
