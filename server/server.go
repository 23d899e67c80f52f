// Package server streams icon frames to browsers over a websocket
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/status"
)

//go:embed static
var staticFiles embed.FS

// Server owns the HTTP surface; every websocket connection mounts its own field
type Server struct {
	cfg      config.ServerConfig
	params   field.Params
	clock    clock.Clock
	reg      *status.Registry
	log      *zap.Logger
	upgrader websocket.Upgrader

	// Optional per-session observer, audio pops on the host for example
	observer func(field.Event)

	clients     atomic.Int64
	statClients *atomic.Int64
	statFrames  *atomic.Int64
}

// Option customises a Server
type Option func(*Server)

func WithClock(c clock.Clock) Option { return func(s *Server) { s.clock = c } }

func WithRegistry(r *status.Registry) Option { return func(s *Server) { s.reg = r } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithObserver is attached to every session field
func WithObserver(fn func(field.Event)) Option { return func(s *Server) { s.observer = fn } }

// New creates a server, params are validated per session by field.New
func New(cfg config.ServerConfig, params field.Params, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		params: params,
		clock:  clock.NewReal(),
		log:    zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reg == nil {
		s.reg = status.NewRegistry()
	}
	s.statClients = s.reg.Ints.Get(status.KeyClients)
	s.statFrames = s.reg.Ints.Get(status.KeyFramesSent)
	return s
}

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// The embed directive guarantees the directory
		panic(err)
	}
	mux.Handle("GET /", http.FileServer(http.FS(sub)))
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

// ListenAndServe serves until ctx ends, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Clients returns the number of live websocket sessions
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.reg.Snapshot()); err != nil {
		s.log.Warn("failed to encode stats", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if limit := s.cfg.MaxClients; limit > 0 && s.clients.Load() >= int64(limit) {
		http.Error(w, "too many clients", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	s.clients.Add(1)
	s.statClients.Add(1)
	defer func() {
		s.clients.Add(-1)
		s.statClients.Add(-1)
	}()

	sess, err := newSession(s, conn, r.RemoteAddr)
	if err != nil {
		s.log.Error("failed to create session", zap.Error(err))
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "field unavailable")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
		return
	}
	sess.run(r.Context())
}
