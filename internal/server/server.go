// Package server exposes a running effect loop over local HTTP: health,
// a state snapshot, the MJPEG preview, the event websocket, metrics and the
// recorded history.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/volverse/internal/metrics"
	"github.com/ayusman/volverse/internal/server/api"
	"github.com/ayusman/volverse/internal/store"
)

// Status is the JSON snapshot served at /api/state.
type Status struct {
	Effect      string    `json:"effect"`
	Phase       string    `json:"phase"`
	Mode        string    `json:"mode,omitempty"`
	Opacity     float64   `json:"opacity"`
	Frames      int       `json:"frames"`
	LastGesture time.Time `json:"last_gesture,omitzero"`
	Detail      string    `json:"detail,omitempty"`
}

// StatusFunc returns the current Status. It is called from request
// goroutines and must be safe for concurrent use.
type StatusFunc func() Status

// Config holds the server configuration. Nil fields disable their routes.
type Config struct {
	Status  StatusFunc
	Frames  *FrameBuffer
	Events  *EventHub
	Metrics *metrics.Metrics
	Store   *store.Store
	Log     *zap.Logger
}

// Server represents the HTTP server for a running effect.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    log,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Status != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
	}
	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}
	if s.config.Events != nil {
		s.mux.Handle("/api/events", s.config.Events)
	}
	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}

	if s.config.Store != nil {
		sessions := api.NewSessionHandler(s.config.Store)
		artworks := api.NewArtworkHandler(s.config.Store)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
		s.mux.Handle("/api/artworks", artworks)
		s.mux.Handle("/api/artworks/", artworks)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	})
}

// handleState handles GET requests to /api/state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.config.Status())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// Run listens on addr and serves until ctx is cancelled, then shuts down
// gracefully. Long-lived stream and websocket requests end with ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
