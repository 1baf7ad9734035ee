// Package api serves a read-only live view of a run over HTTP: JSON status
// endpoints, a server-sent event stream and a websocket feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/seatsniper/seatsniper/internal/observer"
)

// MetricsSource supplies run metrics for the status endpoint
type MetricsSource interface {
	GetMetrics() observer.Metrics
	IsStalled(now time.Time) bool
}

// Server is the HTTP API server
type Server struct {
	feed     *Feed
	metrics  MetricsSource
	addr     string
	mux      *http.ServeMux
	sseHub   *SSEHub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewServer creates a new API server. metrics may be nil.
func NewServer(addr string, metrics MetricsSource, logger zerolog.Logger) *Server {
	s := &Server{
		metrics: metrics,
		addr:    addr,
		mux:     http.NewServeMux(),
		sseHub:  NewSSEHub(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	s.feed = NewFeed(s.Broadcast)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/courses", s.coursesHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/ws", s.wsHandler())
}

// Feed returns the engine observer that drives this server
func (s *Server) Feed() *Feed {
	return s.feed
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP until ctx is done
func (s *Server) Start(ctx context.Context) error {
	go s.sseHub.Run(ctx)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("status feed listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Broadcast sends an event to all streaming clients
func (s *Server) Broadcast(event SSEEvent) {
	s.sseHub.Broadcast(event)
}

func (s *Server) statusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		status := s.feed.Status()
		if s.metrics != nil {
			status.Metrics = s.metrics.GetMetrics()
			status.Stalled = s.metrics.IsStalled(time.Now())
		}
		writeJSON(w, status)
	}
}

func (s *Server) coursesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, s.feed.Courses())
	}
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
