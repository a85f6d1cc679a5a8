// Package httpapi exposes the read-only pipeline status surface over
// HTTP. It reports; it never mutates: every piece of state it serves
// is a copy-on-read snapshot from the pipelines' status trackers.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driving"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// shutdownTimeout bounds graceful shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// Server serves pipeline status over HTTP.
type Server struct {
	router    chi.Router
	pipelines []driving.PipelineRunner
	startedAt time.Time
}

// NewServer creates the status server for the given pipelines.
func NewServer(pipelines []driving.PipelineRunner) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		pipelines: pipelines,
		startedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("HTTP %s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
		})
	})

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/status", s.handleStatus)
	s.router.Get("/status/{id}", s.handlePipelineStatus)
}

// Handler returns the HTTP handler backing the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down
// gracefully. A closed listener after cancellation is a clean return.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		httpServer.Shutdown(shutCtx) //nolint:errcheck
	}()

	logger.Info("Status server listening on http://%s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]domain.RunState, 0, len(s.pipelines))
	for _, p := range s.pipelines {
		statuses = append(statuses, p.Status())
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, p := range s.pipelines {
		if p.ID() == id {
			writeJSON(w, http.StatusOK, p.Status())
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("unknown pipeline %q", id))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger.Warn("HTTP request failed (%d): %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
