// Package api exposes the scraper's operational HTTP surface: health,
// metrics, the latest snapshot, and a manual cycle trigger.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/metrics"
	"github.com/mwhitten/stagehand/internal/scheduler"
)

// Runner triggers a single scrape cycle on demand.
type Runner interface {
	RunOnce(ctx context.Context) error
}

// Server wires HTTP handlers to the scheduler and artifact directory.
type Server struct {
	router       chi.Router
	runner       Runner
	snapshotPath string
	logger       *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner Runner, snapshotPath string, logger *zap.Logger) *Server {
	metrics.Init()
	s := &Server{
		runner:       runner,
		snapshotPath: snapshotPath,
		logger:       logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/events", s.events)
	r.Post("/scrape", s.scrape)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// events serves the most recent JSON snapshot, or 404 before the first
// successful cycle.
func (s *Server) events(w http.ResponseWriter, _ *http.Request) {
	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "no snapshot available yet")
			return
		}
		s.logger.Error("snapshot read failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("snapshot write failed", zap.Error(err))
	}
}

// scrape triggers a manual cycle. An in-flight cycle answers 409.
func (s *Server) scrape(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.RunOnce(r.Context()); err != nil {
		if errors.Is(err, scheduler.ErrCycleInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("manual scrape failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
