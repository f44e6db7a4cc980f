package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/calfire-rainfall-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// readinessTimeout bounds a single CheckReadiness call.
const readinessTimeout = 2 * time.Second

// Job is the running pipeline as seen by the status endpoints.
type Job interface {
	CheckReadiness(ctx context.Context) error
	Status() pipeline.Status
}

// Server exposes the state of a single ETL run over HTTP for as long as the
// process lives.
type Server struct {
	routes     http.Handler
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires /healthz, /readyz, /status, and /metrics for job. Metrics
// come from gatherer so only the job's own collectors are exported.
func NewServer(addr string, job Job, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleLive(job))
	mux.HandleFunc("GET /readyz", handleReady(job))
	mux.HandleFunc("GET /status", handleStatus(job))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		routes: mux,
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks serving status requests until Shutdown is called, then
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("status server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the status server once the run has finished.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("status server stopping")
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP routes r without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.routes.ServeHTTP(w, r)
}

// handleLive answers as long as the process is up, whatever the run state.
func handleLive(job Job) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st := job.Status()
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"run_id": st.RunID,
			"state":  st.State,
		})
	}
}

// handleReady reports 503 once the run has failed.
func handleReady(job Job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if err := job.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func handleStatus(job Job) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, job.Status())
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	// Headers are already written, so an encode error cannot change the response.
	_ = json.NewEncoder(w).Encode(body)
}
