package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/tcdiag-service/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DiagnosticsSource exposes the most recent diagnostics run, or nil before
// the first run completes.
type DiagnosticsSource interface {
	LastDiagnostics() *domain.TCDiagnostics
}

// Server exposes health, readiness, metrics, and run-status HTTP endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /diagz routes.
func NewServer(addr string, ready ReadinessChecker, diags DiagnosticsSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.HandleFunc("GET /diagz", handleDiagnostics(diags))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// runStatus is the /diagz response body.
type runStatus struct {
	Completed []string          `json:"completed"`
	Failed    map[string]string `json:"failed,omitempty"`
	TCs       []string          `json:"tcs,omitempty"`
}

func handleDiagnostics(source DiagnosticsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		diags := source.LastDiagnostics()
		if diags == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "no diagnostics run yet"})
			return
		}

		status := runStatus{Completed: []string{}}
		if diags.PotentialIntensity != nil {
			status.Completed = append(status.Completed, "tcpi")
		}
		if diags.MultiScale != nil {
			status.Completed = append(status.Completed, "tcmsi")
		}
		if diags.Steering != nil {
			status.Completed = append(status.Completed, "tcstrflw")
		}
		if diags.OceanHeat != nil {
			status.Completed = append(status.Completed, "tcohc")
		}
		if len(diags.Failed) > 0 {
			status.Failed = make(map[string]string, len(diags.Failed))
			for app, err := range diags.Failed {
				status.Failed[app] = err.Error()
			}
		}
		for tcid := range diags.MultiScale {
			status.TCs = append(status.TCs, tcid)
		}
		sort.Strings(status.TCs)

		writeJSON(w, http.StatusOK, status)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
