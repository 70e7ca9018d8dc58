// Package server exposes health, readiness, self-metrics and the cooldown
// registry over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/cyraxabir/minio-anomaly-detector/internal/alert"
	"github.com/cyraxabir/minio-anomaly-detector/internal/monitor"
	"github.com/cyraxabir/minio-anomaly-detector/internal/version"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// MonitorStatus is the part of the monitor the server reports on.
type MonitorStatus interface {
	State() monitor.State
	LastCycle() (time.Time, int64)
	Interval() time.Duration
}

// CooldownRegistry is the part of the alert gate the server reports on.
type CooldownRegistry interface {
	Snapshot() []alert.CooldownEntry
	Cooldown() time.Duration
}

// Server is the status HTTP server.
type Server struct {
	addr    string
	monitor MonitorStatus
	gate    CooldownRegistry
	logger  *zap.Logger
	router  *mux.Router
}

type statusResponse struct {
	State           monitor.State `json:"state"`
	Version         string        `json:"version"`
	Cycles          int64         `json:"cycles"`
	LastCycle       *time.Time    `json:"last_cycle,omitempty"`
	IntervalSeconds float64       `json:"interval_seconds"`
}

type cooldownsResponse struct {
	CooldownSeconds float64               `json:"cooldown_seconds"`
	Entries         []alert.CooldownEntry `json:"entries"`
}

// New creates a server listening on addr.
func New(addr string, mon MonitorStatus, gate CooldownRegistry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:    addr,
		monitor: mon,
		gate:    gate,
		logger:  logger.Named("server"),
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/cooldowns", s.handleCooldowns).Methods(http.MethodGet)
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "http.request",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening", zap.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	s.logger.Info("Status server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.monitor == nil || s.monitor.State() != monitor.StateRunning {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not running"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{State: monitor.StateStopped, Version: version.Version}
	if s.monitor != nil {
		last, cycles := s.monitor.LastCycle()
		resp.State = s.monitor.State()
		resp.Cycles = cycles
		resp.IntervalSeconds = s.monitor.Interval().Seconds()
		if !last.IsZero() {
			resp.LastCycle = &last
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCooldowns(w http.ResponseWriter, r *http.Request) {
	resp := cooldownsResponse{Entries: []alert.CooldownEntry{}}
	if s.gate != nil {
		resp.CooldownSeconds = s.gate.Cooldown().Seconds()
		resp.Entries = s.gate.Snapshot()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", zap.Error(err))
	}
}
