// Package diagweb serves the operational surface: health, status and
// Prometheus metrics. The business API (scan/verify over HTTP) is a separate
// layer and deliberately not part of this engine.
package diagweb

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/netposture/netposture/internal/core/ports"
)

// Server hosts the diagnostics endpoints.
type Server struct {
	store   ports.VulnerabilityStore
	cache   ports.AdvisoryCache
	logger  *slog.Logger
	started time.Time
	http    *http.Server
}

// statusPayload is the /status response body.
type statusPayload struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	RecordCount   int64  `json:"record_count"`
	CacheEntries  int    `json:"cache_entries"`
}

// New builds the server for the given listen address.
func New(addr string, store ports.VulnerabilityStore, cache ports.AdvisoryCache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		cache:   cache,
		logger:  logger,
		started: time.Now(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "diagweb"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Start serves until Shutdown. Blocks; run it in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("diagnostics server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := statusPayload{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}

	if count, err := s.store.CountRecords(r.Context()); err == nil {
		payload.RecordCount = count
	} else {
		payload.Status = "degraded"
		s.logger.Warn("status: store count failed", "error", err)
	}
	if entries, err := s.cache.Len(r.Context()); err == nil {
		payload.CacheEntries = entries
	} else {
		s.logger.Warn("status: cache size failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("status: encode failed", "error", err)
	}
}
