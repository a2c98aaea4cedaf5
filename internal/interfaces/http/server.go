package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/config"
	"github.com/mwhitt/stockpulse/internal/engine"
)

// Server exposes the engine's three operations plus portfolio and
// observability endpoints as the JSON boundary the dashboard consumes.
type Server struct {
	router *mux.Router
	server *http.Server
	cfg    config.ServerConfig
}

// NewServer wires routes over an engine and worker. registry may be nil
// to use the default Prometheus registry.
func NewServer(cfg config.ServerConfig, eng *engine.Engine, worker *engine.Worker, registry *prometheus.Registry) *Server {
	router := mux.NewRouter()

	h := &handlers{engine: eng, worker: worker}
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/v1/analyze", h.analyze).Methods(http.MethodPost)
	router.HandleFunc("/v1/backtest", h.backtest).Methods(http.MethodPost)
	router.HandleFunc("/v1/trade", h.trade).Methods(http.MethodPost)
	router.HandleFunc("/v1/portfolio", h.portfolio).Methods(http.MethodGet)

	var metricsHandler http.Handler
	if registry != nil {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		metricsHandler = promhttp.Handler()
	}
	router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	s := &Server{router: router, cfg: cfg}
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  cfg.IdleTimeout(),
	}
	return s
}

// Start blocks serving HTTP until Shutdown or a listener error.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
