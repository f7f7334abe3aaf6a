package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shopfeeds/internal/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes the collectors on /metrics for processes that have no API
// router, such as the Kafka worker.
type Server struct {
	logger *logger.Logger
	server *http.Server
}

func NewServer(addr string, logger *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		logger: logger.Named("metrics"),
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Stop is called. A listener error is logged.
func (s *Server) Start() {
	s.logger.Info("Serving metrics on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Metrics server failed: %v", err)
	}
}

func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.server.Handler
}
