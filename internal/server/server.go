// Package server exposes the agent's own HTTP endpoint: prometheus
// metrics and a health probe.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fritz-collector/config"
)

const defaultShutdownTimeout = 5 * time.Second

// Server wraps the agent's HTTP endpoint.
type Server struct {
	cfg    config.ServerConfig
	log    *zap.Logger
	server *http.Server
}

// NewHTTPServer builds the server with /, /health and /metrics routes.
func NewHTTPServer(cfg config.ServerConfig, log *zap.Logger, registry *prometheus.Registry) *Server {
	srv := &Server{cfg: cfg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("fritz-collector\n\n/health\n/metrics\n"))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(log),
	}))

	srv.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.logMiddleware(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return srv
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.log.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", sw.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// Start serves in the background.
func (s *Server) Start() error {
	s.log.Info("starting HTTP server", zap.String("listen_addr", s.cfg.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP server failed", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.log.Warn("shutdown timeout exceeded")
			return nil
		}
		return err
	}
	s.log.Info("HTTP server shutdown successfully")
	return nil
}
