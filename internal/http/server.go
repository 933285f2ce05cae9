// Package http serves Prometheus metrics and health endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"spotiskill/internal/core"
)

type Server struct {
	config  *core.ServerConfig
	logger  *zap.Logger
	server  *http.Server
	metrics *Metrics
}

type Metrics struct {
	CommandsTotal   *prometheus.CounterVec
	ProcessingTime  *prometheus.HistogramVec
	APIErrorsTotal  *prometheus.CounterVec
	CacheRefreshNum *prometheus.CounterVec
	CachedPlaylists prometheus.Gauge
	CachedDevices   prometheus.Gauge
}

func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	metrics := &Metrics{
		CommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotiskill_commands_total",
				Help: "Total number of commands processed",
			},
			[]string{"action", "status"},
		),
		ProcessingTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spotiskill_processing_duration_seconds",
				Help:    "Time spent processing commands",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotiskill_api_errors_total",
				Help: "Total number of streaming API errors",
			},
			[]string{"operation"},
		),
		CacheRefreshNum: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spotiskill_cache_refreshes_total",
				Help: "Total number of catalog cache refreshes",
			},
			[]string{"status"},
		),
		CachedPlaylists: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spotiskill_cached_playlists",
				Help: "Number of playlists in the catalog cache",
			},
		),
		CachedDevices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "spotiskill_cached_devices",
				Help: "Number of devices in the catalog cache",
			},
		),
	}

	prometheus.MustRegister(
		metrics.CommandsTotal,
		metrics.ProcessingTime,
		metrics.APIErrorsTotal,
		metrics.CacheRefreshNum,
		metrics.CachedPlaylists,
		metrics.CachedDevices,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"spotiskill"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready","service":"spotiskill"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return &Server{
		config:  config,
		logger:  logger,
		server:  server,
		metrics: metrics,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) RecordCommand(action, status string) {
	s.metrics.CommandsTotal.WithLabelValues(action, status).Inc()
}

func (s *Server) RecordProcessingTime(action string, duration time.Duration) {
	s.metrics.ProcessingTime.WithLabelValues(action).Observe(duration.Seconds())
}

func (s *Server) RecordAPIError(operation string) {
	s.metrics.APIErrorsTotal.WithLabelValues(operation).Inc()
}

func (s *Server) RecordCacheRefresh(status string) {
	s.metrics.CacheRefreshNum.WithLabelValues(status).Inc()
}

func (s *Server) SetCatalogSize(playlists, devices int) {
	s.metrics.CachedPlaylists.Set(float64(playlists))
	s.metrics.CachedDevices.Set(float64(devices))
}
