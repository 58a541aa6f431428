// Package metrics exposes popup lifecycle counters over Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/popctl/internal/config"
	"github.com/jmylchreest/popctl/internal/popup"
)

const namespace = "popctl"

// Metrics records popup transitions. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	open         *prometheus.GaugeVec
	openDuration *prometheus.HistogramVec
	reloads      *prometheus.CounterVec

	mu       sync.Mutex
	openedAt map[string]time.Time
	now      func() time.Time
}

// New creates a collector on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "popup_transitions_total",
				Help:      "Total number of popup state changes by target state",
			},
			[]string{"popup", "state"},
		),
		open: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "popup_open",
				Help:      "Whether a popup is attached to the document (1) or not (0)",
			},
			[]string{"popup"},
		),
		openDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "popup_open_duration_seconds",
				Help:      "Time from a popup opening until it is detached again",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"popup"},
		),
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of config reloads by result",
			},
			[]string{"result"},
		),
		openedAt: make(map[string]time.Time),
		now:      time.Now,
	}
	registry.MustRegister(
		m.transitions,
		m.open,
		m.openDuration,
		m.reloads,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordState counts a state change and tracks how long popups stay open.
func (m *Metrics) RecordState(id string, state popup.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(id, state.String()).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	switch state {
	case popup.StateOpen:
		m.open.WithLabelValues(id).Set(1)
		if _, ok := m.openedAt[id]; !ok {
			m.openedAt[id] = m.now()
		}
	case popup.StateIdle, popup.StatePending:
		m.open.WithLabelValues(id).Set(0)
		if at, ok := m.openedAt[id]; ok {
			m.openDuration.WithLabelValues(id).Observe(m.now().Sub(at).Seconds())
			delete(m.openedAt, id)
		}
	}
}

// RecordReload counts a config reload attempt.
func (m *Metrics) RecordReload(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reloads.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes the endpoint on cfg.Listen until ctx is done.
func (m *Metrics) Serve(ctx context.Context, cfg config.MetricsConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	path := cfg.Path
	if path == "" {
		path = config.DefaultMetricsPath
	}

	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server error", "error", err)
		}
	}()

	logger.Info("metrics endpoint listening", "addr", ln.Addr().String(), "path", path)
	return nil
}
