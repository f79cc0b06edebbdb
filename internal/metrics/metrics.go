// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package metrics exposes Prometheus metrics about reconciliation runs.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toeirei/keysync/internal/model"
)

// Metrics holds all Prometheus metrics for keysync. Each instance owns its
// registry so that tests can build several without collisions.
type Metrics struct {
	Registry *prometheus.Registry

	Runs        *prometheus.CounterVec
	KeyWrites   *prometheus.CounterVec
	RemoteKeys  prometheus.Gauge
	ClientKeys  prometheus.Gauge
	LastSuccess prometheus.Gauge
	RunDuration prometheus.Histogram
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keysync_runs_total",
			Help: "Reconciliation runs by outcome",
		}, []string{"outcome"}),
		KeyWrites: f.NewCounterVec(prometheus.CounterOpts{
			Name: "keysync_key_writes_total",
			Help: "Per-key import and delete results reported by the key manager",
		}, []string{"op", "status"}),
		RemoteKeys: f.NewGauge(prometheus.GaugeOpts{
			Name: "keysync_signer_keys",
			Help: "Number of keys listed by the remote signer in the last run",
		}),
		ClientKeys: f.NewGauge(prometheus.GaugeOpts{
			Name: "keysync_client_keys",
			Help: "Number of remote keys listed by the client in the last run",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "keysync_last_success_timestamp_seconds",
			Help: "Unix time of the last run that finished without errors",
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "keysync_run_duration_seconds",
			Help:    "Wall time of reconciliation runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRun records a finished run. It never fails.
func (m *Metrics) ObserveRun(_ context.Context, rep *model.RunReport) error {
	m.Runs.WithLabelValues(string(rep.Outcome())).Inc()
	m.RunDuration.Observe(rep.Duration().Seconds())
	if rep.ReadErr != nil {
		return nil
	}
	m.RemoteKeys.Set(float64(rep.RemoteCount))
	m.ClientKeys.Set(float64(rep.ClientCount))
	for _, s := range rep.Imported {
		m.KeyWrites.WithLabelValues("import", s.Status).Inc()
	}
	for _, s := range rep.Deleted {
		m.KeyWrites.WithLabelValues("delete", s.Status).Inc()
	}
	if rep.Succeeded() {
		m.LastSuccess.Set(float64(rep.FinishedAt.Unix()))
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
