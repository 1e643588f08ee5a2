// Package metrics pushes the outcome of a run to a Prometheus Pushgateway.
// A batch job exits before any scrape, so it pushes instead of serving.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/BartekS5/npiload/pkg/models"
)

const Job = "npiload"

// RunMetrics holds the gauges describing the last run.
type RunMetrics struct {
	registry *prometheus.Registry

	success      prometheus.Gauge
	duration     prometheus.Gauge
	rowsLoaded   prometheus.Gauge
	rowsAdded    prometheus.Gauge
	sourceRows   prometheus.Gauge
	payloadBytes prometheus.Gauge
	finishedAt   prometheus.Gauge
	failures     *prometheus.GaugeVec
}

// New registers the run gauges on a private registry.
func New() *RunMetrics {
	m := &RunMetrics{registry: prometheus.NewRegistry()}

	m.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_last_run_success",
		Help: "1 when the last run loaded successfully, 0 otherwise.",
	})
	m.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_last_run_duration_seconds",
		Help: "Wall-clock duration of the last run.",
	})
	m.rowsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_rows_loaded",
		Help: "Row count of the target table after the last load.",
	})
	m.rowsAdded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_rows_added",
		Help: "Final minus initial row count of the last load.",
	})
	m.sourceRows = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_source_rows",
		Help: "Data rows counted in the extracted CSV.",
	})
	m.payloadBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_payload_bytes",
		Help: "Size of the extracted CSV.",
	})
	m.finishedAt = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "npiload_last_run_finished_timestamp_seconds",
		Help: "Unix time the last run finished.",
	})
	m.failures = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "npiload_last_run_failure",
		Help: "1 for the error kind that failed the last run.",
	}, []string{"kind"})

	// Row gauges are registered by Observe once their count is known, so a
	// run that failed before counting pushes no row series at all.
	m.registry.MustRegister(m.success, m.duration, m.payloadBytes, m.finishedAt, m.failures)
	return m
}

// Observe sets every gauge from a finished run.
func (m *RunMetrics) Observe(r *models.RunReport) {
	if r.Status == models.RunSucceeded {
		m.success.Set(1)
	} else {
		m.success.Set(0)
		m.failures.WithLabelValues(r.ErrorKind).Set(1)
	}
	m.duration.Set(r.Duration.Seconds())
	m.setCount(m.rowsLoaded, r.FinalRows, r.FinalRows >= 0)
	m.setCount(m.sourceRows, r.SourceRows, r.SourceRows >= 0)
	m.setCount(m.rowsAdded, r.RowsAdded(), r.InitialRows >= 0 && r.FinalRows >= 0)
	m.payloadBytes.Set(float64(r.PayloadBytes))
	m.finishedAt.Set(float64(r.FinishedAt.Unix()))
}

// setCount registers g and sets it to n. Counts that were not captured
// leave g unregistered.
func (m *RunMetrics) setCount(g prometheus.Gauge, n int64, known bool) {
	if !known {
		return
	}
	if err := m.registry.Register(g); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return
		}
	}
	g.Set(float64(n))
}

// Registry exposes the private registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry { return m.registry }

// Pusher sends the registry to a Pushgateway grouped by dataset.
type Pusher struct {
	URL string
}

// Push replaces the metrics previously pushed for the same job and dataset.
func (p *Pusher) Push(ctx context.Context, m *RunMetrics, dataset string) error {
	err := push.New(p.URL, Job).
		Gatherer(m.registry).
		Grouping("dataset", dataset).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.URL, err)
	}
	return nil
}
