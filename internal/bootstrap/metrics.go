// filepath: internal/bootstrap/metrics.go
package bootstrap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics holds the bootstrap metrics in a registry of their own, so a
// one-shot process can dump them to a textfile for the node exporter.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageOutcomes *prometheus.CounterVec
	rowsSeeded    prometheus.Counter
	lastSuccess   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_bootstrap_stage_duration_seconds",
			Help:    "Duration of each storage bootstrap stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"stage"}),
		stageOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_bootstrap_stage_total",
			Help: "Storage bootstrap stages by outcome",
		}, []string{"stage", "outcome"}),
		rowsSeeded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_bootstrap_seed_rows_inserted_total",
			Help: "Demo rows inserted by the seeder",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "backoffice_bootstrap_last_success_timestamp_seconds",
			Help: "Unix time of the last bootstrap without a fatal error",
		}),
	}
	m.registry.MustRegister(m.stageDuration, m.stageOutcomes, m.rowsSeeded, m.lastSuccess)

	// a stage the run never reached is still exported, at zero
	for _, stage := range Stages {
		m.stageOutcomes.WithLabelValues(string(stage), outcomeOK)
	}
	return m
}

// Registry exposes the metrics for scraping or testing.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(stage Stage, started time.Time, outcome string) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
	m.stageOutcomes.WithLabelValues(string(stage), outcome).Inc()
}

func (m *Metrics) seeded(n int) {
	if m == nil {
		return
	}
	m.rowsSeeded.Add(float64(n))
}

func (m *Metrics) succeeded() {
	if m == nil {
		return
	}
	m.lastSuccess.SetToCurrentTime()
}
