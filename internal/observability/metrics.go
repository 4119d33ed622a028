package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/jonathan/license-delivery/internal/types"
)

// RunMetrics holds the gauges describing the most recent delivery run.
// Each collector lives on its own registry so runs never share state.
type RunMetrics struct {
	registry *prometheus.Registry

	discovered         prometheus.Gauge
	enriched           prometheus.Gauge
	enrichmentFailures prometheus.Gauge
	outcomes           *prometheus.GaugeVec
	duration           prometheus.Gauge
	lastRun            prometheus.Gauge
}

// NewRunMetrics creates and registers the run gauges.
func NewRunMetrics() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		discovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_tickets_discovered",
			Help: "Parent tickets matched by discovery in the last run",
		}),
		enriched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_tickets_enriched",
			Help: "Parent tickets that survived enrichment in the last run",
		}),
		enrichmentFailures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_enrichment_failures",
			Help: "Parent tickets dropped during enrichment in the last run",
		}),
		outcomes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "delivery_ticket_outcomes",
			Help: "Ticket outcomes per phase and status in the last run",
		}, []string{"phase", "status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "delivery_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.discovered,
		m.enriched,
		m.enrichmentFailures,
		m.outcomes,
		m.duration,
		m.lastRun,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe sets every gauge from a finished run.
func (m *RunMetrics) Observe(summary *types.RunSummary) {
	if summary == nil {
		return
	}

	m.discovered.Set(float64(summary.Discovered))
	m.enriched.Set(float64(summary.Enriched))
	m.enrichmentFailures.Set(float64(summary.EnrichmentFailures))

	for _, phase := range []types.Phase{types.PhaseTransfer, types.PhaseNotification} {
		c := summary.Counts(phase)
		m.outcomes.WithLabelValues(string(phase), string(types.OutcomeSucceeded)).Set(float64(c.Succeeded))
		m.outcomes.WithLabelValues(string(phase), string(types.OutcomeSkipped)).Set(float64(c.Skipped))
		m.outcomes.WithLabelValues(string(phase), string(types.OutcomeFailed)).Set(float64(c.Failed))
		m.outcomes.WithLabelValues(string(phase), string(types.OutcomeMutationFailed)).Set(float64(c.MutationFailed))
	}

	if !summary.FinishedAt.IsZero() {
		m.duration.Set(summary.FinishedAt.Sub(summary.Run.StartedAt).Seconds())
		m.lastRun.Set(float64(summary.FinishedAt.Unix()))
	}
}

// Push sends the gauges to a Prometheus Pushgateway under job.
func (m *RunMetrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
