package reconcile

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics collects pass metrics on a private registry and optionally
// pushes them to a Pushgateway after a pass, the batch-job idiom: the
// process is short-lived, so nothing scrapes it.
type Metrics struct {
	fleet   string
	pushURL string

	registry *prometheus.Registry

	passes           *prometheus.CounterVec
	passDuration     *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	instancesDesired *prometheus.GaugeVec
}

// NewMetrics creates a metrics sink for a fleet. An empty
// pushgatewayURL disables pushing; the registry still collects.
func NewMetrics(fleet, pushgatewayURL string) *Metrics {
	m := &Metrics{
		fleet:    fleet,
		pushURL:  pushgatewayURL,
		registry: prometheus.NewRegistry(),

		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pvefleet",
				Subsystem: "reconcile",
				Name:      "passes_total",
				Help:      "Total number of reconciliation passes by result",
			},
			[]string{"fleet", "result"},
		),
		passDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pvefleet",
				Subsystem: "reconcile",
				Name:      "pass_duration_seconds",
				Help:      "Duration of reconciliation passes in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
			},
			[]string{"fleet"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pvefleet",
				Subsystem: "reconcile",
				Name:      "operations_total",
				Help:      "Total number of instance operations by op and result",
			},
			[]string{"fleet", "op", "result"},
		),
		instancesDesired: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "pvefleet",
				Subsystem: "fleet",
				Name:      "instances_desired",
				Help:      "Desired number of instances by group",
			},
			[]string{"fleet", "group"},
		),
	}

	m.registry.MustRegister(
		m.passes,
		m.passDuration,
		m.operations,
		m.instancesDesired,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the collected metrics to the Pushgateway. No-op without a
// configured URL.
func (m *Metrics) Push(ctx context.Context) error {
	if m.pushURL == "" {
		return nil
	}
	return push.New(m.pushURL, "pvefleet").
		Gatherer(m.registry).
		Grouping("fleet", m.fleet).
		PushContext(ctx)
}

func (m *Metrics) recordPass(result string, seconds float64) {
	m.passes.WithLabelValues(m.fleet, result).Inc()
	m.passDuration.WithLabelValues(m.fleet).Observe(seconds)
}

func (m *Metrics) recordOperation(op Op, result string) {
	m.operations.WithLabelValues(m.fleet, string(op), result).Inc()
}

func (m *Metrics) setDesired(group string, count int) {
	m.instancesDesired.WithLabelValues(m.fleet, group).Set(float64(count))
}

// Metrics helper methods that tolerate a nil sink, so call sites skip
// the repeated nil check.

func (r *Reconciler) recordPass(report *Report) {
	if r.metrics == nil {
		return
	}
	for gi := range r.cfg.Groups {
		g := &r.cfg.Groups[gi]
		r.metrics.setDesired(g.Name, g.Count)
	}
	r.recordPassResults(report)
}

func (r *Reconciler) recordPassResults(report *Report) {
	if r.metrics == nil {
		return
	}
	for _, res := range report.Results {
		r.metrics.recordOperation(res.Op, resultLabel(res))
	}
	result := "success"
	switch {
	case report.Failed() > 0:
		result = "failure"
	case report.Degraded() > 0:
		result = "degraded"
	}
	r.metrics.recordPass(result, report.Duration.Seconds())
}

func resultLabel(res OrdinalResult) string {
	switch {
	case res.Degraded:
		return "degraded"
	case res.Err != nil:
		return "failure"
	default:
		return "success"
	}
}
