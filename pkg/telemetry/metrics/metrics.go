// Package metrics exposes prometheus instrumentation for policy evaluation,
// snapshot storage, and exception escalation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stranske/tripward/pkg/policy/engine"
)

// Config controls metric naming.
type Config struct {
	// Namespace prefixes every metric name. Default: "tripward".
	Namespace string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{Namespace: "tripward"}
}

// Collector registers and records all tripward metrics. It implements the
// engine's Recorder and the exception sweeper's EscalationRecorder.
type Collector struct {
	ruleEvaluations  *prometheus.CounterVec
	blockingFailures *prometheus.CounterVec
	snapshotAppends  prometheus.Counter
	snapshotRejects  *prometheus.CounterVec
	chainChecks      *prometheus.CounterVec
	escalations      prometheus.Counter
}

// NewCollector creates and registers the collector's metrics with the
// provided registry.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &Collector{
		ruleEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total rule evaluations by rule and outcome",
			},
			[]string{"rule_id", "outcome"},
		),
		blockingFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "blocking_failures_total",
				Help:      "Total blocking rule failures by rule",
			},
			[]string{"rule_id"},
		),
		snapshotAppends: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "snapshot_appends_total",
				Help:      "Total snapshots appended to the audit chain",
			},
		),
		snapshotRejects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "snapshot_rejects_total",
				Help:      "Total snapshot appends rejected, by reason",
			},
			[]string{"reason"},
		),
		chainChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "chain_verifications_total",
				Help:      "Total snapshot chain verifications by result",
			},
			[]string{"result"},
		),
		escalations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "exception_escalations_total",
				Help:      "Total exception requests escalated past the SLA window",
			},
		),
	}

	registry.MustRegister(
		c.ruleEvaluations,
		c.blockingFailures,
		c.snapshotAppends,
		c.snapshotRejects,
		c.chainChecks,
		c.escalations,
	)
	return c
}

// RecordRuleEvaluation records one rule evaluation outcome.
func (c *Collector) RecordRuleEvaluation(ruleID string, passed bool, severity engine.Severity) {
	outcome := "pass"
	if !passed {
		outcome = "fail"
	}
	c.ruleEvaluations.WithLabelValues(ruleID, outcome).Inc()
	if !passed && severity == engine.SeverityBlocking {
		c.blockingFailures.WithLabelValues(ruleID).Inc()
	}
}

// RecordSnapshotAppend records a successful append.
func (c *Collector) RecordSnapshotAppend() {
	c.snapshotAppends.Inc()
}

// RecordSnapshotReject records a rejected append by reason
// ("exists", "too_large", "chain_conflict").
func (c *Collector) RecordSnapshotReject(reason string) {
	c.snapshotRejects.WithLabelValues(reason).Inc()
}

// RecordChainVerification records a chain verification by result
// ("ok", "broken").
func (c *Collector) RecordChainVerification(result string) {
	c.chainChecks.WithLabelValues(result).Inc()
}

// RecordEscalations records escalated exception requests.
func (c *Collector) RecordEscalations(count int) {
	c.escalations.Add(float64(count))
}
