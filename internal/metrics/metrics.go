package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for guardian.
// Every recording method is safe to call on a nil *Metrics.
type Metrics struct {
	// Shell command metrics
	CommandRuns     *prometheus.CounterVec
	CommandDuration prometheus.Histogram

	// Resolution and prerequisite metrics
	Resolutions   *prometheus.CounterVec
	Prerequisites *prometheus.CounterVec

	// Security audit metrics
	Audits        *prometheus.CounterVec
	AuditFindings *prometheus.CounterVec

	// Supervision metrics
	LivenessTransitions *prometheus.CounterVec
	ProcessUp           prometheus.Gauge
	StopOutcomes        *prometheus.CounterVec

	// Console and health metrics
	ConsoleCommands *prometheus.CounterVec
	HealthChecks    *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		CommandRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_command_runs_total",
				Help: "Shell commands run, by failure kind",
			},
			[]string{"failure"},
		),
		CommandDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "guardian_command_duration_seconds",
				Help:    "Shell command duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),

		Resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_resolutions_total",
				Help: "Executable resolutions, by logical name and method",
			},
			[]string{"name", "method"},
		),
		Prerequisites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_prerequisite_states_total",
				Help: "Terminal prerequisite states reached",
			},
			[]string{"name", "state"},
		),

		Audits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_audits_total",
				Help: "Security audits, by recommendation",
			},
			[]string{"recommendation"},
		),
		AuditFindings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_audit_findings_total",
				Help: "Severity keyword occurrences seen in audit output",
			},
			[]string{"severity"},
		),

		LivenessTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_liveness_transitions_total",
				Help: "Supervised process liveness transitions, by target state",
			},
			[]string{"to"},
		),
		ProcessUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "guardian_process_up",
				Help: "1 while the supervised process is stable-running",
			},
		),
		StopOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_stop_outcomes_total",
				Help: "Stop requests, by outcome",
			},
			[]string{"outcome"},
		),

		ConsoleCommands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_console_commands_total",
				Help: "Operator console commands, by command",
			},
			[]string{"command"},
		),
		HealthChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_health_checks_total",
				Help: "Health check results, by checker and status",
			},
			[]string{"checker", "status"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardian_errors_total",
				Help: "Errors surfaced to the operator, by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordCommand counts one shell command run.
func (m *Metrics) RecordCommand(failure string, d time.Duration) {
	if m == nil {
		return
	}
	m.CommandRuns.WithLabelValues(failure).Inc()
	m.CommandDuration.Observe(d.Seconds())
}

// RecordResolution counts a successful executable resolution.
func (m *Metrics) RecordResolution(name, method string) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(name, method).Inc()
}

// RecordPrerequisite counts a terminal prerequisite state.
func (m *Metrics) RecordPrerequisite(name, state string) {
	if m == nil {
		return
	}
	m.Prerequisites.WithLabelValues(name, state).Inc()
}

// RecordAudit counts an audit and its severity keyword counts.
func (m *Metrics) RecordAudit(recommendation string, findings map[string]int) {
	if m == nil {
		return
	}
	m.Audits.WithLabelValues(recommendation).Inc()
	for severity, count := range findings {
		m.AuditFindings.WithLabelValues(severity).Add(float64(count))
	}
}

// RecordLiveness counts a liveness transition and tracks the up gauge.
func (m *Metrics) RecordLiveness(to string, up bool) {
	if m == nil {
		return
	}
	m.LivenessTransitions.WithLabelValues(to).Inc()
	if up {
		m.ProcessUp.Set(1)
	} else {
		m.ProcessUp.Set(0)
	}
}

// RecordStop counts a stop outcome.
func (m *Metrics) RecordStop(outcome string) {
	if m == nil {
		return
	}
	m.StopOutcomes.WithLabelValues(outcome).Inc()
}

// RecordConsoleCommand counts an operator console command.
func (m *Metrics) RecordConsoleCommand(command string) {
	if m == nil {
		return
	}
	m.ConsoleCommands.WithLabelValues(command).Inc()
}

// RecordHealthCheck counts a health check result.
func (m *Metrics) RecordHealthCheck(checker, status string) {
	if m == nil {
		return
	}
	m.HealthChecks.WithLabelValues(checker, status).Inc()
}

// RecordError counts an error by its code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}
