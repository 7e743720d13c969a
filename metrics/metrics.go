// Package metrics exposes prometheus counters for command outcomes and rule
// evaluations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/meikuraledutech/diagram/command"
	"github.com/meikuraledutech/diagram/rule"
)

// Metrics holds the collectors. The zero value is not usable; call New.
type Metrics struct {
	// CommandResults counts command phases by outcome.
	CommandResults *prometheus.CounterVec

	// RuleEvaluations counts rule manager calls by evaluation context.
	RuleEvaluations *prometheus.CounterVec

	// RuleViolations counts reported violations by context and severity.
	RuleViolations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CommandResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diagram_command_results_total",
				Help: "Command phases run, by command, phase and result type",
			},
			[]string{"command", "phase", "type"},
		),
		RuleEvaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diagram_rule_evaluations_total",
				Help: "Rule manager evaluations, by rule-set and context",
			},
			[]string{"rule_set", "context"},
		),
		RuleViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "diagram_rule_violations_total",
				Help: "Violations reported by rules, by context and severity",
			},
			[]string{"context", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.CommandResults, m.RuleEvaluations, m.RuleViolations)
	}
	return m
}

// ObserveCommand records one command phase. It has the shape of a
// command.Observer.
func (m *Metrics) ObserveCommand(name, phase string, res command.Result) {
	m.CommandResults.WithLabelValues(name, phase, res.Type.String()).Inc()
}

// InstrumentManager wraps next so every evaluation is counted.
func (m *Metrics) InstrumentManager(next rule.Manager) rule.Manager {
	return &instrumentedManager{next: next, m: m}
}

type instrumentedManager struct {
	next rule.Manager
	m    *Metrics
}

func (im *instrumentedManager) Evaluate(set *rule.Set, ctx rule.Context) rule.Violations {
	name := ""
	if set != nil {
		name = set.Name
	}
	im.m.RuleEvaluations.WithLabelValues(name, ctx.Name()).Inc()
	vs := im.next.Evaluate(set, ctx)
	for _, v := range vs {
		im.m.RuleViolations.WithLabelValues(ctx.Name(), v.Type.String()).Inc()
	}
	return vs
}
