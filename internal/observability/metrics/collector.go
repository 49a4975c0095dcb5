// Package metrics exposes session, login and guard counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result constants for metric labels.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

const namespace = "clinic_session"

// Recorder is the full set of counters the session components emit.
type Recorder interface {
	RecordLogin(method, result string)
	RecordValidation(result string)
	RecordGuardDecision(outcome string)
	RecordSessionChange(kind string)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordLogin(string, string) {}
func (Noop) RecordValidation(string)    {}
func (Noop) RecordGuardDecision(string) {}
func (Noop) RecordSessionChange(string) {}

var (
	_ Recorder = Noop{}
	_ Recorder = (*Collector)(nil)
)

// Collector records counters on Prometheus vectors.
type Collector struct {
	logins      *prometheus.CounterVec
	validations *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	changes     *prometheus.CounterVec
}

// NewCollector creates the counters and registers them on reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_total",
			Help:      "Login attempts by method and result.",
		}, []string{"method", "result"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_total",
			Help:      "Token revalidations by result.",
		}, []string{"result"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by outcome.",
		}, []string{"outcome"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Session transitions by kind.",
		}, []string{"kind"}),
	}
	if reg == nil {
		return c, nil
	}
	for _, col := range []prometheus.Collector{c.logins, c.validations, c.decisions, c.changes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) RecordLogin(method, result string) {
	c.logins.WithLabelValues(method, result).Inc()
}

func (c *Collector) RecordValidation(result string) {
	c.validations.WithLabelValues(result).Inc()
}

func (c *Collector) RecordGuardDecision(outcome string) {
	c.decisions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordSessionChange(kind string) {
	c.changes.WithLabelValues(kind).Inc()
}
