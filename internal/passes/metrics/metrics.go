package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation labels for OperationsTotal.
const (
	OpRegister   = "register"
	OpUnregister = "unregister"
	OpLookup     = "lookup"
	OpSerials    = "serials"
	OpCreatePass = "create_pass"
	OpUpdatePass = "update_pass"
)

// Outcome labels for OperationsTotal.
const (
	OutcomeOK        = "ok"
	OutcomeNoContent = "no_content"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeConflict  = "conflict"
	OutcomeError     = "error"
)

type Metrics struct {
	OperationsTotal *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

// New registers the passes metrics with reg. Tests pass prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passbook_operations_total",
			Help: "Registration service operations by outcome",
		}, []string{"operation", "outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passbook_pass_cache_lookups_total",
			Help: "Pass cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passbook_events_published_total",
			Help: "Registration events handed to the publisher by result",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) ObserveOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, result).Inc()
}
