package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IntakeMetrics exposes counters/histograms for intake conversations.
type IntakeMetrics struct {
	turnsTotal        *prometheus.CounterVec
	transitionsTotal  *prometheus.CounterVec
	bookingsTotal     *prometheus.CounterVec
	addressTotal      *prometheus.CounterVec
	collaboratorCalls *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total conversation turns by starting state and error kind",
		}, []string{"state", "error_kind"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "conversation",
			Name:      "transitions_total",
			Help:      "Total state transitions",
		}, []string{"from", "to"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "booking",
			Name:      "attempts_total",
			Help:      "Total booking attempts by result",
		}, []string{"result"}),
		addressTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "address",
			Name:      "validations_total",
			Help:      "Total address validations by result",
		}, []string{"result"}),
		collaboratorCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "collaborator",
			Name:      "call_duration_seconds",
			Help:      "Latency of calls to extractors, matchers, the booker and the address validator",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.transitionsTotal, m.bookingsTotal, m.addressTotal, m.collaboratorCalls)
	return m
}

func (m *IntakeMetrics) ObserveTurn(state, errorKind string) {
	if m == nil {
		return
	}
	if errorKind == "" {
		errorKind = "none"
	}
	m.turnsTotal.WithLabelValues(state, errorKind).Inc()
}

func (m *IntakeMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *IntakeMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *IntakeMetrics) ObserveAddressValidation(result string) {
	if m == nil {
		return
	}
	m.addressTotal.WithLabelValues(result).Inc()
}

// ObserveCollaborator records one call to a machine dependency.
func (m *IntakeMetrics) ObserveCollaborator(name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.collaboratorCalls.WithLabelValues(name, status).Observe(d.Seconds())
}
