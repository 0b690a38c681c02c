package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AppointmentMetrics exposes counters and histograms for the booking flows.
// A nil receiver is safe everywhere so wiring metrics stays optional.
type AppointmentMetrics struct {
	operationsTotal    *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	confirmationsTotal *prometheus.CounterVec
	webhooksTotal      *prometheus.CounterVec
}

func NewAppointmentMetrics(reg prometheus.Registerer) *AppointmentMetrics {
	m := &AppointmentMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wadcal",
			Subsystem: "appointments",
			Name:      "operations_total",
			Help:      "Total appointment operations by outcome",
		}, []string{"operation", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wadcal",
			Subsystem: "calendar",
			Name:      "provider_latency_seconds",
			Help:      "Latency of Google Calendar API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"call", "outcome"}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wadcal",
			Subsystem: "confirmations",
			Name:      "requests_total",
			Help:      "Confirmation requests attempted by the daily sweep",
		}, []string{"outcome"}),
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wadcal",
			Subsystem: "webhooks",
			Name:      "deliveries_total",
			Help:      "Inbound Google Calendar webhook deliveries",
		}, []string{"resource_state", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.providerLatency, m.confirmationsTotal, m.webhooksTotal)
	return m
}

func (m *AppointmentMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *AppointmentMetrics) ObserveProviderCall(call string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.providerLatency.WithLabelValues(call, outcome).Observe(time.Since(start).Seconds())
}

func (m *AppointmentMetrics) ObserveConfirmation(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.confirmationsTotal.WithLabelValues(outcome).Inc()
}

func (m *AppointmentMetrics) ObserveWebhook(resourceState, outcome string) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(resourceState, outcome).Inc()
}
