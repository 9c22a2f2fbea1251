package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for conversation turns.
type IntakeMetrics struct {
	turnsTotal       *prometheus.CounterVec
	extractionsTotal *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "intake",
			Name:      "turns_total",
			Help:      "Total conversation turns",
		}, []string{"service_type", "status"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "intake",
			Name:      "extractions_total",
			Help:      "Total terminal payload extractions",
		}, []string{"service_type"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "claimdesk",
			Subsystem: "intake",
			Name:      "turn_latency_seconds",
			Help:      "Latency of full streamed turns",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.extractionsTotal, m.turnLatency)
	return m
}

func (m *IntakeMetrics) ObserveTurn(serviceType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(serviceType, status).Inc()
	m.turnLatency.WithLabelValues(serviceType).Observe(seconds)
}

func (m *IntakeMetrics) ObserveExtraction(serviceType string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(serviceType).Inc()
}

// PaymentMetrics exposes counters for the payment flow.
type PaymentMetrics struct {
	checkoutsTotal     *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		checkoutsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "payments",
			Name:      "checkouts_total",
			Help:      "Total checkout creations",
		}, []string{"status"}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "claimdesk",
			Subsystem: "payments",
			Name:      "confirmations_total",
			Help:      "Total payment confirmation signals by channel and outcome",
		}, []string{"channel", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checkoutsTotal, m.confirmationsTotal)
	return m
}

func (m *PaymentMetrics) ObserveCheckout(status string) {
	if m == nil {
		return
	}
	m.checkoutsTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) ObserveConfirmation(channel, outcome string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(channel, outcome).Inc()
}
