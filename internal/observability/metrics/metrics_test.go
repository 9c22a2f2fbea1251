package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIntakeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIntakeMetrics(reg)

	m.ObserveTurn("claims", "ok", 1.2)
	m.ObserveTurn("claims", "ok", 0.4)
	m.ObserveTurn("parking", "error", 0.1)
	m.ObserveExtraction("claims")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.turnsTotal.WithLabelValues("claims", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.turnsTotal.WithLabelValues("parking", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.extractionsTotal.WithLabelValues("claims")))
}

func TestPaymentMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.ObserveCheckout("created")
	m.ObserveConfirmation("webhook", "confirmed")
	m.ObserveConfirmation("client", "duplicate")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.checkoutsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("webhook", "confirmed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.confirmationsTotal.WithLabelValues("client", "duplicate")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var im *IntakeMetrics
	var pm *PaymentMetrics
	im.ObserveTurn("claims", "ok", 0)
	im.ObserveExtraction("claims")
	pm.ObserveCheckout("created")
	pm.ObserveConfirmation("webhook", "confirmed")
}
