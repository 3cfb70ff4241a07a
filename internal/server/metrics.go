package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsRegistry struct {
	registry            *prometheus.Registry
	paymentIntentsTotal *prometheus.CounterVec
	webhooksTotal       *prometheus.CounterVec
	supplyReadsTotal    *prometheus.CounterVec
	reconciliationDepth prometheus.Gauge
}

func newMetricsRegistry() *metricsRegistry {
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squadmint_payment_intents_total",
		Help: "Total number of payment intent creations",
	}, []string{"status"})

	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squadmint_webhooks_total",
		Help: "Total number of payment webhooks processed",
	}, []string{"status"})

	supply := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "squadmint_supply_reads_total",
		Help: "Contract display reads served to the storefront",
	}, []string{"status"})

	recon := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "squadmint_reconciliation_depth",
		Help: "Paid intents awaiting manual reconciliation",
	})

	r := prometheus.NewRegistry()
	r.MustRegister(intents, webhooks, supply, recon)

	return &metricsRegistry{
		registry:            r,
		paymentIntentsTotal: intents,
		webhooksTotal:       webhooks,
		supplyReadsTotal:    supply,
		reconciliationDepth: recon,
	}
}

func (m *metricsRegistry) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metricsRegistry) incIntent(status string) {
	m.paymentIntentsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incWebhook(status string) {
	m.webhooksTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) incSupplyRead(status string) {
	m.supplyReadsTotal.WithLabelValues(status).Inc()
}

func (m *metricsRegistry) setReconciliationDepth(depth int) {
	m.reconciliationDepth.Set(float64(depth))
}
