package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded for webhook deliveries.
const (
	OutcomeStored       = "stored"
	OutcomeIgnored      = "ignored"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInsecure     = "insecure"
	OutcomeError        = "error"
)

// Metrics holds the service collectors and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry

	WebhookDeliveries *prometheus.CounterVec
	RecordsUpserted   *prometheus.CounterVec
	QueryDuration     *prometheus.HistogramVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.WebhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "issuefeed",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by event type and outcome",
	}, []string{"event", "outcome"})
	m.RecordsUpserted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "issuefeed",
		Name:      "records_upserted_total",
		Help:      "Feed records written to the store",
	}, []string{"kind"})
	m.QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "issuefeed",
		Name:      "query_duration_seconds",
		Help:      "Time spent serving feed queries",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	m.registry.MustRegister(
		m.WebhookDeliveries,
		m.RecordsUpserted,
		m.QueryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
