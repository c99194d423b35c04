package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the portal's collectors
type Metrics struct {
	RequestCount       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	BalanceAdjustments *prometheus.CounterVec
	PINVerifications   *prometheus.CounterVec
	CardExpirySweeps   *prometheus.CounterVec
	CardsExpired       prometheus.Counter
}

// NewMetrics creates the collectors and registers them, along with the Go
// runtime and process collectors, on registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		BalanceAdjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "balance_adjustments_total",
				Help: "Admin balance adjustments by result.",
			},
			[]string{"result"},
		),
		PINVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pin_verifications_total",
				Help: "PIN verification attempts by result.",
			},
			[]string{"result"},
		),
		CardExpirySweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "card_expiry_sweeps_total",
				Help: "Card expiry sweep runs by result.",
			},
			[]string{"result"},
		),
		CardsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cards_expired_total",
				Help: "Cards moved to expired by the sweeper.",
			},
		),
	}

	registry.MustRegister(
		m.RequestCount,
		m.RequestDuration,
		m.BalanceAdjustments,
		m.PINVerifications,
		m.CardExpirySweeps,
		m.CardsExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
