// Package metrics exposes Prometheus counters for the billing core and an
// HTTP middleware for request-level metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	settlementsTotal      prometheus.Counter
	settlementAmountTotal prometheus.Counter
	creditCarriedTotal    prometheus.Counter
	partialFailuresTotal  prometheus.Counter

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		settlementsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_settlements_total",
			Help: "Number of payment settlements processed.",
		}),
		settlementAmountTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_settlement_amount_total",
			Help: "Total money settled across all payments.",
		}),
		creditCarriedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_credit_carried_total",
			Help: "Total credit carried forward from settlements.",
		}),
		partialFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "billing_settlement_partial_failures_total",
			Help: "Settlements interrupted by a storage error after partial application.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.settlementsTotal, m.settlementAmountTotal, m.creditCarriedTotal,
		m.partialFailuresTotal, m.httpRequestsTotal, m.httpDuration,
	)
	return m
}

// SettlementProcessed records one settled payment and its amount.
func (m *Metrics) SettlementProcessed(amount float64) {
	m.settlementsTotal.Inc()
	m.settlementAmountTotal.Add(amount)
}

// CreditCarried records credit left over after a settlement.
func (m *Metrics) CreditCarried(amount float64) {
	m.creditCarriedTotal.Add(amount)
}

// SettlementPartialFailure records a settlement cut short by storage errors.
func (m *Metrics) SettlementPartialFailure() {
	m.partialFailuresTotal.Inc()
}

// Middleware records request counts and latencies per route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			m.httpRequestsTotal.WithLabelValues(
				c.Request().Method, route, strconv.Itoa(status)).Inc()
			m.httpDuration.WithLabelValues(
				c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus exposition endpoint.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
