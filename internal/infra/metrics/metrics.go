// Package metrics owns the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "loyalty"

// Collectors groups every metric the service exports. A nil *Collectors is
// valid and records nothing.
type Collectors struct {
	registry *prometheus.Registry

	ledgerOps      *prometheus.CounterVec
	ledgerDuration *prometheus.HistogramVec
	redemptions    *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	driftAccounts  prometheus.Gauge
	reconcileRuns  *prometheus.CounterVec
	reconcileLast  prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Balance mutations by operation and result.",
		}, []string{"op", "result"}),
		ledgerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Duration of the atomic balance mutation, including the DB transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"op"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rewards",
			Name:      "redemptions_total",
			Help:      "Reward redemptions by result.",
		}, []string{"result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "route"}),
		driftAccounts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "drifted_accounts",
			Help:      "Accounts whose cached balance, lifetime or tier disagree with the ledger, as of the last run.",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "runs_total",
			Help:      "Reconciliation runs by result.",
		}, []string{"result"}),
		reconcileLast: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished reconciliation run.",
		}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.ledgerOps,
		c.ledgerDuration,
		c.redemptions,
		c.httpRequests,
		c.httpDuration,
		c.driftAccounts,
		c.reconcileRuns,
		c.reconcileLast,
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collectors) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}

	return c.registry
}

func (c *Collectors) ObserveLedgerOp(op, result string, took time.Duration) {
	if c == nil {
		return
	}

	c.ledgerOps.WithLabelValues(op, result).Inc()
	c.ledgerDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (c *Collectors) ObserveRedemption(result string) {
	if c == nil {
		return
	}

	c.redemptions.WithLabelValues(result).Inc()
}

func (c *Collectors) ObserveHTTP(method, route string, status int, took time.Duration) {
	if c == nil {
		return
	}

	c.httpRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (c *Collectors) ObserveReconcile(drifted int, err error, at time.Time) {
	if c == nil {
		return
	}

	if err != nil {
		c.reconcileRuns.WithLabelValues("error").Inc()

		return
	}

	c.reconcileRuns.WithLabelValues("ok").Inc()
	c.driftAccounts.Set(float64(drifted))
	c.reconcileLast.Set(float64(at.Unix()))
}
