package utils

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "counter_relay"

// Metrics owns a private registry so several relays (or tests) never collide on registration.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	txCounter       *prometheus.CounterVec
	finalityWait    prometheus.Histogram
}

func NewMetrics() *Metrics {

	m := &Metrics{Registry: prometheus.NewRegistry()}

	m.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	m.txCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Transactions executed through the relay by entry point and outcome",
		},
		[]string{"function", "status"},
	)

	m.finalityWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ledger",
			Name:      "finality_wait_seconds",
			Help:      "Time from submission until the transaction was final",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	m.Registry.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.txCounter,
		m.finalityWait,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

// ObserveTransaction counts one executed transaction; status is the effects status or "error".
func (m *Metrics) ObserveTransaction(function, status string) {
	if m == nil {
		return
	}
	m.txCounter.WithLabelValues(function, status).Inc()
}

func (m *Metrics) ObserveFinality(took time.Duration) {
	if m == nil {
		return
	}
	m.finalityWait.Observe(took.Seconds())
}
