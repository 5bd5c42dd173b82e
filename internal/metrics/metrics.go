// Package metrics provides the Prometheus collectors of the admin service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "useradmin"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is what services use to report. Nop satisfies it for tests and tools.
type Recorder interface {
	RecordUserOperation(operation, outcome string)
	RecordCompensation(outcome string)
	SetOrphanedRecords(count int)
}

// Collector holds the registered Prometheus metrics.
type Collector struct {
	userOperations  *prometheus.CounterVec
	compensations   *prometheus.CounterVec
	orphanedRecords prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

var _ Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		userOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_operations_total",
			Help:      "User service operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensating identity deletions after a failed record insert",
		}, []string{"outcome"}),
		orphanedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphaned_records",
			Help:      "Directory records whose identity account was missing at the last scan",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route", "status_code"}),
	}

	reg.MustRegister(
		c.userOperations,
		c.compensations,
		c.orphanedRecords,
		c.requestDuration,
	)
	return c
}

func (c *Collector) RecordUserOperation(operation, outcome string) {
	c.userOperations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordCompensation(outcome string) {
	c.compensations.WithLabelValues(outcome).Inc()
}

func (c *Collector) SetOrphanedRecords(count int) {
	c.orphanedRecords.Set(float64(count))
}

// ObserveRequest records one HTTP request. route is the matched pattern, not the raw path.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordUserOperation(string, string) {}
func (Nop) RecordCompensation(string)          {}
func (Nop) SetOrphanedRecords(int)             {}
