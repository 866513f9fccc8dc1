package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service. All methods are
// safe on a nil receiver so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	TableOps      *prometheus.CounterVec
	TableDuration *prometheus.HistogramVec
	TableRows     prometheus.Gauge
	EventsExpired prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
}

// NewCollector creates the metrics on a private registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		TableOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "table_operations_total",
				Help:      "Table fetch/replace calls by outcome",
			},
			[]string{"op", "result"},
		),
		TableDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_operation_duration_seconds",
				Help:      "Duration of table backend calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		TableRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "table_rows",
				Help:      "Rows in the last fetched or written snapshot",
			},
		),
		EventsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_expired_total",
				Help:      "Event rows removed by the expiry collector",
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
	}

	registry.MustRegister(
		c.TableOps,
		c.TableDuration,
		c.TableRows,
		c.EventsExpired,
		c.HTTPRequests,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveTable records one backend call.
func (c *Collector) ObserveTable(op, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.TableOps.WithLabelValues(op, result).Inc()
	if d > 0 {
		c.TableDuration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// SetRows records the size of the current snapshot.
func (c *Collector) SetRows(n int) {
	if c == nil {
		return
	}
	c.TableRows.Set(float64(n))
}

// AddExpired counts swept events.
func (c *Collector) AddExpired(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.EventsExpired.Add(float64(n))
}

// ObserveHTTP counts one served request.
func (c *Collector) ObserveHTTP(method string, status int) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// Registry exposes the underlying registry for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
