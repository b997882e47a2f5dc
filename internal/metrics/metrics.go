// Package metrics records fetch activity as Prometheus metrics.
//
// A Collector owns a private registry so that several fetchers (or tests)
// never collide on the global default registry. The CLI dumps the registry
// in node-exporter textfile format when --metrics-file is given.
//
// Every method is safe to call on a nil *Collector, which records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pagegrab"

// Collector holds the fetch metrics.
type Collector struct {
	registry  *prometheus.Registry
	attempts  prometheus.Counter
	retries   prometheus.Counter
	failures  *prometheus.CounterVec
	documents prometheus.Counter
	duration  prometheus.Histogram
}

// New creates a Collector backed by a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total number of HTTP attempts, including retries.",
		}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Total number of attempts that were retries of a transient failure.",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of fetches that failed, by error kind.",
		}, []string{"kind"}),
		documents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Total number of documents produced.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of complete fetches including retries and backoff.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
	}
}

// ObserveAttempt counts one HTTP attempt. retry marks attempts after the first.
func (c *Collector) ObserveAttempt(retry bool) {
	if c == nil {
		return
	}
	c.attempts.Inc()
	if retry {
		c.retries.Inc()
	}
}

// ObserveFailure counts a failed fetch of the given kind.
func (c *Collector) ObserveFailure(kind string) {
	if c == nil {
		return
	}
	c.failures.WithLabelValues(kind).Inc()
}

// ObserveDocument counts a successfully produced document.
func (c *Collector) ObserveDocument() {
	if c == nil {
		return
	}
	c.documents.Inc()
}

// ObserveDuration records how long a complete fetch took.
func (c *Collector) ObserveDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.duration.Observe(d.Seconds())
}

// Gatherer exposes the underlying registry.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return prometheus.NewRegistry()
	}
	return c.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is written atomically.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Gatherer())
}
