// Package metrics exposes Prometheus collectors for the fetch/merge pipeline.
// A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "event_desk"

// Failure kinds used as the "kind" label of fetch failures.
const (
	KindNetwork = "network"
	KindParse   = "parse"
	KindOther   = "other"
)

// Collector groups the pipeline metrics.
type Collector struct {
	registry *prometheus.Registry

	pagesFetched     prometheus.Counter
	fetchFailures    *prometheus.CounterVec
	recordsPersisted prometheus.Counter
	persistFailures  prometheus.Counter
	viewSize         prometheus.Gauge
	pageCursor       prometheus.Gauge
}

// New creates a collector registered on its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Feed pages fetched successfully",
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Feed page fetches that failed, by kind",
		}, []string{"kind"}),
		recordsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_persisted_total",
			Help:      "Event records written to the local store",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Event records the local store rejected",
		}),
		viewSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "view_size",
			Help:      "Events currently held in the view",
		}),
		pageCursor: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "page_cursor",
			Help:      "Next page number to request",
		}),
	}
	c.registry.MustRegister(
		c.pagesFetched,
		c.fetchFailures,
		c.recordsPersisted,
		c.persistFailures,
		c.viewSize,
		c.pageCursor,
	)
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the collector's metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// PageFetched records a successful page fetch.
func (c *Collector) PageFetched() {
	if c == nil {
		return
	}
	c.pagesFetched.Inc()
}

// FetchFailed records a failed page fetch of the given kind.
func (c *Collector) FetchFailed(kind string) {
	if c == nil {
		return
	}
	c.fetchFailures.WithLabelValues(kind).Inc()
}

// Persisted records the outcome of one bulk write.
func (c *Collector) Persisted(succeeded, failed int) {
	if c == nil {
		return
	}
	c.recordsPersisted.Add(float64(succeeded))
	c.persistFailures.Add(float64(failed))
}

// SetView records the current view size and page cursor.
func (c *Collector) SetView(size, cursor int) {
	if c == nil {
		return
	}
	c.viewSize.Set(float64(size))
	c.pageCursor.Set(float64(cursor))
}
