package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Mindmap metrics
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	NodesCreated      prometheus.Counter
	NodesDeleted      prometheus.Counter
	Mindmaps          prometheus.Gauge

	// Archive metrics
	ArchiveOperations *prometheus.CounterVec

	// Upstream session API metrics
	UpstreamRequests *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry, so tests can
// build as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mindmap_operations_total",
				Help:      "Mindmap operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mindmap_operation_duration_seconds",
				Help:      "Mindmap operation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"operation"},
		),
		NodesCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_created_total",
				Help:      "Total number of nodes created",
			},
		),
		NodesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "nodes_deleted_total",
				Help:      "Total number of nodes deleted",
			},
		),
		Mindmaps: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mindmaps",
				Help:      "Number of mindmaps held in memory",
			},
		),
		ArchiveOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "archive_operations_total",
				Help:      "Archive loads and stores by outcome",
			},
			[]string{"operation", "outcome"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Requests to the session API by status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Operations,
		c.OperationDuration,
		c.NodesCreated,
		c.NodesDeleted,
		c.Mindmaps,
		c.ArchiveOperations,
		c.UpstreamRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// RecordOperation records one service operation. Safe on a nil collector.
func (c *Collector) RecordOperation(op, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.Operations.WithLabelValues(op, outcome).Inc()
	c.OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// RecordNodes adjusts the node counters. Safe on a nil collector.
func (c *Collector) RecordNodes(created, deleted int) {
	if c == nil {
		return
	}
	c.NodesCreated.Add(float64(created))
	c.NodesDeleted.Add(float64(deleted))
}

// SetMindmaps sets the mindmap gauge. Safe on a nil collector.
func (c *Collector) SetMindmaps(n int) {
	if c == nil {
		return
	}
	c.Mindmaps.Set(float64(n))
}

// RecordArchive records an archive call. Safe on a nil collector.
func (c *Collector) RecordArchive(op, outcome string) {
	if c == nil {
		return
	}
	c.ArchiveOperations.WithLabelValues(op, outcome).Inc()
}

// RecordUpstream records a session API response status. Safe on a nil collector.
func (c *Collector) RecordUpstream(status string) {
	if c == nil {
		return
	}
	c.UpstreamRequests.WithLabelValues(status).Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
