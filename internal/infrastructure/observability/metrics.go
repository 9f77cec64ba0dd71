package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Save pipeline metrics
	Saves          *prometheus.CounterVec
	SaveDuration   prometheus.Histogram
	DocumentBytes  prometheus.Gauge
	DocumentItems  prometheus.Gauge
	Backups        *prometheus.CounterVec
	BackupsPruned  prometheus.Counter
	EventsDropped  prometheus.Counter
	SearchRequests *prometheus.CounterVec
	SearchResults  prometheus.Histogram
}

// NewCollector creates a new metrics collector with the given namespace
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
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "menu_saves_total",
				Help:      "Menu save attempts by final state",
			},
			[]string{"state"},
		),
		SaveDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "menu_save_duration_seconds",
				Help:      "Duration of menu saves in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		DocumentBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "menu_document_bytes",
				Help:      "Size of the last stored menu document",
			},
		),
		DocumentItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "menu_document_items",
				Help:      "Number of items in the last stored menu document",
			},
		),
		Backups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "menu_backups_total",
				Help:      "Menu backups by outcome",
			},
			[]string{"outcome"},
		),
		BackupsPruned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "menu_backups_pruned_total",
				Help:      "Menu backups deleted by retention",
			},
		),
		EventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dropped_total",
				Help:      "Saved-menu events that could not be published",
			},
		),
		SearchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Search requests by outcome",
			},
			[]string{"outcome"},
		),
		SearchResults: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results",
				Help:      "Number of results returned per search",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Saves,
		c.SaveDuration,
		c.DocumentBytes,
		c.DocumentItems,
		c.Backups,
		c.BackupsPruned,
		c.EventsDropped,
		c.SearchRequests,
		c.SearchResults,
	)
	return c
}

// RecordSave records one finished save.
func (c *Collector) RecordSave(state string, duration time.Duration) {
	c.Saves.WithLabelValues(state).Inc()
	c.SaveDuration.Observe(duration.Seconds())
}

// RecordDocument records the size of a stored document.
func (c *Collector) RecordDocument(bytes, items int) {
	c.DocumentBytes.Set(float64(bytes))
	c.DocumentItems.Set(float64(items))
}

// RecordBackup records a backup outcome: "written", "skipped" or "failed".
func (c *Collector) RecordBackup(outcome string) {
	c.Backups.WithLabelValues(outcome).Inc()
}

// RecordSearch records a search outcome and its result count.
func (c *Collector) RecordSearch(outcome string, results int) {
	c.SearchRequests.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		c.SearchResults.Observe(float64(results))
	}
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
