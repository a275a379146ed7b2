// Package observability holds the Prometheus collector and OpenTelemetry
// setup shared by the editor and the snapshot API.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"ontograph/application/commands/bus"
	"ontograph/application/editor"
	"ontograph/application/persistence"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every Prometheus metric ontograph exports. Each collector
// owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Editor metrics
	Mutations  *prometheus.CounterVec
	History    *prometheus.CounterVec
	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge
	Commands   *prometheus.HistogramVec

	// Autosave metrics
	Saves          *prometheus.CounterVec
	SaveDuration   prometheus.Histogram
	SaveConflicts  prometheus.Counter
	WindowCoalesce prometheus.Histogram

	// Store metrics
	StoreOperations *prometheus.CounterVec
}

var (
	_ editor.Metrics      = (*Collector)(nil)
	_ persistence.Metrics = (*Collector)(nil)
	_ bus.Observer        = (*Collector)(nil)
)

// NewCollector creates a collector whose metric names share namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_mutations_total",
			Help:      "Graph mutations by operation and outcome",
		}, []string{"operation", "outcome"}),
		History: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "editor_history_total",
			Help:      "Undo and redo invocations",
		}, []string{"operation"}),
		GraphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "editor_graph_nodes",
			Help:      "Nodes in the active ontology",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "editor_graph_edges",
			Help:      "Edges in the active ontology",
		}),
		Commands: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "editor_command_duration_seconds",
			Help:      "Command handling time by command and outcome",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1},
		}, []string{"command", "outcome"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_writes_total",
			Help:      "Snapshot writes attempted by the autosave coordinator",
		}, []string{"status"}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "autosave_write_duration_seconds",
			Help:      "Snapshot write latency",
			Buckets:   prometheus.DefBuckets,
		}),
		SaveConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autosave_conflicts_total",
			Help:      "Writes that landed on a revision moved by someone else",
		}),
		WindowCoalesce: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "autosave_window_changes",
			Help:      "Changes coalesced into one snapshot write",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Snapshot store operations served by the API",
		}, []string{"operation", "status"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests, c.HTTPDuration,
		c.Mutations, c.History, c.GraphNodes, c.GraphEdges, c.Commands,
		c.Saves, c.SaveDuration, c.SaveConflicts, c.WindowCoalesce,
		c.StoreOperations,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordStoreOperation records one store call made on behalf of the API
func (c *Collector) RecordStoreOperation(operation string, err error) {
	c.StoreOperations.WithLabelValues(operation, status(err)).Inc()
}

func (c *Collector) ObserveMutation(operation string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	c.Mutations.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) SetGraphSize(nodes, edges int) {
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
}

func (c *Collector) ObserveHistory(operation string) {
	c.History.WithLabelValues(operation).Inc()
}

func (c *Collector) ObserveCommand(command, outcome string, duration time.Duration) {
	c.Commands.WithLabelValues(command, outcome).Observe(duration.Seconds())
}

func (c *Collector) ObserveSave(duration time.Duration, err error, conflict bool) {
	c.Saves.WithLabelValues(status(err)).Inc()
	c.SaveDuration.Observe(duration.Seconds())
	if conflict {
		c.SaveConflicts.Inc()
	}
}

func (c *Collector) ObserveWindow(coalesced int) {
	c.WindowCoalesce.Observe(float64(coalesced))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
