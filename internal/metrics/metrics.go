// Package metrics exposes playback counters in Prometheus format.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AaronLay10/StoryLoom/internal/events"
	"github.com/AaronLay10/StoryLoom/internal/playback"
	"github.com/AaronLay10/StoryLoom/internal/story"
	"github.com/AaronLay10/StoryLoom/internal/version"
)

const namespace = "storyloom"

// Collector holds the process metrics on its own registry, so tests can
// create as many as they need.
type Collector struct {
	registry *prometheus.Registry

	Steps             *prometheus.CounterVec
	Compiles          *prometheus.CounterVec
	Sessions          *prometheus.CounterVec
	Notices           prometheus.Counter
	CommandsForwarded *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	MQTTConnected     prometheus.Gauge
	EngineReady       prometheus.Gauge
}

var _ playback.Observer = (*Collector)(nil)

// NewCollector creates and registers all metrics.
func NewCollector() *Collector {
	started := time.Now()
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step results dispatched, by kind.",
		}, []string{"kind"}),
		Compiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Compile requests, by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Playback sessions started, by origin.",
		}, []string{"origin"}),
		Notices: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notices_total",
			Help:      "Transcript notices raised for rejected runtime operations.",
		}),
		CommandsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_forwarded_total",
			Help:      "Story commands forwarded to the broker, by result.",
		}, []string{"result"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		MQTTConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "Whether the MQTT broker is connected (1) or not (0).",
		}),
		EngineReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "engine_ready",
			Help:      "Whether the story engine finished loading (1) or not (0).",
		}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "build_info",
		Help:        "Build information.",
		ConstLabels: prometheus.Labels{"version": version.Version, "commit": version.Commit},
	})
	buildInfo.Set(1)

	c.registry.MustRegister(
		c.Steps,
		c.Compiles,
		c.Sessions,
		c.Notices,
		c.CommandsForwarded,
		c.HTTPDuration,
		c.MQTTConnected,
		c.EngineReady,
		buildInfo,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_clients",
			Help:      "Active event stream subscribers.",
		}, func() float64 { return float64(events.SubscriberCount()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Domain events emitted since startup.",
		}, func() float64 { return float64(events.TotalCount()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started.",
		}, func() float64 { return time.Since(started).Seconds() }),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Compiled(success bool) {
	result := "failed"
	if success {
		result = "succeeded"
	}
	c.Compiles.WithLabelValues(result).Inc()
}

func (c *Collector) SessionStarted(origin playback.Origin) {
	c.Sessions.WithLabelValues(string(origin)).Inc()
}

func (c *Collector) StepDispatched(kind story.StepKind) {
	c.Steps.WithLabelValues(string(kind)).Inc()
}

func (c *Collector) Notice() {
	c.Notices.Inc()
}

// CommandForwarded counts one forwarding attempt.
func (c *Collector) CommandForwarded(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	c.CommandsForwarded.WithLabelValues(result).Inc()
}

// SetMQTTConnected records broker connectivity.
func (c *Collector) SetMQTTConnected(connected bool) {
	c.MQTTConnected.Set(boolValue(connected))
}

// SetEngineReady records the init gate state.
func (c *Collector) SetEngineReady(ready bool) {
	c.EngineReady.Set(boolValue(ready))
}

// ObserveHTTP records one request.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.HTTPDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
