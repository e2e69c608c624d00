// Package metric provides prometheus collectors of the monitor.
package metric

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric holds the monitor collectors.
type Metric struct {
	gatherer prometheus.Gatherer

	cycleTiming   *prometheus.SummaryVec
	errorCounter  *prometheus.CounterVec
	cycles        prometheus.Counter
	published     *prometheus.CounterVec
	invalidReads  *prometheus.CounterVec
	methodCalls   *prometheus.CounterVec
	graphWraps    prometheus.Counter
	sendingGauge  prometheus.Gauge
	droppedEvents prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry together with the Go runtime
// and process collectors.
func New(appID string) *Metric {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(appID, r)
}

// NewWithRegistry creates the collectors and registers them on r.
func NewWithRegistry(appID string, r *prometheus.Registry) *Metric {
	ns := strings.NewReplacer("-", "_", " ", "_").Replace(appID)

	m := &Metric{
		gatherer: r,
		cycleTiming: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace: ns,
				Name:      "cycle_timing_seconds",
				Help:      "Duration of loop steps.",
			},
			[]string{"step"},
		),
		errorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "error_counter",
				Help:      "Recoverable errors by label.",
			},
			[]string{"error"},
		),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cycles_total",
			Help:      "Completed loop cycles.",
		}),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "telemetry_published_total",
				Help:      "Telemetry messages handed to the transport by result.",
			},
			[]string{"result"},
		),
		invalidReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "sensor_invalid_readings_total",
				Help:      "Sensor readings replaced by the sentinel.",
			},
			[]string{"field"},
		),
		methodCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "method_invocations_total",
				Help:      "Remote method invocations by method and status.",
			},
			[]string{"method", "status"},
		),
		graphWraps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "graph_wraparounds_total",
			Help:      "Trend graph wraparounds.",
		}),
		sendingGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "telemetry_sending",
			Help:      "1 while telemetry is enabled, 0 while paused.",
		}),
		droppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transport_dropped_events_total",
			Help:      "Inbound transport events dropped on a full inbox.",
		}),
	}

	r.MustRegister(
		m.cycleTiming,
		m.errorCounter,
		m.cycles,
		m.published,
		m.invalidReads,
		m.methodCalls,
		m.graphWraps,
		m.sendingGauge,
		m.droppedEvents,
	)

	return m
}

// ErrorCounter .
func (m *Metric) ErrorCounter(label string) {
	m.errorCounter.
		WithLabelValues(label).
		Inc()
}

// Timing observes the time passed since start under label.
func (m *Metric) Timing(start time.Time, label string) {
	m.cycleTiming.
		WithLabelValues(label).
		Observe(time.Since(start).Seconds())
}

// Cycle counts a completed cycle.
func (m *Metric) Cycle() {
	m.cycles.Inc()
}

// Published counts a telemetry hand-off with its result ("ok", "format_error", "send_error").
func (m *Metric) Published(result string) {
	m.published.WithLabelValues(result).Inc()
}

// InvalidReading counts a sentinel substitution for field.
func (m *Metric) InvalidReading(field string) {
	m.invalidReads.WithLabelValues(field).Inc()
}

// MethodInvoked counts a remote method invocation.
func (m *Metric) MethodInvoked(method, status string) {
	m.methodCalls.WithLabelValues(method, status).Inc()
}

// GraphWrapped counts a graph wraparound.
func (m *Metric) GraphWrapped() {
	m.graphWraps.Inc()
}

// Sending sets the gate gauge.
func (m *Metric) Sending(on bool) {
	if on {
		m.sendingGauge.Set(1)
		return
	}
	m.sendingGauge.Set(0)
}

// EventDropped counts an inbound event dropped by the transport.
func (m *Metric) EventDropped() {
	m.droppedEvents.Inc()
}

// TimeTracker wraps an http handler with timing under label.
func (m *Metric) TimeTracker(next http.HandlerFunc, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		m.Timing(start, label)
	}
}

// RouterHandlerHTTP exposes the registry for scraping.
func (m *Metric) RouterHandlerHTTP() http.HandlerFunc {
	return m.stdToHTTPRouterMiddleware(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}

func (m *Metric) stdToHTTPRouterMiddleware(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
	}
}
