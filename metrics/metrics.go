// Package metrics holds the Prometheus instruments for conversion, cache
// and playback.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asciireel"

// Cache lookup outcomes.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CachePartial = "partial"
	CacheBypass  = "bypass"
)

// Metrics is a set of instruments on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesConverted  prometheus.Counter
	convertDuration  prometheus.Histogram
	conversionErrors *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheWrites      *prometheus.CounterVec
	framesRendered   prometheus.Counter
	sessionsActive   prometheus.Gauge
}

// New creates the instruments and registers them, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_converted_total",
			Help:      "Total number of frames converted to character grids",
		}),
		convertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_convert_duration_seconds",
			Help:      "Histogram of single-frame conversion duration in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}),
		conversionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_errors_total",
			Help:      "Total number of failed conversion runs",
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by outcome",
		}, []string{"result"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Total number of cache frame writes",
		}, []string{"status"}), // status: success, error
		framesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      "Total number of frames drawn by playback sessions",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of playback sessions in progress",
		}),
	}
	m.registry.MustRegister(
		m.framesConverted,
		m.convertDuration,
		m.conversionErrors,
		m.cacheLookups,
		m.cacheWrites,
		m.framesRendered,
		m.sessionsActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// FrameConverted records one successful conversion.
func (m *Metrics) FrameConverted(d time.Duration) {
	if m == nil {
		return
	}
	m.framesConverted.Inc()
	m.convertDuration.Observe(d.Seconds())
}

// ConversionFailed records a failed run by error kind.
func (m *Metrics) ConversionFailed(kind string) {
	if m == nil {
		return
	}
	m.conversionErrors.WithLabelValues(kind).Inc()
}

// CacheLookup records a lookup outcome.
func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// CacheWrite records a frame write.
func (m *Metrics) CacheWrite(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.cacheWrites.WithLabelValues(status).Inc()
}

// FrameRendered records one drawn frame.
func (m *Metrics) FrameRendered() {
	if m == nil {
		return
	}
	m.framesRendered.Inc()
}

// SessionStarted increments the active session gauge and returns the
// matching decrement.
func (m *Metrics) SessionStarted() func() {
	if m == nil {
		return func() {}
	}
	m.sessionsActive.Inc()
	return m.sessionsActive.Dec
}
