package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_radar"

// Metrics holds the Prometheus counters, histograms, and gauges for the radar
// compositor.
type Metrics struct {
	RunnerRunning prometheus.Gauge
	Cycles        *prometheus.CounterVec // labels: outcome={animated,refreshing,station_down}
	CycleDuration prometheus.Histogram

	// Frame building.
	FramesRendered     prometheus.Counter
	FramesSkipped      *prometheus.CounterVec // labels: reason={placeholder,fetch_error,blank,bad_size}
	FrameBuildDuration prometheus.Histogram

	// Upstream sources.
	SourceRequests *prometheus.CounterVec   // labels: source, outcome={success,error}
	SourceDuration *prometheus.HistogramVec // labels: source
	PointCache     *prometheus.CounterVec   // labels: result={hit,miss}

	// Station and alert state.
	StationLatency prometheus.Gauge
	ActiveAlerts   *prometheus.GaugeVec // labels: scope={local,area}, type={hazard,warning}

	SinkErrors *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.RunnerRunning,
		m.Cycles,
		m.CycleDuration,
		m.FramesRendered,
		m.FramesSkipped,
		m.FrameBuildDuration,
		m.SourceRequests,
		m.SourceDuration,
		m.PointCache,
		m.StationLatency,
		m.ActiveAlerts,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		RunnerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runner_running",
			Help:      help("1 when the polling loop is active, 0 when shut down."),
		}),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      help("Completed polling cycles by what was displayed."),
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      help("Duration of one fetch-and-render cycle."),
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		FramesRendered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rendered_total",
			Help:      help("Frames composited."),
		}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      help("Timestamps dropped from an animation by reason."),
		}, []string{"reason"}),
		FrameBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_build_duration_seconds",
			Help:      help("Duration of building one animation."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20},
		}),
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      help("Upstream requests by source and outcome."),
		}, []string{"source", "outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      help("Upstream request duration in seconds."),
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		PointCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "point_cache_total",
			Help:      help("NWS point lookups served from cache."),
		}, []string{"result"}),
		StationLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "station_latency_minutes",
			Help:      help("Minutes since the radar station last delivered data."),
		}),
		ActiveAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_alerts",
			Help:      help("Active hazards and warnings in the last cycle."),
		}, []string{"scope", "type"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      help("Display sink failures."),
		}, []string{"sink"}),
	}
}
