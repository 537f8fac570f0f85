package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects engine metrics. A nil *Recorder is valid and records
// nothing, so tests and tools can skip metrics wiring.
type Recorder struct {
	registry       *prometheus.Registry
	cacheOutcomes  *prometheus.CounterVec
	signalsTotal   *prometheus.CounterVec
	alertsTotal    *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	notifyTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cacheOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_cache_requests_total",
				Help: "Cache lookups by cache name and outcome",
			},
			[]string{"cache", "outcome"},
		),
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_signals_total",
				Help: "Signals produced by the pipeline",
			},
			[]string{"type"},
		),
		alertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_alerts_total",
				Help: "Alert lifecycle events",
			},
			[]string{"event"},
		),
		upstreamErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_upstream_errors_total",
				Help: "Failed calls to upstream data sources",
			},
			[]string{"source"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_estimated_data_total",
				Help: "Times synthetic data replaced an unavailable source",
			},
			[]string{"source"},
		),
		notifyTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_notifications_total",
				Help: "Notifications delivered per sink and result",
			},
			[]string{"sink", "result"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_engine_operation_duration_seconds",
				Help:    "Duration of engine operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// Handler exposes the recorder's registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) RecordCache(cache, outcome string) {
	if r == nil {
		return
	}
	r.cacheOutcomes.WithLabelValues(cache, outcome).Inc()
}

func (r *Recorder) RecordSignal(signalType string) {
	if r == nil {
		return
	}
	r.signalsTotal.WithLabelValues(signalType).Inc()
}

// RecordAlert records an alert event such as "created", "triggered" or "deleted".
func (r *Recorder) RecordAlert(event string) {
	if r == nil {
		return
	}
	r.alertsTotal.WithLabelValues(event).Inc()
}

func (r *Recorder) RecordUpstreamError(source string) {
	if r == nil {
		return
	}
	r.upstreamErrors.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordFallback(source string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordNotification(sink string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.notifyTotal.WithLabelValues(sink, result).Inc()
}

// ObserveSince records the time elapsed since start for op.
func (r *Recorder) ObserveSince(op string, start time.Time) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
