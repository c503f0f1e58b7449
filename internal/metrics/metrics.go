// Package metrics exposes frame-loop counters on a private Prometheus
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one effect loop. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	frames        prometheus.Counter
	frameErrors   *prometheus.CounterVec
	gestures      *prometheus.CounterVec
	triggers      *prometheus.CounterVec
	phase         prometheus.Gauge
	opacity       prometheus.Gauge
	frameDuration prometheus.Histogram
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "volverse_frames_total",
			Help: "Frames processed by the effect loop",
		}),
		frameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volverse_frame_errors_total",
			Help: "Per-frame failures by stage",
		}, []string{"stage"}),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volverse_gestures_detected_total",
			Help: "Frames in which a gesture was recognized",
		}, []string{"gesture"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volverse_triggers_total",
			Help: "Gesture triggers by gate outcome",
		}, []string{"outcome"}),
		phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volverse_effect_phase",
			Help: "Current effect phase (0 normal, 1 fading to invisible, 2 fading to normal, 3 invisible)",
		}),
		opacity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volverse_cloak_opacity",
			Help: "Weight of the substituted frame in the last output",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "volverse_frame_duration_seconds",
			Help:    "Time spent processing one frame",
			Buckets: []float64{.005, .01, .02, .033, .05, .1, .2, .5},
		}),
	}

	m.registry.MustRegister(
		m.frames,
		m.frameErrors,
		m.gestures,
		m.triggers,
		m.phase,
		m.opacity,
		m.frameDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Frame records one processed frame and how long it took.
func (m *Metrics) Frame(d time.Duration) {
	if m == nil {
		return
	}
	m.frames.Inc()
	m.frameDuration.Observe(d.Seconds())
}

// FrameError counts a failure in stage (detect, segment, composite, save).
func (m *Metrics) FrameError(stage string) {
	if m == nil {
		return
	}
	m.frameErrors.WithLabelValues(stage).Inc()
}

// Gesture counts a frame in which gesture was seen.
func (m *Metrics) Gesture(gesture string) {
	if m == nil {
		return
	}
	m.gestures.WithLabelValues(gesture).Inc()
}

// Trigger counts a gate decision.
func (m *Metrics) Trigger(accepted bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if accepted {
		outcome = "accepted"
	}
	m.triggers.WithLabelValues(outcome).Inc()
}

// Effect records the phase and opacity of the last output frame.
func (m *Metrics) Effect(phase int, opacity float64) {
	if m == nil {
		return
	}
	m.phase.Set(float64(phase))
	m.opacity.Set(opacity)
}
