package firewatch

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Event results recorded in firewatch_events_total.
const (
	resultQueued     = "queued"
	resultDispatched = "dispatched"
	resultMalformed  = "malformed"
	resultUnmatched  = "unmatched"
)

// Callback reasons recorded in firewatch_callbacks_total.
const (
	reasonInitial   = "initial"
	reasonImmediate = "immediate"
	reasonDeferred  = "deferred"
)

type metrics struct {
	registrations *prometheus.CounterVec
	watchFailures prometheus.Counter
	events        *prometheus.CounterVec
	callbacks     *prometheus.CounterVec
	panics        prometheus.Counter
	pending       prometheus.Gauge
	files         prometheus.Gauge
	directories   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_registrations_total",
			Help: "Number of Register calls that passed validation, by dispatch mode.",
		}, []string{"mode"}),
		watchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firewatch_watch_failures_total",
			Help: "Number of registrations whose directory watch could not be established.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_events_total",
			Help: "Number of raw change events processed by the event loop, by result.",
		}, []string{"result"}),
		callbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "firewatch_callbacks_total",
			Help: "Number of completed handler invocations, by reason.",
		}, []string{"reason"}),
		panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "firewatch_callback_panics_total",
			Help: "Number of handler invocations that panicked.",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_pending",
			Help: "Number of deferred changes waiting for Check.",
		}),
		files: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_watched_files",
			Help: "Number of registered files with a live watch.",
		}),
		directories: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "firewatch_watched_directories",
			Help: "Number of distinct watched directories.",
		}),
	}

	if reg != nil {
		m.registrations = register(reg, m.registrations)
		m.watchFailures = register(reg, m.watchFailures)
		m.events = register(reg, m.events)
		m.callbacks = register(reg, m.callbacks)
		m.panics = register(reg, m.panics)
		m.pending = register(reg, m.pending)
		m.files = register(reg, m.files)
		m.directories = register(reg, m.directories)
	}

	return m
}

// register adds c to reg. When an identical collector is already
// registered, for example by another Service sharing the registry, the
// existing one is returned so both services feed the same series.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
