package preload

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tripimg"
	subsystem = "preload"
)

type metrics struct {
	attempts *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	inflight prometheus.Gauge
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	return &metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attempts_total",
			Help:      "Settled preload attempts by result.",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "skipped_total",
			Help:      "Requested references which did not start an attempt, by reason.",
		}, []string{"reason"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Attempts currently running.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of preload attempts, in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"result"}),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.attempts, m.skipped, m.inflight, m.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
