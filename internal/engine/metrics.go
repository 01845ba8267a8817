package engine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report engine activity.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runsActive    prometheus.Gauge
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once so
// building several engines (as unit tests do) never trips duplicate
// registration panics.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Pass a fresh registry when unique collectors are required, for example in
// tests. Registration errors other than AlreadyRegistered panic, mirroring
// the promauto helpers.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nion",
			Subsystem: "engine",
			Name:      "stage_duration_seconds",
			Help:      "Duration spent in each orchestration stage.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage", "status"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nion",
			Subsystem: "engine",
			Name:      "stage_failures_total",
			Help:      "Stage invocations that recorded a failed execution result.",
		},
		[]string{"stage"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nion",
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Completed orchestration runs by pipeline variant and outcome.",
		},
		[]string{"variant", "status"},
	)
	runsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "nion",
			Subsystem: "engine",
			Name:      "runs_active",
			Help:      "Orchestration runs currently in flight.",
		},
	)

	for _, collector := range []prometheus.Collector{stageDuration, stageFailures, runsTotal, runsActive} {
		if err := reg.Register(collector); err != nil {
			already, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				panic(err)
			}
			switch collector {
			case stageDuration:
				stageDuration = already.ExistingCollector.(*prometheus.HistogramVec)
			case stageFailures:
				stageFailures = already.ExistingCollector.(*prometheus.CounterVec)
			case runsTotal:
				runsTotal = already.ExistingCollector.(*prometheus.CounterVec)
			case runsActive:
				runsActive = already.ExistingCollector.(prometheus.Gauge)
			}
		}
	}

	return &Metrics{
		stageDuration: stageDuration,
		stageFailures: stageFailures,
		runsTotal:     runsTotal,
		runsActive:    runsActive,
	}
}

func (m *Metrics) observeStage(stage, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(elapsed.Seconds())
	if status == "FAILED" {
		m.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

func (m *Metrics) runFinished(variant, status string) {
	if m == nil {
		return
	}
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(variant, status).Inc()
}
