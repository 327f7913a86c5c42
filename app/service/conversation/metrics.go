package conversation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tutorbot"

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "runs_total",
		Help:      "Chat runs by outcome (done, exhausted, error).",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of a chat run.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "steps_total",
		Help:      "State machine steps executed.",
	}, []string{"step"})

	executionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "executions_total",
		Help:      "Extracted programs sent to the runner by result (passed, failed, error).",
	}, []string{"result"})

	reflectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "reflections_total",
		Help:      "Corrective turns that sent the run back to the reply model.",
	})
)
