package oracle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agenthands/equivalence/internal/core/model"
)

var (
	callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equivalence",
		Subsystem: "oracle",
		Name:      "calls_total",
		Help:      "Oracle calls by kind and outcome.",
	}, []string{"kind", "outcome"})

	callDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "equivalence",
		Subsystem: "oracle",
		Name:      "call_duration_seconds",
		Help:      "Latency of oracle calls.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"kind"})
)

func observeCall(kind model.CallKind, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "unavailable"
	}
	callsTotal.WithLabelValues(string(kind), outcome).Inc()
	callDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
}
