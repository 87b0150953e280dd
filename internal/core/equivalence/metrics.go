package equivalence

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scopesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "equivalence",
		Subsystem: "scope",
		Name:      "closed_total",
		Help:      "Closed scopes by mode, final state and error kind.",
	}, []string{"mode", "state", "kind"})

	scopeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "equivalence",
		Subsystem: "scope",
		Name:      "duration_seconds",
		Help:      "Time from opening a scope to closing it.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"mode"})
)

func observeScope(s *Scope, comparative bool, elapsed time.Duration) {
	mode := "exact"
	if comparative {
		mode = "comparative"
	}
	scopesTotal.WithLabelValues(mode, s.State().String(), string(KindOf(s.Err()))).Inc()
	scopeDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}
