package search

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/metrics"
)

// Metrics records search rounds and outcomes.
type Metrics struct {
	rounds   prometheus.Histogram
	results  prometheus.Histogram
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the search collectors on reg, reusing them if present.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	rounds, err := metrics.Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "search",
		Name:      "rounds",
		Help:      "Discovery rounds per search.",
		Buckets:   prometheus.LinearBuckets(1, 1, 6),
	}))
	if err != nil {
		return nil, err
	}
	results, err := metrics.Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "search",
		Name:      "results",
		Help:      "Deduplicated results returned per search.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 7),
	}))
	if err != nil {
		return nil, err
	}
	outcomes, err := metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "search",
		Name:      "outcomes_total",
		Help:      "Searches by outcome: satisfied, partial or failed.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	return &Metrics{rounds: rounds, results: results, outcomes: outcomes}, nil
}

func (m *Metrics) observe(outcome string, rounds, results int) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
	if outcome != outcomeFailed {
		m.rounds.Observe(float64(rounds))
		m.results.Observe(float64(results))
	}
}
