package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/metrics"
)

// Eviction reasons.
const (
	reasonTTL   = "ttl"
	reasonEpoch = "epoch"
)

// Metrics counts cache traffic. The zero value is not usable; see NewMetrics.
type Metrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
}

// NewMetrics registers the cache collectors on reg, reusing them if present.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	hits, err := metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Cache lookups that returned a live entry.",
	}, []string{"cache"}))
	if err != nil {
		return nil, err
	}
	misses, err := metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Cache lookups that found no live entry.",
	}, []string{"cache"}))
	if err != nil {
		return nil, err
	}
	evictions, err := metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Entries evicted on read, by expiry policy.",
	}, []string{"cache", "reason"}))
	if err != nil {
		return nil, err
	}
	return &Metrics{hits: hits, misses: misses, evictions: evictions}, nil
}

func (m *Metrics) hit(name string) {
	if m != nil {
		m.hits.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) miss(name string) {
	if m != nil {
		m.misses.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) evict(name, reason string) {
	if m != nil {
		m.evictions.WithLabelValues(name, reason).Inc()
	}
}
