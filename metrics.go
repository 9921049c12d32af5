package assist

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/metrics"
)

// Outcome labels used by the dispatcher collectors.
const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
	outcomeRejected  = "rejected"
)

// DispatcherMetrics tracks statistics about dispatched actions.
type DispatcherMetrics struct {
	ActionsExecuted    int
	ActionsSuccessful  int
	ActionsFailed      int
	ActionsRejected    int
	ActionsCancelled   int
	ActionsTimedOut    int
	TotalDuration      time.Duration
	LongestActionTime  time.Duration
	ShortestActionTime time.Duration
}

// AverageDuration is TotalDuration over ActionsExecuted.
func (m DispatcherMetrics) AverageDuration() time.Duration {
	if m.ActionsExecuted == 0 {
		return 0
	}
	return m.TotalDuration / time.Duration(m.ActionsExecuted)
}

type metricsRecorder struct {
	mu       sync.Mutex
	snapshot DispatcherMetrics

	prom *PromCollectors
}

func (r *metricsRecorder) rejected(actionID string) {
	r.mu.Lock()
	r.snapshot.ActionsRejected++
	r.mu.Unlock()
	r.prom.observe(actionID, outcomeRejected, 0)
}

func (r *metricsRecorder) finished(actionID string, d time.Duration, err error) {
	outcome := outcomeSuccess
	switch {
	case err == nil:
	case HasCode(err, ErrCodeTimeout):
		outcome = outcomeTimeout
	case HasCode(err, ErrCodeCancelled):
		outcome = outcomeCancelled
	default:
		outcome = outcomeFailure
	}

	r.mu.Lock()
	m := &r.snapshot
	m.ActionsExecuted++
	m.TotalDuration += d
	if d > m.LongestActionTime {
		m.LongestActionTime = d
	}
	if m.ShortestActionTime == 0 || (d > 0 && d < m.ShortestActionTime) {
		m.ShortestActionTime = d
	}
	switch outcome {
	case outcomeSuccess:
		m.ActionsSuccessful++
	case outcomeTimeout:
		m.ActionsTimedOut++
		m.ActionsFailed++
	case outcomeCancelled:
		m.ActionsCancelled++
	default:
		m.ActionsFailed++
	}
	r.mu.Unlock()

	r.prom.observe(actionID, outcome, d)
}

func (r *metricsRecorder) setBusy(busy bool) {
	if r.prom == nil {
		return
	}
	if busy {
		r.prom.busy.Set(1)
	} else {
		r.prom.busy.Set(0)
	}
}

func (r *metricsRecorder) copy() DispatcherMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot
}

// PromCollectors are the dispatcher's Prometheus collectors.
type PromCollectors struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	busy     prometheus.Gauge
}

// NewPromCollectors registers the dispatcher collectors on reg, reusing them if present.
func NewPromCollectors(reg prometheus.Registerer) (*PromCollectors, error) {
	actions, err := metrics.Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Subsystem: "dispatcher",
		Name:      "actions_total",
		Help:      "Submitted actions by identifier and outcome.",
	}, []string{"action", "outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := metrics.Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metrics.Namespace,
		Subsystem: "dispatcher",
		Name:      "action_duration_seconds",
		Help:      "Time spent in Action.Run.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}
	busy, err := metrics.Register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metrics.Namespace,
		Subsystem: "dispatcher",
		Name:      "busy",
		Help:      "1 while an action is in flight.",
	}))
	if err != nil {
		return nil, err
	}
	return &PromCollectors{actions: actions, duration: duration, busy: busy}, nil
}

func (p *PromCollectors) observe(actionID, outcome string, d time.Duration) {
	if p == nil {
		return
	}
	p.actions.WithLabelValues(actionID, outcome).Inc()
	if outcome != outcomeRejected {
		p.duration.WithLabelValues(actionID).Observe(d.Seconds())
	}
}
