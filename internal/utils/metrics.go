package utils

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadview_actions_total",
		Help: "Actions dispatched to the page store, by kind",
	}, []string{"kind"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadview_action_duration_seconds",
		Help:    "Time spent applying one action, by kind",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to ~2.6s
	}, []string{"kind"})

	unknownActionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadview_unknown_actions_total",
		Help: "Actions whose kind matched no handler",
	})

	listenerPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadview_listener_panics_total",
		Help: "Change listeners that panicked during a notification",
	})

	quickUpdateSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadview_quick_update_posts",
		Help:    "Posts marked for re-render after a quick-update action",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
	})

	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadview_errors_total",
		Help: "Requests that ended in an error",
	})
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	actionCount  uint64
	errorCount   uint64
	unknownCount uint64

	// Running latency totals per operation name
	operationTimes map[string]*latencyTotal

	systemStartTime time.Time
}

type latencyTotal struct {
	sum   time.Duration
	count int64
}

// MetricsSnapshot is a point-in-time copy of the collector's counters.
type MetricsSnapshot struct {
	Actions        uint64                   `json:"actions"`
	Errors         uint64                   `json:"errors"`
	UnknownActions uint64                   `json:"unknownActions"`
	AverageLatency map[string]time.Duration `json:"averageLatency"`
	Uptime         time.Duration            `json:"uptime"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string]*latencyTotal),
		systemStartTime: time.Now(),
	}
}

// RecordAction counts one applied action of the given kind.
func (mc *MetricsCollector) RecordAction(kind string, duration time.Duration) {
	actionsTotal.WithLabelValues(kind).Inc()
	actionDuration.WithLabelValues(kind).Observe(duration.Seconds())

	mc.mu.Lock()
	mc.actionCount++
	mc.mu.Unlock()
	mc.AddOperationLatency(kind, duration)
}

func (mc *MetricsCollector) RecordUnknownAction() {
	unknownActionsTotal.Inc()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.unknownCount++
}

func (mc *MetricsCollector) RecordListenerPanic() {
	listenerPanicsTotal.Inc()
}

func (mc *MetricsCollector) RecordQuickUpdate(numPosts int) {
	quickUpdateSize.Observe(float64(numPosts))
}

func (mc *MetricsCollector) IncrementErrors() {
	errorsTotal.Inc()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	total, exists := mc.operationTimes[operationName]
	if !exists {
		total = &latencyTotal{}
		mc.operationTimes[operationName] = total
	}
	total.sum += duration
	total.count++
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	averages := make(map[string]time.Duration, len(mc.operationTimes))
	for name, total := range mc.operationTimes {
		if total.count == 0 {
			continue
		}
		averages[name] = total.sum / time.Duration(total.count)
	}

	return MetricsSnapshot{
		Actions:        mc.actionCount,
		Errors:         mc.errorCount,
		UnknownActions: mc.unknownCount,
		AverageLatency: averages,
		Uptime:         time.Since(mc.systemStartTime),
	}
}
