// Package metrics implements Collector, a Prometheus-backed recorder for
// retry attempts, node latency and workflow completions. Grounded on the
// teacher's graph/metrics.go PrometheusMetrics: same
// promauto.With(registry) construction, the same enabled-flag-guarded
// WithLabelValues(...).Inc()/Observe() method bodies, and the same
// Enable/Disable toggle for tests. Trimmed to the concerns spec.md
// actually names -- retry attempts/success/exhaustion (implementing
// retry.MetricsRecorder), node latency, and workflow completions by final
// state -- dropping the teacher's scheduler-queue metrics (inflight_nodes,
// queue_depth, merge_conflicts_total, backpressure_events_total), which
// have no analogue in spicegraph's cooperative single-run model (spec §5:
// nodes are awaited one at a time, there is no scheduler queue to measure).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements retry.MetricsRecorder and runner.NodeMetricsRecorder.
type Collector struct {
	retries        *prometheus.CounterVec
	retrySuccess   *prometheus.CounterVec
	retryExhausted *prometheus.CounterVec
	nodeLatency    *prometheus.HistogramVec
	workflows      *prometheus.CounterVec

	mu      sync.RWMutex
	enabled bool
}

// NewCollector registers every metric with registry (prometheus.DefaultRegisterer
// if nil) and returns a ready-to-use Collector.
func NewCollector(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Collector{
		enabled: true,

		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spicegraph",
			Name:      "retries_total",
			Help:      "Cumulative count of node retry attempts.",
		}, []string{"node_id", "reason"}),

		retrySuccess: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spicegraph",
			Name:      "retry_success_total",
			Help:      "Node invocations that eventually succeeded after one or more retries.",
		}, []string{"node_id"}),

		retryExhausted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spicegraph",
			Name:      "retry_exhausted_total",
			Help:      "Node invocations that failed after exhausting all retry attempts.",
		}, []string{"node_id"}),

		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "spicegraph",
			Name:      "node_latency_ms",
			Help:      "Node execution duration in milliseconds, including any retries.",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		}, []string{"node_id", "status"}),

		workflows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "spicegraph",
			Name:      "workflow_completions_total",
			Help:      "Workflow runs reaching a terminal state, by final state.",
		}, []string{"final_state"}),
	}
}

func (c *Collector) isEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// Disable stops all recording (useful for tests that assert on call counts
// elsewhere without Prometheus noise).
func (c *Collector) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enable resumes recording after Disable.
func (c *Collector) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// IncrementRetries implements retry.MetricsRecorder.
func (c *Collector) IncrementRetries(nodeID, reason string) {
	if !c.isEnabled() {
		return
	}
	c.retries.WithLabelValues(nodeID, reason).Inc()
}

// RecordRetrySuccess implements retry.MetricsRecorder.
func (c *Collector) RecordRetrySuccess(nodeID string) {
	if !c.isEnabled() {
		return
	}
	c.retrySuccess.WithLabelValues(nodeID).Inc()
}

// RecordRetryExhausted implements retry.MetricsRecorder.
func (c *Collector) RecordRetryExhausted(nodeID string) {
	if !c.isEnabled() {
		return
	}
	c.retryExhausted.WithLabelValues(nodeID).Inc()
}

// RecordNodeLatency implements runner.NodeMetricsRecorder.
func (c *Collector) RecordNodeLatency(nodeID string, latency time.Duration, status string) {
	if !c.isEnabled() {
		return
	}
	c.nodeLatency.WithLabelValues(nodeID, status).Observe(float64(latency.Milliseconds()))
}

// RecordWorkflowCompletion implements runner.NodeMetricsRecorder.
func (c *Collector) RecordWorkflowCompletion(finalState string) {
	if !c.isEnabled() {
		return
	}
	c.workflows.WithLabelValues(finalState).Inc()
}
