package reconciler

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/dogkop/pkg/logging"
)

const metricsNamespace = "dogkop"

// Result labels of dogkop_reconcile_total.
const (
	ResultSuccess = "success"
	ResultRetry   = "retry"
	ResultFatal   = "fatal"
)

// Metrics tracks reconciliation metrics for monitoring and alerting.
//
// All methods are safe on a nil receiver so metrics stay optional in tests.
type Metrics struct {
	reconcileTotal     *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
	retryDelay         prometheus.Histogram
	queueDepth         prometheus.Gauge
	statusSyncFailures prometheus.Counter
}

// NewMetrics creates the reconciliation metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_total",
			Help:      "Reconciliation attempts by operation and result.",
		}, []string{"operation", "result"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation attempts.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		retryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "retry_delay_seconds",
			Help:      "Delays scheduled before retrying a failed attempt.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 600},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Requests waiting for a worker.",
		}),
		statusSyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "status_sync_failures_total",
			Help:      "Monitor status writes that failed after retries.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.reconcileTotal, m.reconcileDuration, m.retryDelay, m.queueDepth, m.statusSyncFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register reconciler metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveReconcile records the outcome and duration of one attempt.
func (m *Metrics) ObserveReconcile(operation ChangeOperation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(string(operation), result).Inc()
	m.reconcileDuration.WithLabelValues(string(operation)).Observe(duration.Seconds())
}

// ObserveRetryDelay records a scheduled retry delay.
func (m *Metrics) ObserveRetryDelay(delay time.Duration) {
	if m == nil {
		return
	}
	m.retryDelay.Observe(delay.Seconds())
}

// SetQueueDepth reports the number of queued requests.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// RecordStatusSyncFailure records a failed status write.
//
// A high rate usually points at API server trouble or missing RBAC on monitors/status.
func (m *Metrics) RecordStatusSyncFailure(namespace, name, reason string) {
	logging.Warn("ReconcilerMetrics", "Status sync failure for %s/%s: %s", namespace, name, reason)
	if m == nil {
		return
	}
	m.statusSyncFailures.Inc()
}
