package reconciler

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return metrics, reg
}

func TestMetrics_Registration(t *testing.T) {
	_, reg := newTestMetrics(t)

	if _, err := NewMetrics(reg); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestMetrics_ObserveReconcile(t *testing.T) {
	metrics, reg := newTestMetrics(t)

	metrics.ObserveReconcile(OperationCreate, ResultSuccess, 20*time.Millisecond)
	metrics.ObserveReconcile(OperationCreate, ResultRetry, 10*time.Millisecond)
	metrics.ObserveReconcile(OperationDelete, ResultSuccess, time.Second)

	if got := testutil.ToFloat64(metrics.reconcileTotal.WithLabelValues("Create", ResultSuccess)); got != 1 {
		t.Errorf("Create/success = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.reconcileTotal.WithLabelValues("Create", ResultRetry)); got != 1 {
		t.Errorf("Create/retry = %v, want 1", got)
	}

	if n := testutil.CollectAndCount(metrics.reconcileDuration); n != 2 {
		t.Errorf("duration series = %d, want 2", n)
	}

	expected := `
# HELP dogkop_reconcile_total Reconciliation attempts by operation and result.
# TYPE dogkop_reconcile_total counter
dogkop_reconcile_total{operation="Create",result="retry"} 1
dogkop_reconcile_total{operation="Create",result="success"} 1
dogkop_reconcile_total{operation="Delete",result="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "dogkop_reconcile_total"); err != nil {
		t.Error(err)
	}
}

func TestMetrics_QueueAndRetry(t *testing.T) {
	metrics, _ := newTestMetrics(t)

	metrics.SetQueueDepth(3)
	metrics.ObserveRetryDelay(4 * time.Second)
	metrics.RecordStatusSyncFailure("default", "cpu-high", "conflict")

	if got := testutil.ToFloat64(metrics.queueDepth); got != 3 {
		t.Errorf("queue depth = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(metrics.retryDelay); n != 1 {
		t.Errorf("retry delay series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(metrics.statusSyncFailures); got != 1 {
		t.Errorf("status sync failures = %v, want 1", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var metrics *Metrics

	// None of these may panic
	metrics.ObserveReconcile(OperationUpdate, ResultFatal, time.Second)
	metrics.ObserveRetryDelay(time.Second)
	metrics.SetQueueDepth(1)
	metrics.RecordStatusSyncFailure("default", "cpu-high", "boom")
}

func testutilValue(m *Metrics) float64 {
	return testutil.ToFloat64(m.statusSyncFailures)
}
