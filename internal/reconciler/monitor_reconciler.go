package reconciler

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	"github.com/giantswarm/dogkop/internal/events"
	"github.com/giantswarm/dogkop/internal/monitor"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Core reconciles a single event against Datadog. *monitor.Reconciler implements it.
type Core interface {
	Reconcile(ctx context.Context, ev monitor.Event, patch *monitor.StatusPatch) error
}

// MonitorReconciler adapts Monitor resources to the reconciliation core.
//
// For each request it:
//   - loads the Monitor and adds the cleanup finalizer to live objects
//   - builds the core event from the resource and its cached Datadog id
//   - runs the core and writes the resulting status with retry-on-conflict
//   - removes the finalizer once the Datadog monitor is gone
//   - records Kubernetes Events describing the outcome
type MonitorReconciler struct {
	client  dogkopclient.MonitorClient
	core    Core
	events  *events.EventGenerator
	metrics *Metrics
	backoff monitor.BackoffPolicy
	now     func() time.Time
}

// NewMonitorReconciler creates a Monitor reconciler.
func NewMonitorReconciler(c dogkopclient.MonitorClient, core Core) *MonitorReconciler {
	return &MonitorReconciler{
		client: c,
		core:   core,
		now:    time.Now,
	}
}

// WithEvents enables Kubernetes Event recording.
func (r *MonitorReconciler) WithEvents(generator *events.EventGenerator) *MonitorReconciler {
	r.events = generator
	return r
}

// WithMetrics enables status sync failure metrics.
func (r *MonitorReconciler) WithMetrics(metrics *Metrics) *MonitorReconciler {
	r.metrics = metrics
	return r
}

// WithBackoff sets the policy used to delay retries after Kubernetes API failures.
func (r *MonitorReconciler) WithBackoff(policy monitor.BackoffPolicy) *MonitorReconciler {
	r.backoff = policy
	return r
}

// WithClock replaces the clock used for status timestamps.
func (r *MonitorReconciler) WithClock(now func() time.Time) *MonitorReconciler {
	r.now = now
	return r
}

// Reconcile processes a single Monitor reconciliation request.
func (r *MonitorReconciler) Reconcile(ctx context.Context, req ReconcileRequest) ReconcileResult {
	logging.Debug("MonitorReconciler", "Reconciling Monitor %s/%s (%s, attempt %d, correlation %s)",
		req.Namespace, req.Name, req.Operation, req.Attempt, req.CorrelationID)
	if req.LastError != nil {
		logging.Info("MonitorReconciler", "Retrying Monitor %s/%s (attempt %d), previous attempt failed: %s",
			req.Namespace, req.Name, req.Attempt, SanitizeErrorMessage(req.LastError.Error()))
	}

	mon, err := r.client.GetMonitor(ctx, req.Name, req.Namespace)
	if err != nil {
		if apierrors.IsNotFound(err) {
			logging.Debug("MonitorReconciler", "Monitor %s/%s no longer exists", req.Namespace, req.Name)
			return ReconcileResult{}
		}
		return r.result(req, fmt.Errorf("failed to get monitor %s/%s: %w", req.Namespace, req.Name, err))
	}

	op := monitor.OperationUpdate
	switch {
	case mon.IsMarkedForDeletion():
		if !controllerutil.ContainsFinalizer(mon, datadogv1.MonitorFinalizer) {
			return ReconcileResult{}
		}
		op = monitor.OperationDelete
	case req.Operation == OperationCreate:
		op = monitor.OperationCreate
	}

	if op != monitor.OperationDelete && !controllerutil.ContainsFinalizer(mon, datadogv1.MonitorFinalizer) {
		controllerutil.AddFinalizer(mon, datadogv1.MonitorFinalizer)
		if err := r.client.UpdateMonitor(ctx, mon); err != nil {
			return r.result(req, fmt.Errorf("failed to add finalizer to monitor %s/%s: %w", req.Namespace, req.Name, err))
		}
	}

	cached := monitor.NoCachedID()
	if raw, ok := mon.CachedMonitorID(); ok {
		cached = monitor.CachedIDFromString(raw)
	}

	ev := monitor.Event{
		Operation: op,
		Identity: monitor.Identity{
			Namespace: mon.Namespace,
			Name:      mon.Name,
			UID:       string(mon.UID),
		},
		Spec:     monitor.Spec(mon.Spec),
		CachedID: cached,
		Attempt:  req.Attempt,
	}

	patch := &monitor.StatusPatch{}
	coreErr := r.core.Reconcile(ctx, ev, patch)

	// The patch may hold a rediscovered id even when the attempt failed
	r.syncStatus(ctx, mon.Name, mon.Namespace, mon.Generation, patch, coreErr)

	result := r.result(req, coreErr)
	r.recordEvents(ctx, mon, ev, patch, coreErr, result)

	if coreErr == nil && op == monitor.OperationDelete {
		if err := r.removeFinalizer(ctx, mon.Name, mon.Namespace); err != nil {
			return r.result(req, fmt.Errorf("failed to remove finalizer from monitor %s/%s: %w", req.Namespace, req.Name, err))
		}
		logging.Info("MonitorReconciler", "Released Monitor %s/%s for deletion", mon.Namespace, mon.Name)
	}

	return result
}

// result maps a core or Kubernetes error to a dispatch result.
func (r *MonitorReconciler) result(req ReconcileRequest, err error) ReconcileResult {
	if err == nil {
		return ReconcileResult{}
	}
	if monitor.IsFatal(err) {
		return ReconcileResult{Error: err, Fatal: true}
	}

	delay, ok := monitor.RetryDelay(err)
	if !ok {
		delay = r.backoff.Delay(req.Attempt)
	}
	return ReconcileResult{Error: err, Requeue: true, RequeueAfter: delay}
}

// syncStatus writes the outcome of an attempt into the Monitor status.
//
// The Monitor is re-fetched on every conflict and the outcome re-applied.
// Status sync is best-effort: failures are logged and counted, never retried by the manager.
func (r *MonitorReconciler) syncStatus(ctx context.Context, name, namespace string, generation int64, patch *monitor.StatusPatch, reconcileErr error) {
	var lastErr error
	retryErr := retry.OnError(StatusSyncRetryBackoff, IsConflictError, func() error {
		current, err := r.client.GetMonitor(ctx, name, namespace)
		if err != nil {
			lastErr = err
			return nil
		}

		r.applyStatus(current, generation, patch, reconcileErr)

		if err := r.client.UpdateMonitorStatus(ctx, current); err != nil {
			lastErr = err
			return err
		}
		lastErr = nil
		return nil
	})

	switch {
	case retryErr != nil:
		r.metrics.RecordStatusSyncFailure(namespace, name, retryErr.Error())
	case lastErr != nil && apierrors.IsNotFound(lastErr):
		logging.Debug("MonitorReconciler", "Monitor %s/%s vanished before its status was written", namespace, name)
	case lastErr != nil:
		r.metrics.RecordStatusSyncFailure(namespace, name, lastErr.Error())
	default:
		logging.Debug("MonitorReconciler", "Synced Monitor %s/%s status", namespace, name)
	}
}

// applyStatus sets the status fields of mon from one attempt.
func (r *MonitorReconciler) applyStatus(mon *datadogv1.Monitor, generation int64, patch *monitor.StatusPatch, reconcileErr error) {
	if id, ok := patch.MonitorID(); ok {
		mon.SetCachedMonitorID(id)
	} else if patch.Cleared() {
		mon.ClearCachedMonitorID()
	}

	switch {
	case reconcileErr == nil:
		mon.Status.State = datadogv1.MonitorStateSynced
		mon.Status.LastError = ""
		mon.Status.ObservedGeneration = generation
	case monitor.IsFatal(reconcileErr):
		mon.Status.State = datadogv1.MonitorStateFailed
		mon.Status.LastError = SanitizeErrorMessage(reconcileErr.Error())
	default:
		mon.Status.State = datadogv1.MonitorStateError
		mon.Status.LastError = SanitizeErrorMessage(reconcileErr.Error())
	}

	now := metav1.NewTime(r.now())
	mon.Status.LastReconcileTime = &now
}

// removeFinalizer releases the Monitor so the API server can delete it.
func (r *MonitorReconciler) removeFinalizer(ctx context.Context, name, namespace string) error {
	return retry.RetryOnConflict(StatusSyncRetryBackoff, func() error {
		current, err := r.client.GetMonitor(ctx, name, namespace)
		if err != nil {
			if apierrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if !controllerutil.RemoveFinalizer(current, datadogv1.MonitorFinalizer) {
			return nil
		}
		return r.client.UpdateMonitor(ctx, current)
	})
}

// recordEvents emits the Kubernetes Events describing an attempt.
func (r *MonitorReconciler) recordEvents(ctx context.Context, mon *datadogv1.Monitor, ev monitor.Event, patch *monitor.StatusPatch, reconcileErr error, result ReconcileResult) {
	if r.events == nil {
		return
	}

	newID, hasNewID := patch.MonitorID()
	if hasNewID && ev.CachedID.IsPresent() {
		if old, ok := ev.CachedID.Value(); !ok || old != newID {
			previous, _ := mon.CachedMonitorID()
			r.emit(ctx, mon, events.ReasonMonitorRediscovered, events.EventData{
				Operation:  string(ev.Operation),
				MonitorID:  newID,
				PreviousID: previous,
			})
		}
	}

	data := events.EventData{
		Operation: string(ev.Operation),
		MonitorID: newID,
		Attempt:   ev.Attempt,
	}
	if !hasNewID {
		data.MonitorID, _ = ev.CachedID.Value()
	}
	if reconcileErr != nil {
		data.Error = SanitizeErrorMessage(reconcileErr.Error())
	}

	switch {
	case reconcileErr == nil && ev.Operation == monitor.OperationDelete:
		r.emit(ctx, mon, events.ReasonMonitorDeleted, data)
	case reconcileErr == nil && ev.Operation == monitor.OperationCreate:
		r.emit(ctx, mon, events.ReasonMonitorCreated, data)
	case reconcileErr == nil:
		r.emit(ctx, mon, events.ReasonMonitorUpdated, data)
	case result.Fatal:
		r.emit(ctx, mon, events.ReasonMonitorFailed, data)
	default:
		data.RetryIn = result.RequeueAfter
		r.emit(ctx, mon, events.ReasonMonitorSyncFailed, data)
	}
}

func (r *MonitorReconciler) emit(ctx context.Context, mon *datadogv1.Monitor, reason events.EventReason, data events.EventData) {
	if err := r.events.MonitorEvent(ctx, mon, reason, data); err != nil {
		logging.Warn("MonitorReconciler", "Failed to record %s event for %s/%s: %v",
			reason, mon.Namespace, mon.Name, err)
	}
}
