// Package reconciler is the event-dispatch runtime that drives Monitor reconciliation.
//
// # Overview
//
// The reconciliation core in internal/monitor knows how to bring a Datadog monitor in
// line with one event but nothing about Kubernetes. This package supplies everything
// around it:
//
//   - KubernetesDetector: watches Monitor resources through controller-runtime informers
//     and turns them into change events
//   - work queue: deduplicates requests per resource and supports delayed re-adds
//   - Manager: runs a worker pool, enforces a per-attempt timeout, counts attempts and
//     requeues failures after the delay the core computed
//   - MonitorReconciler: loads the Monitor, manages its finalizer, calls the core and
//     persists the resulting status and Kubernetes Events
//
// # Usage
//
//	detector, _ := reconciler.NewKubernetesDetector(restConfig, namespace)
//	manager := reconciler.NewManager(config, detector, monitorReconciler)
//	if err := manager.Start(ctx); err != nil {
//	    return fmt.Errorf("failed to start reconciliation: %w", err)
//	}
//	defer manager.Stop()
//
// # Ordering
//
// A resource is processed by at most one worker at a time. Changes arriving while it is
// being processed are folded into a single follow-up request. Distinct resources are
// reconciled concurrently.
package reconciler
