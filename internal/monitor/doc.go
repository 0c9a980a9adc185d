// Package monitor is the reconciliation core of dogkop.
//
// It keeps a Monitor resource and its Datadog counterpart in sync for create, update
// and delete events:
//
//   - Resolver finds the authoritative Datadog id, verifying the id cached in status
//     and falling back to a search on the operator-managed identity tags.
//   - Synchronizer creates or updates the Datadog monitor from a copy of the spec with
//     the identity tags merged in.
//   - BackoffPolicy computes the jittered delay before the next attempt.
//   - Reconciler composes the three for one event and classifies failures as
//     retryable (RetryableError, with a delay) or fatal (FatalError).
//
// The package knows nothing about Kubernetes. The event-dispatch runtime in
// internal/reconciler hands it an Event, persists the StatusPatch it fills in and
// re-invokes it after the returned delay. The core holds no process-wide state, so
// distinct resources can be reconciled concurrently; attempts for the same resource
// must be sequential.
package monitor
