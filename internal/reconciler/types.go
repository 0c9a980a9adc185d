package reconciler

import (
	"context"
	"time"
)

// ChangeEvent represents a detected change in a Monitor.
type ChangeEvent struct {
	// Name is the name of the resource that changed.
	Name string

	// Namespace is the Kubernetes namespace of the resource.
	Namespace string

	// Operation describes what kind of change occurred.
	Operation ChangeOperation

	// Timestamp is when the change was detected.
	Timestamp time.Time

	// Source indicates where the change came from.
	Source ChangeSource
}

// ChangeOperation represents the type of change detected.
type ChangeOperation string

const (
	// OperationCreate indicates a new resource was created.
	OperationCreate ChangeOperation = "Create"

	// OperationUpdate indicates the spec of an existing resource was modified.
	OperationUpdate ChangeOperation = "Update"

	// OperationDelete indicates a resource is being deleted.
	OperationDelete ChangeOperation = "Delete"
)

// weight orders operations when requests for the same resource are merged.
func (o ChangeOperation) weight() int {
	switch o {
	case OperationDelete:
		return 3
	case OperationUpdate:
		return 2
	case OperationCreate:
		return 1
	default:
		return 0
	}
}

// ChangeSource indicates where a change originated.
type ChangeSource string

const (
	// SourceKubernetes indicates the change came from Kubernetes informers.
	SourceKubernetes ChangeSource = "Kubernetes"

	// SourceManual indicates the change was triggered manually.
	SourceManual ChangeSource = "Manual"
)

// ReconcileResult represents the outcome of a reconciliation attempt.
type ReconcileResult struct {
	// Requeue indicates whether the resource should be requeued for retry.
	Requeue bool

	// RequeueAfter specifies when to requeue. Zero with Requeue set means the manager
	// picks a delay.
	RequeueAfter time.Duration

	// Fatal marks an error that must not be retried.
	Fatal bool

	// Error is any error that occurred during reconciliation.
	Error error
}

// ReconcileRequest represents a request to reconcile a specific Monitor.
type ReconcileRequest struct {
	Name      string
	Namespace string

	// Operation is the lifecycle operation that triggered the request.
	Operation ChangeOperation

	// Attempt counts previous failed attempts, starting at 0.
	Attempt int

	// LastError is the error from the previous attempt, if any.
	LastError error

	// CorrelationID identifies one attempt in logs.
	CorrelationID string
}

// Reconciler processes reconcile requests.
type Reconciler interface {
	// Reconcile processes a single request. It must be idempotent.
	Reconcile(ctx context.Context, req ReconcileRequest) ReconcileResult
}

// ChangeDetector is the interface for components that detect changes in resources.
type ChangeDetector interface {
	// Start begins watching for changes and sends them to changes.
	Start(ctx context.Context, changes chan<- ChangeEvent) error

	// Stop gracefully stops the change detector.
	Stop() error

	// GetSource returns the source type this detector monitors.
	GetSource() ChangeSource
}

// ReconcileQueue represents a queue of resources awaiting reconciliation.
type ReconcileQueue interface {
	// Add adds a request to the queue.
	// If the same resource is already queued, the requests are merged.
	Add(req ReconcileRequest)

	// Get retrieves the next request from the queue.
	// Blocks until a request is available or the context is cancelled.
	Get(ctx context.Context) (ReconcileRequest, bool)

	// Done marks a request as processed.
	Done(req ReconcileRequest)

	// Len returns the current queue length.
	Len() int

	// Shutdown signals the queue to stop accepting new items.
	Shutdown()
}

// ManagerConfig holds configuration for the Manager.
type ManagerConfig struct {
	// WorkerCount is the number of concurrent reconciliation workers.
	// Defaults to 2 if not specified.
	WorkerCount int

	// MaxRetries is the maximum number of attempts before a resource is marked Failed.
	// Zero means retry forever.
	MaxRetries int

	// MaxBackoff caps the delay used when a failure carries no delay of its own.
	// Defaults to 600 seconds.
	MaxBackoff time.Duration

	// ReconcileTimeout is the maximum time allowed for a single attempt.
	// Defaults to 2 hours.
	ReconcileTimeout time.Duration

	// EventBufferSize is the capacity of the change event channel.
	// Defaults to 100.
	EventBufferSize int
}

// ReconcileStatus represents the current status of reconciliation for a resource.
type ReconcileStatus struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`

	// LastReconcileTime is when the resource was last successfully reconciled.
	LastReconcileTime *time.Time `json:"lastReconcileTime,omitempty"`

	// LastError is the most recent error, if any.
	LastError string `json:"lastError,omitempty"`

	// RetryCount is the number of retry attempts.
	RetryCount int `json:"retryCount"`

	// State describes the current reconciliation state.
	State ReconcileState `json:"state"`
}

// ReconcileState represents the state of a resource's reconciliation.
type ReconcileState string

const (
	// StatePending means the resource is awaiting reconciliation.
	StatePending ReconcileState = "Pending"

	// StateReconciling means reconciliation is in progress.
	StateReconciling ReconcileState = "Reconciling"

	// StateSynced means the resource is successfully reconciled.
	StateSynced ReconcileState = "Synced"

	// StateError means reconciliation failed and will be retried.
	StateError ReconcileState = "Error"

	// StateFailed means reconciliation failed permanently.
	StateFailed ReconcileState = "Failed"
)
