package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/dogkop/internal/monitor"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Manager coordinates all reconciliation activities.
//
// It manages:
//   - the change detector feeding Monitor events
//   - the work queue and worker pool
//   - attempt counting and requeueing after the delay each failure carries
type Manager struct {
	mu sync.RWMutex

	config ManagerConfig

	// changeDetector detects Monitor changes
	changeDetector ChangeDetector

	// reconciler handles each request
	reconciler Reconciler

	// queue is the work queue for reconciliation requests
	queue *delayedQueue

	// statusTracker tracks reconciliation status for each resource
	statusTracker map[string]*ReconcileStatus

	// changeChan receives change events from the detector
	changeChan chan ChangeEvent

	metrics *Metrics

	// now is replaceable in tests
	now func() time.Time

	// ctx is the manager's context
	ctx context.Context

	// cancelFunc cancels the manager's context
	cancelFunc context.CancelFunc

	// wg tracks running workers
	wg sync.WaitGroup

	// running indicates if the manager is active
	running bool
}

// NewManager creates a new reconciliation manager.
func NewManager(config ManagerConfig, detector ChangeDetector, reconciler Reconciler) *Manager {
	// Apply defaults
	if config.WorkerCount <= 0 {
		config.WorkerCount = 2
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = monitor.DefaultMaxBackoff
	}
	if config.ReconcileTimeout <= 0 {
		config.ReconcileTimeout = 2 * time.Hour
	}
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = 100
	}

	return &Manager{
		config:         config,
		changeDetector: detector,
		reconciler:     reconciler,
		queue:          NewDelayedQueue(),
		statusTracker:  make(map[string]*ReconcileStatus),
		changeChan:     make(chan ChangeEvent, config.EventBufferSize),
		now:            time.Now,
	}
}

// WithMetrics enables Prometheus metrics.
func (m *Manager) WithMetrics(metrics *Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Start begins the reconciliation system.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	if m.reconciler == nil {
		m.mu.Unlock()
		return fmt.Errorf("no reconciler configured")
	}

	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.running = true
	m.mu.Unlock()

	if m.changeDetector != nil {
		if err := m.changeDetector.Start(m.ctx, m.changeChan); err != nil {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			m.cancelFunc()
			return fmt.Errorf("failed to start change detector: %w", err)
		}
	}

	// Start event processor
	m.wg.Add(1)
	go m.processChangeEvents()

	// Start workers
	for i := 0; i < m.config.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	logging.Info("ReconcileManager", "Started with %d workers", m.config.WorkerCount)
	return nil
}

// processChangeEvents converts change events to reconcile requests.
func (m *Manager) processChangeEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-m.changeChan:
			if !ok {
				return
			}
			m.handleChangeEvent(event)
		}
	}
}

// handleChangeEvent processes a single change event.
func (m *Manager) handleChangeEvent(event ChangeEvent) {
	logging.Debug("ReconcileManager", "Handling change event: %s %s/%s (source %s)",
		event.Operation, event.Namespace, event.Name, event.Source)

	m.updateStatus(event.Name, event.Namespace, StatePending, "")

	m.queue.Add(ReconcileRequest{
		Name:      event.Name,
		Namespace: event.Namespace,
		Operation: event.Operation,
	})
	m.metrics.SetQueueDepth(m.queue.Len())
}

// worker processes reconciliation requests from the queue.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	logging.Debug("ReconcileManager", "Worker %d started", id)

	for {
		req, ok := m.queue.Get(m.ctx)
		if !ok {
			logging.Debug("ReconcileManager", "Worker %d shutting down", id)
			return
		}
		m.metrics.SetQueueDepth(m.queue.Len())

		m.processRequest(req)
		m.queue.Done(req)
	}
}

// processRequest handles a single reconciliation request.
func (m *Manager) processRequest(req ReconcileRequest) {
	req.CorrelationID = uuid.NewString()

	m.updateStatus(req.Name, req.Namespace, StateReconciling, "")

	logging.Debug("ReconcileManager", "Reconciling %s %s/%s (attempt %d, correlation %s)",
		req.Operation, req.Namespace, req.Name, req.Attempt, req.CorrelationID)

	// Execute reconciliation with timeout to prevent hung reconcilers from blocking workers
	ctx, cancel := context.WithTimeout(m.ctx, m.config.ReconcileTimeout)
	defer cancel()

	start := m.now()
	result := m.reconciler.Reconcile(ctx, req)
	duration := m.now().Sub(start)

	// Shutting down: leave the resource for the next process
	if m.ctx.Err() != nil {
		return
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !result.Fatal {
		result.Error = fmt.Errorf("reconciliation timed out after %v", m.config.ReconcileTimeout)
		result.Requeue = true
		result.RequeueAfter = monitor.ComputeDelay(req.Attempt, m.config.MaxBackoff, nil)
	}

	switch {
	case result.Fatal:
		m.metrics.ObserveReconcile(req.Operation, ResultFatal, duration)
		m.handleFatal(req, result)
	case result.Error != nil || result.Requeue:
		m.metrics.ObserveReconcile(req.Operation, ResultRetry, duration)
		m.handleRetry(req, result)
	default:
		m.metrics.ObserveReconcile(req.Operation, ResultSuccess, duration)
		m.handleSuccess(req)
	}
}

// handleFatal marks a resource as failed without requeueing it.
func (m *Manager) handleFatal(req ReconcileRequest, result ReconcileResult) {
	errMsg := "reconciliation failed"
	if result.Error != nil {
		errMsg = result.Error.Error()
	}
	logging.Error("ReconcileManager", result.Error, "Giving up on %s/%s (correlation %s)",
		req.Namespace, req.Name, req.CorrelationID)
	m.updateStatus(req.Name, req.Namespace, StateFailed, SanitizeErrorMessage(errMsg))
}

// handleRetry requeues a failed attempt with an incremented attempt counter.
func (m *Manager) handleRetry(req ReconcileRequest, result ReconcileResult) {
	errMsg := ""
	if result.Error != nil {
		errMsg = SanitizeErrorMessage(result.Error.Error())
		logging.Warn("ReconcileManager", "Reconciliation failed for %s/%s (attempt %d, correlation %s): %v",
			req.Namespace, req.Name, req.Attempt, req.CorrelationID, result.Error)
	}

	if m.config.MaxRetries > 0 && req.Attempt+1 >= m.config.MaxRetries {
		logging.Error("ReconcileManager", result.Error,
			"Max retries exceeded for %s/%s", req.Namespace, req.Name)
		m.updateStatus(req.Name, req.Namespace, StateFailed, errMsg)
		return
	}

	m.updateStatus(req.Name, req.Namespace, StateError, errMsg)

	delay := result.RequeueAfter
	next := req
	next.Attempt++
	next.LastError = result.Error
	next.CorrelationID = ""
	m.queue.AddAfter(next, delay)
	m.metrics.ObserveRetryDelay(delay)

	logging.Debug("ReconcileManager", "Requeuing %s/%s after %v (attempt %d)",
		req.Namespace, req.Name, delay, next.Attempt)
}

// handleSuccess handles a successful reconciliation.
func (m *Manager) handleSuccess(req ReconcileRequest) {
	logging.Debug("ReconcileManager", "Successfully reconciled %s/%s", req.Namespace, req.Name)
	m.updateStatus(req.Name, req.Namespace, StateSynced, "")
}

// updateStatus updates the reconciliation status for a resource.
func (m *Manager) updateStatus(name, namespace string, state ReconcileState, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statusKey(name, namespace)
	status, ok := m.statusTracker[key]
	if !ok {
		status = &ReconcileStatus{
			Name:      name,
			Namespace: namespace,
		}
		m.statusTracker[key] = status
	}

	status.State = state
	status.LastError = errMsg

	switch state {
	case StateSynced:
		now := m.now()
		status.LastReconcileTime = &now
		status.RetryCount = 0
	case StateError:
		status.RetryCount++
	}
}

// statusKey generates a unique key for status tracking.
func statusKey(name, namespace string) string {
	return namespace + "/" + name
}

// Stop gracefully shuts down the reconciliation manager.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	logging.Info("ReconcileManager", "Stopping reconciliation manager...")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.changeDetector != nil {
		if err := m.changeDetector.Stop(); err != nil {
			logging.Error("ReconcileManager", err, "Error stopping change detector")
		}
	}

	m.queue.Shutdown()
	m.wg.Wait()

	logging.Info("ReconcileManager", "Reconciliation manager stopped")
	return nil
}

// GetStatus returns the reconciliation status for a resource.
func (m *Manager) GetStatus(name, namespace string) (*ReconcileStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status, ok := m.statusTracker[statusKey(name, namespace)]
	if !ok {
		return nil, false
	}
	copied := *status
	return &copied, true
}

// GetAllStatuses returns all reconciliation statuses ordered by namespace and name.
func (m *Manager) GetAllStatuses() []ReconcileStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]ReconcileStatus, 0, len(m.statusTracker))
	for _, status := range m.statusTracker {
		statuses = append(statuses, *status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Namespace != statuses[j].Namespace {
			return statuses[i].Namespace < statuses[j].Namespace
		}
		return statuses[i].Name < statuses[j].Name
	})
	return statuses
}

// TriggerReconcile manually triggers reconciliation for a resource.
func (m *Manager) TriggerReconcile(name, namespace string) {
	m.handleChangeEvent(ChangeEvent{
		Name:      name,
		Namespace: namespace,
		Operation: OperationUpdate,
		Timestamp: m.now(),
		Source:    SourceManual,
	})
}

// IsRunning returns whether the manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetQueueLength returns the current queue length.
func (m *Manager) GetQueueLength() int {
	return m.queue.Len()
}

// GetPendingRetries returns the number of requests waiting for their retry delay.
func (m *Manager) GetPendingRetries() int {
	return m.queue.Pending()
}
