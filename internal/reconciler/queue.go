package reconciler

import (
	"context"
	"sync"
	"time"
)

// requestKey generates a unique key for a reconcile request.
func requestKey(req ReconcileRequest) string {
	return req.Namespace + "/" + req.Name
}

// mergeRequests folds two requests for the same resource into one. The stronger
// operation wins and a fresh change resets the attempt counter.
func mergeRequests(existing, incoming ReconcileRequest) ReconcileRequest {
	merged := incoming
	if existing.Operation.weight() > incoming.Operation.weight() {
		merged.Operation = existing.Operation
	}
	if existing.Attempt < incoming.Attempt {
		merged.Attempt = existing.Attempt
		merged.LastError = existing.LastError
	}
	return merged
}

// workQueue implements ReconcileQueue with deduplication.
type workQueue struct {
	mu sync.Mutex

	// queue holds requests in FIFO order
	queue []ReconcileRequest

	// processing tracks items currently being processed
	processing map[string]bool

	// dirty tracks items that need reprocessing
	dirty map[string]ReconcileRequest

	// cond is used for blocking Get operations
	cond *sync.Cond

	// shuttingDown indicates the queue is stopping
	shuttingDown bool
}

// NewQueue creates a new reconciliation queue.
func NewQueue() ReconcileQueue {
	q := &workQueue{
		queue:      make([]ReconcileRequest, 0),
		processing: make(map[string]bool),
		dirty:      make(map[string]ReconcileRequest),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add adds or merges a request in the queue.
func (q *workQueue) Add(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}

	key := requestKey(req)

	// Being processed: remember it for after Done
	if q.processing[key] {
		if existing, ok := q.dirty[key]; ok {
			req = mergeRequests(existing, req)
		}
		q.dirty[key] = req
		return
	}

	for i, existing := range q.queue {
		if requestKey(existing) == key {
			q.queue[i] = mergeRequests(existing, req)
			return
		}
	}

	q.queue = append(q.queue, req)
	q.cond.Signal()
}

// Get retrieves the next request, blocking if necessary.
func (q *workQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		select {
		case <-ctx.Done():
			return ReconcileRequest{}, false
		default:
		}

		// Wake the cond when the context ends; done stops the goroutine on a normal wakeup.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		select {
		case <-ctx.Done():
			return ReconcileRequest{}, false
		default:
		}
	}

	if q.shuttingDown && len(q.queue) == 0 {
		return ReconcileRequest{}, false
	}

	req := q.queue[0]
	q.queue = q.queue[1:]
	q.processing[requestKey(req)] = true

	return req, true
}

// Done marks a request as completed.
func (q *workQueue) Done(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := requestKey(req)
	delete(q.processing, key)

	if dirtyReq, ok := q.dirty[key]; ok {
		delete(q.dirty, key)
		q.queue = append(q.queue, dirtyReq)
		q.cond.Signal()
	}
}

// Len returns the queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Shutdown stops the queue.
func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

type delayedItem struct {
	req   ReconcileRequest
	timer *time.Timer
}

// delayedQueue wraps a queue with delayed requeue support.
type delayedQueue struct {
	queue   ReconcileQueue
	mu      sync.Mutex
	delayed map[string]*delayedItem
	stopCh  chan struct{}
	stopped bool
}

// NewDelayedQueue creates a queue that supports delayed requeuing.
func NewDelayedQueue() *delayedQueue {
	return &delayedQueue{
		queue:   NewQueue(),
		delayed: make(map[string]*delayedItem),
		stopCh:  make(chan struct{}),
	}
}

// Add adds a request immediately. A pending delayed retry of the same resource is
// cancelled and merged into req.
func (d *delayedQueue) Add(req ReconcileRequest) {
	d.mu.Lock()
	key := requestKey(req)
	if item, ok := d.delayed[key]; ok {
		item.timer.Stop()
		delete(d.delayed, key)
		req = mergeRequests(item.req, req)
	}
	d.mu.Unlock()

	d.queue.Add(req)
}

// AddAfter adds a request after a delay.
func (d *delayedQueue) AddAfter(req ReconcileRequest, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	key := requestKey(req)
	if item, ok := d.delayed[key]; ok {
		item.timer.Stop()
	}

	item := &delayedItem{req: req}
	item.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		if d.delayed[key] != item {
			d.mu.Unlock()
			return
		}
		delete(d.delayed, key)
		d.mu.Unlock()

		select {
		case <-d.stopCh:
			return
		default:
			d.queue.Add(req)
		}
	})
	d.delayed[key] = item
}

// Get retrieves the next request.
func (d *delayedQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	return d.queue.Get(ctx)
}

// Done marks a request as completed.
func (d *delayedQueue) Done(req ReconcileRequest) {
	d.queue.Done(req)
}

// Len returns the number of requests ready for processing.
func (d *delayedQueue) Len() int {
	return d.queue.Len()
}

// Pending returns the number of requests waiting for their delay to pass.
func (d *delayedQueue) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delayed)
}

// Shutdown stops the queue and cancels pending timers.
func (d *delayedQueue) Shutdown() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	for _, item := range d.delayed {
		item.timer.Stop()
	}
	d.delayed = make(map[string]*delayedItem)
	d.mu.Unlock()

	d.queue.Shutdown()
}
