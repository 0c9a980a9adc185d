package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	toolscache "k8s.io/client-go/tools/cache"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// KubernetesDetector implements ChangeDetector using controller-runtime informers.
//
// It watches Monitor resources and turns informer notifications into change events:
//   - add: Create, or Delete when the object is already being deleted
//   - update: Delete when a deletion timestamp appears, Update when the generation
//     changes, nothing otherwise (status and finalizer writes do not bump the generation)
//   - delete: Delete
type KubernetesDetector struct {
	mu sync.RWMutex

	// restConfig is the Kubernetes REST configuration
	restConfig *rest.Config

	// namespace is the Kubernetes namespace to watch (empty for all namespaces)
	namespace string

	// cache is the controller-runtime cache for watching resources
	cache cache.Cache

	// scheme is the runtime scheme with registered types
	scheme *runtime.Scheme

	// changeChan is the channel to send change events to
	changeChan chan<- ChangeEvent

	// ctx is the detector's context
	ctx context.Context

	// cancelFunc cancels the detector's context
	cancelFunc context.CancelFunc

	// running indicates if the detector is active
	running bool

	registration toolscache.ResourceEventHandlerRegistration

	now func() time.Time
}

// NewKubernetesDetector creates a new Kubernetes change detector.
//
// Args:
//   - restConfig: Kubernetes REST configuration for API access
//   - namespace: Namespace to watch (empty string watches all namespaces)
func NewKubernetesDetector(restConfig *rest.Config, namespace string) (*KubernetesDetector, error) {
	if restConfig == nil {
		return nil, fmt.Errorf("kubernetes REST config is required")
	}
	return &KubernetesDetector{
		restConfig: restConfig,
		namespace:  namespace,
		scheme:     dogkopclient.NewScheme(),
		now:        time.Now,
	}, nil
}

// Start begins watching for Monitor changes. It returns once the cache has synced.
func (d *KubernetesDetector) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	d.ctx, d.cancelFunc = context.WithCancel(ctx)
	d.changeChan = changes
	d.running = true
	d.mu.Unlock()

	cacheOpts := cache.Options{
		Scheme: d.scheme,
	}
	if d.namespace != "" {
		cacheOpts.DefaultNamespaces = map[string]cache.Config{
			d.namespace: {},
		}
	}

	c, err := cache.New(d.restConfig, cacheOpts)
	if err != nil {
		d.abortStart()
		return fmt.Errorf("failed to create cache: %w", err)
	}

	d.mu.Lock()
	d.cache = c
	d.mu.Unlock()

	informer, err := c.GetInformer(d.ctx, &datadogv1.Monitor{})
	if err != nil {
		d.abortStart()
		return fmt.Errorf("failed to get informer for monitors: %w", err)
	}

	registration, err := informer.AddEventHandler(d.eventHandler())
	if err != nil {
		d.abortStart()
		return fmt.Errorf("failed to add event handler for monitors: %w", err)
	}

	d.mu.Lock()
	d.registration = registration
	d.mu.Unlock()

	go func() {
		if err := c.Start(d.ctx); err != nil {
			logging.Error("KubernetesDetector", err, "Cache stopped with error")
		}
	}()

	if !c.WaitForCacheSync(d.ctx) {
		d.abortStart()
		return fmt.Errorf("failed to sync cache")
	}

	logging.Info("KubernetesDetector", "Started watching monitors in namespace: %s", d.namespaceDisplay())
	return nil
}

func (d *KubernetesDetector) abortStart() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
}

// eventHandler creates the informer callbacks.
func (d *KubernetesDetector) eventHandler() toolscache.ResourceEventHandler {
	return toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			d.handleAdd(obj)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			d.handleUpdate(oldObj, newObj)
		},
		DeleteFunc: func(obj interface{}) {
			d.handleDelete(obj)
		},
	}
}

// handleAdd processes an add event from the informer.
func (d *KubernetesDetector) handleAdd(obj interface{}) {
	o, ok := obj.(client.Object)
	if !ok {
		logging.Warn("KubernetesDetector", "Failed to extract metadata from add event")
		return
	}

	op := OperationCreate
	if o.GetDeletionTimestamp() != nil {
		op = OperationDelete
	}
	d.sendChangeEvent(d.changeEvent(o, op))
}

// handleUpdate processes an update event from the informer.
func (d *KubernetesDetector) handleUpdate(oldObj, newObj interface{}) {
	oldO, ok1 := oldObj.(client.Object)
	newO, ok2 := newObj.(client.Object)
	if !ok1 || !ok2 {
		logging.Warn("KubernetesDetector", "Failed to extract metadata from update event")
		return
	}

	switch {
	case newO.GetDeletionTimestamp() != nil && oldO.GetDeletionTimestamp() == nil:
		d.sendChangeEvent(d.changeEvent(newO, OperationDelete))
	case newO.GetGeneration() != oldO.GetGeneration():
		op := OperationUpdate
		if newO.GetDeletionTimestamp() != nil {
			op = OperationDelete
		}
		d.sendChangeEvent(d.changeEvent(newO, op))
	default:
		logging.Debug("KubernetesDetector", "Ignoring update of %s/%s without spec change",
			newO.GetNamespace(), newO.GetName())
	}
}

// handleDelete processes a delete event from the informer.
func (d *KubernetesDetector) handleDelete(obj interface{}) {
	// Handle DeletedFinalStateUnknown for objects deleted while the watch was down
	if deletedState, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
		obj = deletedState.Obj
	}

	o, ok := obj.(client.Object)
	if !ok {
		logging.Warn("KubernetesDetector", "Failed to extract metadata from delete event")
		return
	}
	d.sendChangeEvent(d.changeEvent(o, OperationDelete))
}

func (d *KubernetesDetector) changeEvent(o client.Object, op ChangeOperation) ChangeEvent {
	return ChangeEvent{
		Name:      o.GetName(),
		Namespace: o.GetNamespace(),
		Operation: op,
		Timestamp: d.now(),
		Source:    SourceKubernetes,
	}
}

// sendChangeEvent sends a change event to the output channel.
//
// The send blocks so events are never dropped; the manager drains the channel
// continuously and the detector context bounds the wait.
func (d *KubernetesDetector) sendChangeEvent(event ChangeEvent) {
	d.mu.RLock()
	changeChan := d.changeChan
	running := d.running
	ctx := d.ctx
	d.mu.RUnlock()

	if !running || changeChan == nil {
		return
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}

	select {
	case changeChan <- event:
		logging.Debug("KubernetesDetector", "Emitted change event: %s %s/%s",
			event.Operation, event.Namespace, event.Name)
	case <-done:
		logging.Debug("KubernetesDetector", "Detector stopped, dropping event for %s/%s",
			event.Namespace, event.Name)
	}
}

// Stop gracefully stops the Kubernetes detector.
func (d *KubernetesDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false

	// Cancel the context to stop the cache and informers
	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	d.registration = nil

	logging.Info("KubernetesDetector", "Stopped Kubernetes detector")
	return nil
}

// GetSource returns the change source type.
func (d *KubernetesDetector) GetSource() ChangeSource {
	return SourceKubernetes
}

// namespaceDisplay returns a display string for the namespace.
func (d *KubernetesDetector) namespaceDisplay() string {
	if d.namespace == "" {
		return "all namespaces"
	}
	return d.namespace
}
