package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

// kubernetesClient implements MonitorClient on top of a controller-runtime client.
type kubernetesClient struct {
	client.Client

	// now is replaceable for deterministic event timestamps in tests.
	now func() time.Time
}

// NewKubernetesClient creates a client for restConfig without checking for the CRD.
func NewKubernetesClient(restConfig *rest.Config) (*kubernetesClient, error) {
	c, err := client.New(restConfig, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}
	return &kubernetesClient{Client: c, now: time.Now}, nil
}

// Wrap turns an existing controller-runtime client into a MonitorClient. The client's
// scheme must include the Monitor types (see NewScheme).
func Wrap(c client.Client) MonitorClient {
	return &kubernetesClient{Client: c, now: time.Now}
}

// GetMonitor retrieves a Monitor.
func (k *kubernetesClient) GetMonitor(ctx context.Context, name, namespace string) (*datadogv1.Monitor, error) {
	monitor := &datadogv1.Monitor{}
	key := types.NamespacedName{Name: name, Namespace: namespace}

	if err := k.Get(ctx, key, monitor); err != nil {
		return nil, fmt.Errorf("failed to get Monitor %s/%s: %w", namespace, name, err)
	}
	return monitor, nil
}

// ListMonitors lists Monitors in namespace, or in all namespaces if it is empty.
func (k *kubernetesClient) ListMonitors(ctx context.Context, namespace string) ([]datadogv1.Monitor, error) {
	list := &datadogv1.MonitorList{}
	if err := k.List(ctx, list, &client.ListOptions{Namespace: namespace}); err != nil {
		return nil, fmt.Errorf("failed to list Monitors: %w", err)
	}

	sort.Slice(list.Items, func(i, j int) bool {
		if list.Items[i].Namespace != list.Items[j].Namespace {
			return list.Items[i].Namespace < list.Items[j].Namespace
		}
		return list.Items[i].Name < list.Items[j].Name
	})
	return list.Items, nil
}

// UpdateMonitor updates metadata and spec of a Monitor.
func (k *kubernetesClient) UpdateMonitor(ctx context.Context, monitor *datadogv1.Monitor) error {
	return k.Update(ctx, monitor)
}

// UpdateMonitorStatus updates the status subresource of a Monitor.
func (k *kubernetesClient) UpdateMonitorStatus(ctx context.Context, monitor *datadogv1.Monitor) error {
	return k.Status().Update(ctx, monitor)
}

// validateCRDs checks that the Monitor CRD is served by the cluster.
func (k *kubernetesClient) validateCRDs(ctx context.Context) error {
	list := &datadogv1.MonitorList{}
	if err := k.List(ctx, list, client.Limit(1)); err != nil {
		return fmt.Errorf("Monitor CRD not available: %w", err)
	}
	return nil
}

// CreateEvent creates a Kubernetes Event for obj.
func (k *kubernetesClient) CreateEvent(ctx context.Context, obj client.Object, reason, message, eventType string) error {
	gvk, err := k.GroupVersionKindFor(obj)
	if err != nil {
		return fmt.Errorf("failed to get GroupVersionKind for object: %w", err)
	}

	now := metav1.NewTime(k.now())
	event := &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: obj.GetName() + "-",
			Namespace:    obj.GetNamespace(),
		},
		InvolvedObject: corev1.ObjectReference{
			APIVersion:      gvk.GroupVersion().String(),
			Kind:            gvk.Kind,
			Name:            obj.GetName(),
			Namespace:       obj.GetNamespace(),
			UID:             obj.GetUID(),
			ResourceVersion: obj.GetResourceVersion(),
		},
		Reason:         reason,
		Message:        message,
		Type:           eventType,
		Source:         corev1.EventSource{Component: EventSourceComponent},
		FirstTimestamp: now,
		LastTimestamp:  now,
		Count:          1,
	}

	if err := k.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create Kubernetes Event: %w", err)
	}
	return nil
}

// ListEvents returns the operator's Events for Monitor name in namespace, newest first.
// An empty name returns the Events of all Monitors.
func (k *kubernetesClient) ListEvents(ctx context.Context, namespace, name string) ([]corev1.Event, error) {
	list := &corev1.EventList{}
	if err := k.List(ctx, list, &client.ListOptions{Namespace: namespace}); err != nil {
		return nil, fmt.Errorf("failed to list Kubernetes events: %w", err)
	}

	// Filtered client-side: cache-backed clients only support indexed field selectors.
	var events []corev1.Event
	for _, e := range list.Items {
		if e.Source.Component != EventSourceComponent || e.InvolvedObject.Kind != datadogv1.MonitorKind {
			continue
		}
		if name != "" && e.InvolvedObject.Name != name {
			continue
		}
		events = append(events, e)
	}

	sort.Slice(events, func(i, j int) bool {
		return eventTime(events[i]).After(eventTime(events[j]))
	})
	return events, nil
}

func eventTime(e corev1.Event) time.Time {
	if !e.LastTimestamp.IsZero() {
		return e.LastTimestamp.Time
	}
	if !e.FirstTimestamp.IsZero() {
		return e.FirstTimestamp.Time
	}
	return e.CreationTimestamp.Time
}
