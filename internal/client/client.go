package client

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	datadogv1 "github.com/giantswarm/dogkop/pkg/apis/datadog/v1"
)

// EventSourceComponent is the source component of Events created by the operator.
const EventSourceComponent = "dogkop"

// MonitorClient gives typed access to Monitor resources.
type MonitorClient interface {
	client.Client

	GetMonitor(ctx context.Context, name, namespace string) (*datadogv1.Monitor, error)
	ListMonitors(ctx context.Context, namespace string) ([]datadogv1.Monitor, error)
	UpdateMonitor(ctx context.Context, monitor *datadogv1.Monitor) error

	// UpdateMonitorStatus writes only the status subresource.
	UpdateMonitorStatus(ctx context.Context, monitor *datadogv1.Monitor) error

	CreateEvent(ctx context.Context, obj client.Object, reason, message, eventType string) error
	ListEvents(ctx context.Context, namespace, name string) ([]corev1.Event, error)
}

// Config provides options for client creation.
type Config struct {
	// RestConfig overrides the detected Kubernetes configuration.
	RestConfig *rest.Config

	// SkipCRDCheck skips verifying that the Monitor CRD is installed.
	SkipCRDCheck bool
}

// NewScheme returns a scheme with the core Kubernetes types and the Monitor types.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(datadogv1.AddToScheme(scheme))
	return scheme
}

// NewMonitorClient connects to the cluster from cfg, or from the standard kubeconfig /
// in-cluster detection when cfg is nil.
func NewMonitorClient(cfg *Config) (MonitorClient, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	restConfig := cfg.RestConfig
	if restConfig == nil {
		var err error
		restConfig, err = ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
		}
	}

	c, err := NewKubernetesClient(restConfig)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipCRDCheck {
		if err := c.validateCRDs(context.Background()); err != nil {
			return nil, fmt.Errorf("CRD validation failed: %w", err)
		}
	}
	return c, nil
}
