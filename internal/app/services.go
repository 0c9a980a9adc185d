package app

import (
	"fmt"

	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"

	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	"github.com/giantswarm/dogkop/internal/config"
	"github.com/giantswarm/dogkop/internal/credentials"
	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/internal/events"
	"github.com/giantswarm/dogkop/internal/monitor"
	"github.com/giantswarm/dogkop/internal/reconciler"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Dependencies lets callers replace the cluster-facing collaborators. Zero values
// are filled from the environment: the kubeconfig or in-cluster configuration and
// controller-runtime's metrics registry.
type Dependencies struct {
	RestConfig    *rest.Config
	MonitorClient dogkopclient.MonitorClient
	Registry      ctrlmetrics.RegistererGatherer
}

// Services holds all initialized services and components.
type Services struct {
	Config *config.OperatorConfig

	Credentials *credentials.Store

	// CredentialsWatcher reloads rotated keys. It is nil when the keys come from
	// the configuration file or the environment.
	CredentialsWatcher *credentials.Watcher

	Datadog       *datadog.Client
	Core          *monitor.Reconciler
	MonitorClient dogkopclient.MonitorClient
	Metrics       *reconciler.Metrics
	Manager       *reconciler.Manager

	// Server is nil when the operations server is disabled.
	Server *Server
}

// InitializeServices creates all services needed by the application.
//
// Initialization Sequence:
//  1. Credentials store, and the key file watcher when a credentials directory is set
//  2. Datadog client and the reconciliation core
//  3. Kubernetes client for Monitors and Events
//  4. Metrics on the Prometheus registry
//  5. Change detector, Monitor adapter and reconcile manager
//  6. Operations server, when enabled
func InitializeServices(cfg *Config, deps Dependencies) (*Services, error) {
	opCfg := cfg.OperatorConfig
	if opCfg == nil {
		return nil, fmt.Errorf("operator configuration not loaded")
	}

	store, watcher, err := NewCredentials(opCfg.Datadog)
	if err != nil {
		return nil, err
	}

	ddClient, err := datadog.NewClient(datadog.ClientConfig{
		BaseURL:     opCfg.Datadog.BaseURL,
		Site:        opCfg.Datadog.Site,
		Credentials: store,
		Timeout:     opCfg.Datadog.Timeout,
		RateLimit:   opCfg.Datadog.RateLimit,
		RateBurst:   opCfg.Datadog.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Datadog client: %w", err)
	}

	core := monitor.New(ddClient, monitor.Options{
		MaxBackoff:       opCfg.Reconciler.MaxBackoff,
		SkipVerification: opCfg.Datadog.SkipVerification,
	})

	restConfig := deps.RestConfig
	if restConfig == nil {
		restConfig, err = ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
		}
	}

	monitorClient := deps.MonitorClient
	if monitorClient == nil {
		monitorClient, err = dogkopclient.NewMonitorClient(&dogkopclient.Config{RestConfig: restConfig})
		if err != nil {
			return nil, fmt.Errorf("failed to create Monitor client: %w", err)
		}
	}

	registry := deps.Registry
	if registry == nil {
		registry = ctrlmetrics.Registry
	}
	metrics, err := reconciler.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	detector, err := reconciler.NewKubernetesDetector(restConfig, opCfg.Reconciler.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create change detector: %w", err)
	}

	adapter := reconciler.NewMonitorReconciler(monitorClient, core).
		WithEvents(events.NewEventGenerator(monitorClient)).
		WithMetrics(metrics).
		WithBackoff(monitor.BackoffPolicy{MaxDelay: opCfg.Reconciler.MaxBackoff})

	manager := reconciler.NewManager(reconciler.ManagerConfig{
		WorkerCount:      opCfg.Reconciler.Workers,
		MaxRetries:       opCfg.Reconciler.MaxRetries,
		MaxBackoff:       opCfg.Reconciler.MaxBackoff,
		ReconcileTimeout: opCfg.Reconciler.ReconcileTimeout,
		EventBufferSize:  opCfg.Reconciler.EventBufferSize,
	}, detector, adapter).WithMetrics(metrics)

	services := &Services{
		Config:             opCfg,
		Credentials:        store,
		CredentialsWatcher: watcher,
		Datadog:            ddClient,
		Core:               core,
		MonitorClient:      monitorClient,
		Metrics:            metrics,
		Manager:            manager,
	}

	if opCfg.Server.Enabled {
		services.Server = NewServer(opCfg.Server.Address, manager, registry)
	}

	logging.Info("Bootstrap", "Services initialized (namespace=%s, workers=%d, site=%s)",
		namespaceDisplay(opCfg.Reconciler.Namespace), opCfg.Reconciler.Workers, opCfg.Datadog.Site)
	return services, nil
}

// NewCredentials builds the key store from the credentials directory, or from
// the configured keys when no directory is set.
func NewCredentials(cfg config.DatadogConfig) (*credentials.Store, *credentials.Watcher, error) {
	if cfg.CredentialsDir == "" {
		store, err := credentials.NewStore(cfg.APIKey, cfg.AppKey)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid Datadog credentials: %w", err)
		}
		return store, nil, nil
	}

	apiKey, appKey, err := credentials.LoadDir(cfg.CredentialsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load Datadog credentials: %w", err)
	}
	store, err := credentials.NewStore(apiKey, appKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid Datadog credentials: %w", err)
	}

	watcher, err := credentials.NewWatcher(credentials.WatcherConfig{
		Dir:   cfg.CredentialsDir,
		Store: store,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create credentials watcher: %w", err)
	}
	return store, watcher, nil
}

func namespaceDisplay(namespace string) string {
	if namespace == "" {
		return "<all>"
	}
	return namespace
}
