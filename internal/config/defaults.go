package config

import (
	"time"

	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/internal/monitor"
)

const (
	// DefaultServerAddress serves metrics and health probes.
	DefaultServerAddress = ":8080"

	// DefaultWorkers is the number of concurrent reconcile workers.
	DefaultWorkers = 2

	// DefaultReconcileTimeout bounds a single reconcile attempt.
	DefaultReconcileTimeout = 2 * time.Hour

	// DefaultEventBufferSize is the capacity of the change event channel.
	DefaultEventBufferSize = 100
)

// GetDefaultConfig returns the default configuration for dogkop.
func GetDefaultConfig() OperatorConfig {
	return OperatorConfig{
		Datadog: DatadogConfig{
			Site:    datadog.DefaultSite,
			Timeout: datadog.DefaultTimeout,
		},
		Reconciler: ReconcilerConfig{
			Workers:          DefaultWorkers,
			MaxBackoff:       monitor.DefaultMaxBackoff,
			ReconcileTimeout: DefaultReconcileTimeout,
			EventBufferSize:  DefaultEventBufferSize,
		},
		Server: ServerConfig{
			Enabled: true,
			Address: DefaultServerAddress,
		},
		Logging: LoggingConfig{
			Level: LogLevelInfo,
		},
	}
}
