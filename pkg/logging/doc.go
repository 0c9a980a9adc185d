// Package logging provides the structured logger used across dogkop.
//
// It is a thin layer over Go's slog package. Every entry carries a subsystem
// identifier so output can be filtered per component:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Watching namespace %s", namespace)
//	logging.Debug("IdentityResolver", "Searching Datadog with %q", query)
//	logging.Error("MonitorReconciler", err, "Failed to sync status for %s", key)
//
// Subsystems in use:
//
//   - Bootstrap: configuration and startup
//   - ReconcileManager, KubernetesDetector: the event dispatch runtime
//   - MonitorReconciler: Kubernetes side of Monitor reconciliation
//   - IdentityResolver, MonitorSynchronizer, Reconciler: the reconciliation core
//   - DatadogClient: remote API calls
//   - CredentialsWatcher: API key rotation
//
// InitForCLI also installs the same handler as the controller-runtime and klog
// logger, so informer and cache logs end up in the same stream and format.
package logging
