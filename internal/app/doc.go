// Package app provides application bootstrap and lifecycle management for dogkop.
//
// It wires the operator together: configuration, logging, Datadog credentials and
// client, the reconciliation core, the Kubernetes client and change detector, the
// reconcile manager and the operations HTTP server.
//
// # Bootstrap
//
// NewApplication runs the bootstrap sequence:
//
//  1. Configure logging from the --debug flag
//  2. Load config.yaml from the configuration path and apply flag overrides
//  3. Validate the configuration
//  4. Re-configure logging with the configured level
//  5. Initialize services (see InitializeServices)
//
// Configuration problems are returned as config errors so the CLI can exit with
// a distinct status code.
//
// # Run
//
// Run starts the credentials watcher and the reconcile manager and serves the
// operations endpoints until the context is cancelled or SIGINT/SIGTERM arrives.
// Shutdown stops the manager, which drains in-flight reconciliations.
//
// # Operations endpoints
//
//   - GET /metrics: Prometheus metrics
//   - GET /healthz: liveness
//   - GET /readyz: ready while the reconcile manager runs
//   - GET /status: reconcile status of all Monitors
//   - GET /status/{namespace}/{name}: reconcile status of one Monitor
//   - POST /reconcile/{namespace}/{name}: queue a manual reconciliation
package app
