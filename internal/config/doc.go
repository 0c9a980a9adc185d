// Package config provides configuration management for dogkop.
//
// Configuration is loaded from a single directory containing config.yaml. The
// default directory is ~/.config/dogkop; the operator deployment usually points
// --config-path at a mounted ConfigMap instead. A missing config.yaml is not an
// error and yields the defaults.
//
// # Configuration Structure
//
//	datadog:
//	  site: "datadoghq.eu"             # Datadog site (default: datadoghq.com)
//	  credentialsDir: "/etc/dogkop/keys" # directory with api-key and app-key files
//	  timeout: 30s                     # per request timeout
//	  rateLimit: 10                    # requests per second, 0 disables limiting
//	  rateBurst: 5
//	  skipVerification: false          # trust cached ids without a get
//	reconciler:
//	  namespace: ""                    # watch all namespaces when empty
//	  workers: 2
//	  maxRetries: 0                    # 0 retries forever
//	  maxBackoff: 10m
//	  reconcileTimeout: 2h
//	  eventBufferSize: 100
//	server:
//	  enabled: true
//	  address: ":8080"                 # /metrics, /healthz, /readyz, /status
//	logging:
//	  level: "info"
//
// # Credentials
//
// The Datadog keys are taken, in order, from the files in datadog.credentialsDir,
// from datadog.apiKey/datadog.appKey, and finally from the environment variables
// DD_API_KEY or DATADOG_API_KEY and DD_APP_KEY or DATADOG_APP_KEY. DD_SITE fills
// datadog.site when the file leaves it empty.
//
// # Usage
//
//	cfg, err := config.LoadConfig(config.GetDefaultConfigPathOrPanic())
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
