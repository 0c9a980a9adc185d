package config

import "time"

// OperatorConfig is the top-level configuration structure for dogkop.
type OperatorConfig struct {
	Datadog    DatadogConfig    `yaml:"datadog"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DatadogConfig defines how the operator talks to Datadog.
type DatadogConfig struct {
	Site    string `yaml:"site,omitempty"`    // Datadog site (default: datadoghq.com)
	BaseURL string `yaml:"baseURL,omitempty"` // Overrides the URL derived from Site

	// Keys inline in the file are supported for local runs. Deployments should
	// mount a Secret and set CredentialsDir.
	APIKey         string `yaml:"apiKey,omitempty"`
	AppKey         string `yaml:"appKey,omitempty"`
	CredentialsDir string `yaml:"credentialsDir,omitempty"`

	Timeout   time.Duration `yaml:"timeout,omitempty"`
	RateLimit float64       `yaml:"rateLimit,omitempty"`
	RateBurst int           `yaml:"rateBurst,omitempty"`

	// SkipVerification trusts a valid cached monitor id without fetching it first.
	SkipVerification bool `yaml:"skipVerification,omitempty"`
}

// ReconcilerConfig defines the event-dispatch runtime.
type ReconcilerConfig struct {
	Namespace        string        `yaml:"namespace,omitempty"` // Empty watches all namespaces
	Workers          int           `yaml:"workers,omitempty"`
	MaxRetries       int           `yaml:"maxRetries,omitempty"` // 0 retries without limit
	MaxBackoff       time.Duration `yaml:"maxBackoff,omitempty"`
	ReconcileTimeout time.Duration `yaml:"reconcileTimeout,omitempty"`
	EventBufferSize  int           `yaml:"eventBufferSize,omitempty"`
}

// ServerConfig defines the operations HTTP server.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address,omitempty"`
}

// LoggingConfig defines log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// Supported log levels.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)
