package app

import (
	"github.com/giantswarm/dogkop/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// ConfigPath is the directory holding config.yaml.
	ConfigPath string

	// Flag overrides. Empty values keep the configured value.
	Namespace      string
	MetricsAddress string

	// OperatorConfig is loaded during bootstrap unless already set.
	OperatorConfig *config.OperatorConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// applyOverrides copies flag values over the loaded configuration.
func (c *Config) applyOverrides() {
	if c.OperatorConfig == nil {
		return
	}
	if c.Namespace != "" {
		c.OperatorConfig.Reconciler.Namespace = c.Namespace
	}
	if c.MetricsAddress != "" {
		c.OperatorConfig.Server.Address = c.MetricsAddress
		c.OperatorConfig.Server.Enabled = true
	}
	if c.Debug {
		c.OperatorConfig.Logging.Level = config.LogLevelDebug
	}
}
