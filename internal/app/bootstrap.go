package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/giantswarm/dogkop/internal/config"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Application represents the main application structure that bootstraps and runs dogkop.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, set up services
//  2. Execution phase: run the reconcile manager and the operations server
//
// Example usage:
//
//	cfg := app.NewConfig(false, "/etc/dogkop")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
//
// It returns an error if configuration loading, validation or service initialization
// fails. Configuration problems satisfy config.IsConfigurationError.
func NewApplication(cfg *Config) (*Application, error) {
	return newApplication(cfg, Dependencies{}, os.Stdout)
}

func newApplication(cfg *Config, deps Dependencies, logOutput io.Writer) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}
	logging.InitForCLI(appLogLevel, logOutput)

	if cfg.OperatorConfig == nil {
		operatorCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		cfg.OperatorConfig = &operatorCfg
	}
	cfg.applyOverrides()

	if err := cfg.OperatorConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	configuredLevel, err := logging.ParseLevel(cfg.OperatorConfig.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if configuredLevel != appLogLevel {
		logging.InitForCLI(configuredLevel, logOutput)
	}

	services, err := InitializeServices(cfg, deps)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run executes the application
//
// Handles graceful shutdown via context cancellation and system signals.
// The method blocks until the application is terminated or encounters an error.
func (a *Application) Run(ctx context.Context) error {
	return runOperator(ctx, a.services)
}
