package cmd

import (
	"context"
	"fmt"

	"github.com/giantswarm/dogkop/internal/app"
	dogkopclient "github.com/giantswarm/dogkop/internal/client"
	"github.com/giantswarm/dogkop/internal/config"
	"github.com/giantswarm/dogkop/internal/datadog"
)

// monitorSearcher is the part of the Datadog API used by lookup.
type monitorSearcher interface {
	SearchMonitors(ctx context.Context, query string) ([]datadog.Monitor, error)
}

// Client factories, replaced in tests.
var (
	newMonitorClient = func() (dogkopclient.MonitorClient, error) {
		return dogkopclient.NewMonitorClient(nil)
	}

	newMonitorSearcher = func(configPath string) (monitorSearcher, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		store, _, err := app.NewCredentials(cfg.Datadog)
		if err != nil {
			return nil, err
		}
		c, err := datadog.NewClient(datadog.ClientConfig{
			BaseURL:     cfg.Datadog.BaseURL,
			Site:        cfg.Datadog.Site,
			Credentials: store,
			Timeout:     cfg.Datadog.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Datadog client: %w", err)
		}
		return c, nil
	}
)

// resolveConfigPath returns path, or the default configuration directory when it is empty.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	return config.GetDefaultConfigPathOrPanic()
}
