package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/dogkop/internal/app"
)

type serveOptions struct {
	debug          bool
	configPath     string
	namespace      string
	metricsAddress string
}

// newServeCmd creates the command that runs the operator.
func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Monitor operator",
		Long: `Runs the operator: watches Monitor resources and reconciles each one against
the Datadog monitor API until interrupted.

Configuration:
  dogkop loads config.yaml from --config-path (default ~/.config/dogkop).
  A missing file means defaults. Datadog keys come from datadog.credentialsDir,
  from datadog.apiKey/appKey, or from DD_API_KEY and DD_APP_KEY.

  --namespace, --metrics-address and --debug override the file.

Exit codes:
  0  stopped cleanly
  1  runtime error
  2  configuration error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.configPath, "config-path", "", "Configuration directory containing config.yaml (default ~/.config/dogkop)")
	cmd.Flags().StringVarP(&opts.namespace, "namespace", "n", "", "Only watch Monitors in this namespace")
	cmd.Flags().StringVar(&opts.metricsAddress, "metrics-address", "", "Address of the metrics and health endpoints, e.g. :8080")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg := app.NewConfig(opts.debug, resolveConfigPath(opts.configPath))
	cfg.Namespace = opts.namespace
	cfg.MetricsAddress = opts.metricsAddress

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
