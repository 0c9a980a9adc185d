package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/dogkop/internal/config"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates the configuration could not be loaded or is invalid.
	ExitCodeConfigError = 2
)

// rootCmd represents the base command for the dogkop application.
var rootCmd = &cobra.Command{
	Use:   "dogkop",
	Short: "Manage Datadog monitors as Kubernetes resources",
	Long: `dogkop is a Kubernetes operator that keeps Datadog monitors in sync with
Monitor resources (monitors.datadog.mzizzi). It creates, updates and deletes
the Datadog monitor behind each resource and records the monitor id in the
resource status.

Use 'dogkop serve' to run the operator and 'dogkop get monitors' to inspect
the resources it manages.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	// Inspection commands only log warnings, to stderr. serve re-initializes logging.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.InitForCLI(logging.LevelWarn, cmd.ErrOrStderr())
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "dogkop version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if config.IsConfigurationError(err) {
		return ExitCodeConfigError
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newLookupCmd())
}
