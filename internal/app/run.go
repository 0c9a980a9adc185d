package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/dogkop/pkg/logging"
)

// runOperator starts all long running components and blocks until ctx is done,
// SIGINT or SIGTERM arrives, or a component fails.
func runOperator(ctx context.Context, services *Services) error {
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if services.CredentialsWatcher != nil {
		if err := services.CredentialsWatcher.Start(); err != nil {
			return fmt.Errorf("failed to start credentials watcher: %w", err)
		}
		defer func() { _ = services.CredentialsWatcher.Stop() }()
	}

	if err := services.Manager.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start reconcile manager: %w", err)
	}
	logging.Info("Operator", "Reconciling Monitors. Press Ctrl+C to stop.")

	grp, groupCtx := errgroup.WithContext(runCtx)

	if services.Server != nil {
		grp.Go(func() error {
			return services.Server.Run(groupCtx)
		})
	}

	grp.Go(func() error {
		<-groupCtx.Done()
		logging.Info("Operator", "Shutting down")
		return services.Manager.Stop()
	})

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info("Operator", "Stopped")
	return nil
}
