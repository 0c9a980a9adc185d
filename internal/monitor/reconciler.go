package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/pkg/logging"
)

// Options configures a Reconciler.
type Options struct {
	// MaxBackoff caps retry delays. Zero means DefaultMaxBackoff.
	MaxBackoff time.Duration

	// Rand is the backoff random source. Nil means math/rand/v2.
	Rand Rand

	// SkipVerification trusts a valid cached id without a get call.
	SkipVerification bool
}

// Reconciler reconciles one event at a time against Datadog.
type Reconciler struct {
	api          MonitorAPI
	resolver     *Resolver
	synchronizer *Synchronizer
	backoff      BackoffPolicy
}

// New returns a Reconciler talking to api.
func New(api MonitorAPI, opts Options) *Reconciler {
	return &Reconciler{
		api:          api,
		resolver:     NewResolver(api, !opts.SkipVerification),
		synchronizer: NewSynchronizer(api),
		backoff:      BackoffPolicy{MaxDelay: opts.MaxBackoff, Rand: opts.Rand},
	}
}

// Reconcile brings Datadog in line with ev and records status changes in patch.
//
// It returns nil on success, a *RetryableError whose Delay is computed from ev.Attempt,
// or a *FatalError when retrying cannot help.
func (r *Reconciler) Reconcile(ctx context.Context, ev Event, patch *StatusPatch) error {
	var err error
	switch ev.Operation {
	case OperationCreate, OperationUpdate:
		err = r.apply(ctx, ev, patch)
	case OperationDelete:
		err = r.delete(ctx, ev, patch)
	default:
		err = &FatalError{Identity: ev.Identity, Err: fmt.Errorf("unknown operation %q", ev.Operation)}
	}
	if err == nil {
		return nil
	}
	return r.classify(ev, err)
}

func (r *Reconciler) apply(ctx context.Context, ev Event, patch *StatusPatch) error {
	tags := IdentityTags(ev.Identity)

	remoteID, err := r.resolver.Resolve(ctx, ev.Identity, ev.CachedID)
	if err != nil {
		return err
	}
	if cached, _ := ev.CachedID.Value(); remoteID != 0 && remoteID != cached {
		patch.SetMonitorID(remoteID)
	}

	m, err := r.synchronizer.Synchronize(ctx, ev.Spec, remoteID, tags)
	if errors.Is(err, ErrRemoteMonitorGone) {
		m, remoteID, err = r.recoverGone(ctx, ev, remoteID, tags)
	}
	if err != nil {
		return err
	}
	if m.ID <= 0 {
		return retryable(fmt.Errorf("datadog returned no monitor id for %s", ev.Identity))
	}

	if remoteID == 0 || m.ID != remoteID {
		logging.Info("Monitor", "Created datadog monitor %d for %s", m.ID, ev.Identity)
	} else {
		logging.Info("Monitor", "Updated datadog monitor %d for %s", m.ID, ev.Identity)
	}
	patch.SetMonitorID(m.ID)
	return nil
}

// recoverGone handles an update whose target vanished. A monitor carrying the identity
// tags is updated in its place; only when there is none a new one is created.
func (r *Reconciler) recoverGone(ctx context.Context, ev Event, goneID int64, tags []string) (datadog.Monitor, int64, error) {
	found, err := r.resolver.search(ctx, ev.Identity)
	if err != nil {
		return datadog.Monitor{}, 0, err
	}

	if found == 0 || found == goneID {
		logging.Info("Monitor", "Datadog monitor %d of %s disappeared during update, creating a new one", goneID, ev.Identity)
		m, err := r.synchronizer.Synchronize(ctx, ev.Spec, 0, tags)
		return m, 0, err
	}

	logging.Info("Monitor", "Datadog monitor %d of %s disappeared during update, updating %d found by identity tags", goneID, ev.Identity, found)
	m, err := r.synchronizer.Synchronize(ctx, ev.Spec, found, tags)
	if errors.Is(err, ErrRemoteMonitorGone) {
		return datadog.Monitor{}, found, retryable(err)
	}
	return m, found, err
}

func (r *Reconciler) delete(ctx context.Context, ev Event, patch *StatusPatch) error {
	remoteID, err := r.resolver.Resolve(ctx, ev.Identity, ev.CachedID)
	if err != nil {
		return err
	}

	if remoteID == 0 {
		logging.Debug("Monitor", "No datadog monitor to delete for %s, it may be orphaned", ev.Identity)
		if ev.CachedID.IsPresent() {
			patch.ClearMonitorID()
		}
		return nil
	}

	if err := r.api.DeleteMonitor(ctx, remoteID); err != nil {
		if !datadog.IsNotFound(err) {
			return retryable(fmt.Errorf("failed to delete datadog monitor %d of %s: %w", remoteID, ev.Identity, err))
		}
		logging.Debug("Monitor", "Datadog monitor %d of %s was already deleted", remoteID, ev.Identity)
	} else {
		logging.Info("Monitor", "Deleted datadog monitor %d of %s", remoteID, ev.Identity)
	}

	patch.ClearMonitorID()
	return nil
}

// classify turns err into a *FatalError or a *RetryableError carrying the backoff delay.
func (r *Reconciler) classify(ev Event, err error) error {
	var fatal *FatalError
	if errors.As(err, &fatal) {
		logging.Error("Monitor", err, "Reconciliation of %s failed permanently", ev.Identity)
		return err
	}
	if errors.Is(err, ErrInvalidTags) {
		logging.Error("Monitor", err, "Reconciliation of %s failed permanently", ev.Identity)
		return &FatalError{Identity: ev.Identity, Err: err}
	}

	cause := err
	var retry *RetryableError
	if errors.As(err, &retry) {
		cause = retry.Err
	}
	delay := r.backoff.Delay(ev.Attempt)
	logging.Warn("Monitor", "%s of %s failed on attempt %d, retrying in %s: %v", ev.Operation, ev.Identity, ev.Attempt, delay, cause)
	return &RetryableError{Err: cause, Delay: delay}
}
