package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/giantswarm/dogkop/internal/datadog"
	"github.com/giantswarm/dogkop/pkg/logging"
)

const (
	// StatusKey is the status field holding the cached Datadog id.
	StatusKey = "datadog_monitor_id"

	TagResourceUID  = "kubernetes.resource.uid"
	TagNamespace    = "kubernetes.namespace"
	TagResourceName = "kubernetes.resource.name"
)

// IdentityTags returns the operator-managed tags that identify the Datadog monitor of a
// resource. The result is always the same three tags in the same order.
func IdentityTags(id Identity) []string {
	return []string{
		TagResourceUID + ":" + id.UID,
		TagNamespace + ":" + id.Namespace,
		TagResourceName + ":" + id.Name,
	}
}

// SearchQuery builds a Datadog monitor search matching all tags.
func SearchQuery(tags []string) string {
	terms := make([]string, len(tags))
	for i, t := range tags {
		terms[i] = "tag:" + t
	}
	return strings.Join(terms, " ")
}

// Resolver determines the Datadog id of a resource.
type Resolver struct {
	api    MonitorAPI
	verify bool
}

// NewResolver returns a resolver. With verify set, a cached id is checked with a get
// before it is trusted.
func NewResolver(api MonitorAPI, verify bool) *Resolver {
	return &Resolver{api: api, verify: verify}
}

// Resolve returns the Datadog id of the monitor backing id, or 0 if there is none yet.
// Remote failures are returned as *RetryableError. A corrupted cached id that search
// cannot replace is a *FatalError.
func (r *Resolver) Resolve(ctx context.Context, id Identity, cached CachedID) (int64, error) {
	if cachedID, ok := cached.Value(); ok {
		if !r.verify {
			return cachedID, nil
		}

		_, err := r.api.GetMonitor(ctx, cachedID)
		switch {
		case err == nil:
			return cachedID, nil
		case datadog.IsNotFound(err):
			logging.Info("Monitor", "Cached datadog monitor %d of %s not found, searching by identity tags", cachedID, id)
		default:
			return 0, retryable(fmt.Errorf("failed to verify datadog monitor %d of %s: %w", cachedID, id, err))
		}
	}

	found, err := r.search(ctx, id)
	if err != nil {
		return 0, err
	}

	if found == 0 && cached.IsCorrupted() {
		return 0, &FatalError{
			Identity: id,
			Err: fmt.Errorf("status %s holds unusable value %s and no datadog monitor carries the identity tags",
				StatusKey, cached),
		}
	}
	return found, nil
}

func (r *Resolver) search(ctx context.Context, id Identity) (int64, error) {
	query := SearchQuery(IdentityTags(id))

	monitors, err := r.api.SearchMonitors(ctx, query)
	if err != nil {
		return 0, retryable(fmt.Errorf("failed to search datadog monitors of %s: %w", id, err))
	}
	if len(monitors) == 0 {
		logging.Debug("Monitor", "No datadog monitor found for %s", id)
		return 0, nil
	}

	// Datadog does not guarantee a search order; the lowest id wins.
	sort.SliceStable(monitors, func(i, j int) bool { return monitors[i].ID < monitors[j].ID })

	if len(monitors) > 1 {
		ignored := make([]string, 0, len(monitors)-1)
		for _, m := range monitors[1:] {
			ignored = append(ignored, fmt.Sprintf("%d", m.ID))
		}
		logging.Warn("Monitor", "Found %d datadog monitors for %s, using %d and ignoring %s",
			len(monitors), id, monitors[0].ID, strings.Join(ignored, ", "))
	}

	logging.Debug("Monitor", "Discovered datadog monitor %d for %s", monitors[0].ID, id)
	return monitors[0].ID, nil
}
