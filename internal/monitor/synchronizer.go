package monitor

import (
	"context"
	"fmt"

	"github.com/mitchellh/copystructure"

	"github.com/giantswarm/dogkop/internal/datadog"
)

// BuildRequest returns an independent copy of spec with tags added to its tag list.
// Tags already present are not duplicated. spec itself is left untouched.
func BuildRequest(spec Spec, tags []string) (Spec, error) {
	req := Spec{}
	if spec != nil {
		copied, err := copystructure.Copy(spec)
		if err != nil {
			return nil, fmt.Errorf("failed to copy monitor spec: %w", err)
		}
		req = copied.(Spec)
	}

	var existing []interface{}
	switch v := req["tags"].(type) {
	case nil:
	case []interface{}:
		existing = v
	case []string:
		for _, t := range v {
			existing = append(existing, t)
		}
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidTags, v)
	}

	seen := make(map[string]bool, len(existing)+len(tags))
	for _, t := range existing {
		if s, ok := t.(string); ok {
			seen[s] = true
		}
	}

	merged := make([]interface{}, 0, len(existing)+len(tags))
	merged = append(merged, existing...)
	for _, t := range tags {
		if !seen[t] {
			merged = append(merged, t)
			seen[t] = true
		}
	}
	req["tags"] = merged

	return req, nil
}

// Synchronizer creates or updates Datadog monitors.
type Synchronizer struct {
	api MonitorAPI
}

// NewSynchronizer returns a synchronizer using api.
func NewSynchronizer(api MonitorAPI) *Synchronizer {
	return &Synchronizer{api: api}
}

// Synchronize pushes spec plus tags to Datadog. With remoteID 0 a monitor is created,
// otherwise remoteID is updated. An update of a monitor that no longer exists returns
// an error matching ErrRemoteMonitorGone; other remote failures are *RetryableError.
func (s *Synchronizer) Synchronize(ctx context.Context, spec Spec, remoteID int64, tags []string) (datadog.Monitor, error) {
	req, err := BuildRequest(spec, tags)
	if err != nil {
		return datadog.Monitor{}, err
	}

	if remoteID == 0 {
		m, err := s.api.CreateMonitor(ctx, req)
		if err != nil {
			return datadog.Monitor{}, retryable(fmt.Errorf("failed to create datadog monitor: %w", err))
		}
		return m, nil
	}

	m, err := s.api.UpdateMonitor(ctx, remoteID, req)
	if err != nil {
		if datadog.IsNotFound(err) {
			return datadog.Monitor{}, fmt.Errorf("update of datadog monitor %d: %w: %w", remoteID, ErrRemoteMonitorGone, err)
		}
		return datadog.Monitor{}, retryable(fmt.Errorf("failed to update datadog monitor %d: %w", remoteID, err))
	}
	return m, nil
}
