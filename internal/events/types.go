package events

import (
	"time"
)

// EventType represents the type/severity of a Kubernetes Event.
type EventType string

const (
	// EventTypeNormal indicates normal, non-problematic events.
	EventTypeNormal EventType = "Normal"

	// EventTypeWarning indicates events that may require attention.
	EventTypeWarning EventType = "Warning"
)

// EventReason represents the reason code for an event.
type EventReason string

const (
	// ReasonMonitorCreated indicates a Datadog monitor was created for a Monitor.
	ReasonMonitorCreated EventReason = "MonitorCreated"

	// ReasonMonitorUpdated indicates the Datadog monitor was updated from the spec.
	ReasonMonitorUpdated EventReason = "MonitorUpdated"

	// ReasonMonitorDeleted indicates the Datadog monitor was removed.
	ReasonMonitorDeleted EventReason = "MonitorDeleted"

	// ReasonMonitorRediscovered indicates the cached id was replaced by one found by tag search.
	ReasonMonitorRediscovered EventReason = "MonitorRediscovered"

	// ReasonMonitorSyncFailed indicates an attempt failed and will be retried.
	ReasonMonitorSyncFailed EventReason = "MonitorSyncFailed"

	// ReasonMonitorFailed indicates reconciliation stopped and needs manual intervention.
	ReasonMonitorFailed EventReason = "MonitorFailed"
)

// EventData carries the values available to message templates.
type EventData struct {
	Name      string
	Namespace string
	UID       string

	// Operation is the lifecycle operation being reconciled.
	Operation string

	// MonitorID is the Datadog monitor id, if known.
	MonitorID int64

	// PreviousID is the id that was cached before rediscovery.
	PreviousID string

	Attempt int
	RetryIn time.Duration
	Error   string
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonMonitorSyncFailed, ReasonMonitorFailed:
		return EventTypeWarning
	default:
		return EventTypeNormal
	}
}
