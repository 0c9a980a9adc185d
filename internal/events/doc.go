// Package events records Kubernetes Events for Monitor resources.
//
// Every reconciliation outcome that matters to a user (a Datadog monitor created,
// updated or deleted, a retry scheduled, a permanent failure) becomes an Event on the
// Monitor so that `kubectl describe monitor` shows what the operator did. Messages are
// rendered from text/template templates with the sprig function library; templates can
// be overridden per reason with SetTemplate.
package events
