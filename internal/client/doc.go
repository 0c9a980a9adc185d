// Package client provides access to Monitor resources and their Kubernetes Events.
//
// MonitorClient wraps a controller-runtime client with a scheme that knows the
// datadog.mzizzi/v1 types and adds typed helpers for the operations the operator and
// the CLI need:
//
//	c, err := client.NewMonitorClient(nil)
//	if err != nil {
//	    return err
//	}
//	monitors, err := c.ListMonitors(ctx, "default")
//
// Status is written through the status subresource only, so spec changes made by
// users are never overwritten by the operator.
//
// Events created by the operator carry the source component "dogkop"; ListEvents
// returns only those.
package client
