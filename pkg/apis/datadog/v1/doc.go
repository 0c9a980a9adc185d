// Package v1 contains API Schema definitions for the datadog v1 API group.
//
// # API Group: datadog.mzizzi/v1
//
// ## Monitor
//
// Monitor declares a Datadog monitor. The spec is passed to the Datadog monitor API as-is;
// dogkop only adds the identity tags it uses to find the monitor again later. The id of the
// remote monitor is cached in status.datadog_monitor_id.
//
// Example:
//
//	apiVersion: datadog.mzizzi/v1
//	kind: Monitor
//	metadata:
//	  name: api-latency
//	  namespace: payments
//	spec:
//	  type: metric alert
//	  query: avg(last_5m):avg:trace.http.request.duration{service:api} > 0.5
//	  name: API latency is high
//	  message: "@slack-payments latency above 500ms"
//	  tags: ["team:payments"]
//
// +kubebuilder:object:generate=false
// +groupName=datadog.mzizzi
package v1
