// Package datadog is a small client for the Datadog monitor API.
//
// Only the calls the operator needs are implemented: create, update, get, delete and
// tag search of monitors (https://docs.datadoghq.com/api/latest/monitors/). Monitor
// definitions are handled as free-form JSON documents so that the operator never has to
// understand monitor schemas.
//
// The Datadog API reports failures as a list of error strings and has no stable error
// codes. All interpretation of those strings lives in translateResponse; callers use
// IsNotFound and the APIError type instead of matching text themselves.
package datadog
