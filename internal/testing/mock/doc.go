// Package mock provides an in-memory Datadog monitor API for testing dogkop components.
//
// DatadogAPI implements the monitor operations used by the reconciliation core
// (create, update, get, delete and tag search) against an in-memory store. Every call is
// recorded, and failures can be injected per operation:
//
//	api := mock.NewDatadogAPI()
//	api.Seed(123, map[string]interface{}{"name": "cpu", "tags": []interface{}{"team:sre"}})
//	api.FailNext(mock.MethodCreate, errors.New("rate limited"))
//
// HTTPServer exposes a DatadogAPI over the same REST routes as Datadog so that the real
// HTTP client can be exercised end to end:
//
//	srv := mock.NewHTTPServer(api, "api-key", "app-key")
//	url, err := srv.Start(ctx)
//	defer srv.Stop(ctx)
//
// Clock lets tests control the timestamps written into resource status.
package mock
