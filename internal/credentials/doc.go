// Package credentials holds the Datadog API and application keys used by the operator.
//
// Keys come from one of two places:
//
//   - a directory with one file per key, typically a mounted Kubernetes Secret:
//     api-key and app-key
//   - the environment: DD_API_KEY or DATADOG_API_KEY, DD_APP_KEY or DATADOG_APP_KEY
//
// A Store is safe for concurrent use and implements datadog.Credentials, so the Datadog
// client picks up new keys on its next request. When keys come from a directory, a
// Watcher reloads them whenever the files change. Kubernetes updates Secret mounts by
// swapping the ..data symlink, which the watcher treats as a change of both files.
package credentials
