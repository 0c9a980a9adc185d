package datadog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// monitorNotFound is the error text Datadog returns for unknown monitor ids.
const monitorNotFound = "Monitor not found"

// APIError is a failure reported by the Datadog API.
type APIError struct {
	StatusCode int
	Errors     []string

	// NotFound is set when Datadog reported the "Monitor not found" sentinel.
	NotFound bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("datadog API error (status %d): %s", e.StatusCode, strings.Join(e.Errors, "; "))
}

// IsNotFound reports whether err is a Datadog "monitor not found" failure.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound
}

// translateResponse turns a Datadog response into an error, or nil on success.
// It is the only place that interprets Datadog error payloads.
func translateResponse(statusCode int, body []byte) error {
	var payload struct {
		Errors []string `json:"errors"`
	}
	// Error bodies are not always JSON (proxies, 5xx pages); fall back to the status text.
	_ = json.Unmarshal(body, &payload)

	success := statusCode >= 200 && statusCode < 300
	if success && len(payload.Errors) == 0 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: statusCode,
		Errors:     payload.Errors,
	}
	if len(apiErr.Errors) == 0 {
		apiErr.Errors = []string{http.StatusText(statusCode)}
	}

	// Only the exact sentinel counts. A bare 404 may come from a proxy or a wrong base URL.
	for _, msg := range payload.Errors {
		if msg == monitorNotFound {
			apiErr.NotFound = true
		}
	}
	return apiErr
}
