package reconciler

import (
	"regexp"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"
)

// maxStatusErrorLength bounds the error text written into resource status.
const maxStatusErrorLength = 1024

// StatusSyncRetryBackoff is used when a status write hits a conflict.
var StatusSyncRetryBackoff = wait.Backoff{
	Steps:    5,
	Duration: 100 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}

var (
	credentialPattern = regexp.MustCompile(`(?i)\b(dd-api-key|dd-application-key|api[_-]?key|app(?:lication)?[_-]?key|password|passwd|secret|token)(\s*[=:]\s*)("[^"]*"|\S+)`)
	bearerPattern     = regexp.MustCompile(`(?i)\bbearer\s+\S+`)
	urlQueryPattern   = regexp.MustCompile(`(https?://[^\s?"]+)\?[^\s"]*`)
	longTokenPattern  = regexp.MustCompile(`[A-Za-z0-9+/_\-]{40,}={0,2}`)
	hexKeyPattern     = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	absPathPattern    = regexp.MustCompile(`(^|[\s"'=(])(/[A-Za-z0-9._\-]+){2,}/?`)
)

// SanitizeErrorMessage removes credentials, query strings and local file paths from
// an error message before it is stored in status or an Event, and truncates it.
func SanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	msg = credentialPattern.ReplaceAllString(msg, "${1}${2}[REDACTED]")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer [REDACTED]")
	msg = urlQueryPattern.ReplaceAllString(msg, "${1}?[REDACTED]")
	msg = longTokenPattern.ReplaceAllString(msg, "[REDACTED]")
	msg = hexKeyPattern.ReplaceAllString(msg, "[REDACTED]")
	msg = absPathPattern.ReplaceAllStringFunc(msg, func(m string) string {
		trimmed := strings.TrimLeft(m, " \t\n\"'=(")
		// Datadog API routes are useful context
		if strings.HasPrefix(trimmed, "/api/") {
			return m
		}
		return m[:len(m)-len(trimmed)] + "[PATH]"
	})

	if len(msg) > maxStatusErrorLength {
		msg = msg[:maxStatusErrorLength] + "...(truncated)"
	}
	return msg
}

// IsConflictError reports whether err is an optimistic concurrency conflict.
func IsConflictError(err error) bool {
	return apierrors.IsConflict(err)
}
