package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/giantswarm/dogkop/internal/datadog"
)

const (
	// DefaultAPIKeyFile is the file holding the Datadog API key.
	DefaultAPIKeyFile = "api-key"

	// DefaultAppKeyFile is the file holding the Datadog application key.
	DefaultAppKeyFile = "app-key"
)

// Environment variables consulted for keys, in order of preference.
var (
	APIKeyEnvVars = []string{"DD_API_KEY", "DATADOG_API_KEY"}
	AppKeyEnvVars = []string{"DD_APP_KEY", "DATADOG_APP_KEY"}
)

// keyPattern rejects whitespace and control characters, which would break HTTP headers.
var keyPattern = regexp.MustCompile(`^[\x21-\x7e]+$`)

// MaxKeyLength bounds key size.
const MaxKeyLength = 256

// Store holds the current pair of keys.
type Store struct {
	mu     sync.RWMutex
	apiKey string
	appKey string
}

var _ datadog.Credentials = (*Store)(nil)

// NewStore returns a store holding the given keys.
func NewStore(apiKey, appKey string) (*Store, error) {
	s := &Store{}
	if err := s.Set(apiKey, appKey); err != nil {
		return nil, err
	}
	return s, nil
}

// Keys returns the current API and application key.
func (s *Store) Keys() (apiKey, appKey string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey, s.appKey
}

// Set replaces both keys after validating them. On error the old keys stay in place.
func (s *Store) Set(apiKey, appKey string) error {
	if err := ValidateKey("API key", apiKey); err != nil {
		return err
	}
	if err := ValidateKey("application key", appKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiKey = apiKey
	s.appKey = appKey
	return nil
}

// ValidateKey checks that a key is present and safe to send as a header value.
func ValidateKey(name, key string) error {
	if key == "" {
		return fmt.Errorf("datadog %s is empty", name)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("datadog %s exceeds maximum length of %d characters", name, MaxKeyLength)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("datadog %s contains whitespace or control characters", name)
	}
	return nil
}

// FromEnv reads the keys from the environment through lookup, usually os.LookupEnv.
// Missing keys are returned empty.
func FromEnv(lookup func(string) (string, bool)) (apiKey, appKey string) {
	return firstSet(lookup, APIKeyEnvVars), firstSet(lookup, AppKeyEnvVars)
}

func firstSet(lookup func(string) (string, bool), names []string) string {
	for _, name := range names {
		if v, ok := lookup(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// LoadDir reads both keys from dir. Surrounding whitespace, such as a trailing newline,
// is trimmed.
func LoadDir(dir string) (apiKey, appKey string, err error) {
	apiKey, err = readKeyFile(filepath.Join(dir, DefaultAPIKeyFile))
	if err != nil {
		return "", "", err
	}
	appKey, err = readKeyFile(filepath.Join(dir, DefaultAppKeyFile))
	if err != nil {
		return "", "", err
	}
	return apiKey, appKey, nil
}

func readKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read key file %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ValidateDir cleans a key directory path.
//
// The path must be absolute and must not contain traversal sequences.
func ValidateDir(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("credentials directory cannot be empty")
	}

	cleaned := filepath.Clean(dir)
	if !filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("credentials directory must be an absolute path: %s", dir)
	}
	if strings.Contains(dir, "..") {
		return "", fmt.Errorf("credentials directory cannot contain path traversal sequences: %s", dir)
	}
	return cleaned, nil
}
