package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/giantswarm/dogkop/internal/credentials"
	"github.com/giantswarm/dogkop/internal/monitor"
)

// validator collects field errors of one configuration section.
type validator struct {
	errs     *ConfigurationErrorCollection
	category string
}

func (v validator) add(field, message string, suggestions ...string) {
	v.errs.Add(ConfigurationError{
		Source:      SourceFile,
		FileName:    configFileName,
		Category:    v.category,
		ErrorType:   ErrorTypeValidation,
		Field:       field,
		Message:     message,
		Suggestions: suggestions,
	})
}

// Validate checks the configuration. It returns a *ConfigurationErrorCollection
// holding every problem found, or nil.
func (c OperatorConfig) Validate() error {
	errs := NewConfigurationErrorCollection()

	c.validateDatadog(validator{errs: errs, category: "datadog"})
	c.validateReconciler(validator{errs: errs, category: "reconciler"})
	c.validateServer(validator{errs: errs, category: "server"})
	c.validateLogging(validator{errs: errs, category: "logging"})

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c OperatorConfig) validateDatadog(v validator) {
	d := c.Datadog

	if d.Site != "" && strings.ContainsAny(d.Site, "/:") {
		v.add("site", fmt.Sprintf("must be a host name such as datadoghq.eu, got %q", d.Site))
	}
	if d.BaseURL != "" {
		u, err := url.Parse(d.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			v.add("baseURL", "must be an absolute http or https URL")
		}
	}

	if d.CredentialsDir != "" {
		if _, err := credentials.ValidateDir(d.CredentialsDir); err != nil {
			v.add("credentialsDir", err.Error())
		}
	} else {
		for _, check := range []struct{ field, name, key string }{
			{"apiKey", "API key", d.APIKey},
			{"appKey", "application key", d.AppKey},
		} {
			if err := credentials.ValidateKey(check.name, check.key); err != nil {
				// The error never contains the key
				v.add(check.field, err.Error(),
					"Set datadog.credentialsDir to a directory with api-key and app-key files",
					"Or export DD_API_KEY and DD_APP_KEY")
			}
		}
	}

	if d.Timeout < 0 {
		v.add("timeout", "must not be negative")
	}
	if d.RateLimit < 0 {
		v.add("rateLimit", "must not be negative")
	}
	if d.RateBurst < 0 {
		v.add("rateBurst", "must not be negative")
	}
}

func (c OperatorConfig) validateReconciler(v validator) {
	r := c.Reconciler

	if r.Workers < 1 {
		v.add("workers", "must be at least 1")
	}
	if r.MaxRetries < 0 {
		v.add("maxRetries", "must not be negative", "Use 0 to retry without limit")
	}
	if r.MaxBackoff < 0 || (r.MaxBackoff > 0 && r.MaxBackoff < time.Second) {
		v.add("maxBackoff", "must be 0 or at least 1s",
			"Retry delays are whole seconds; a smaller cap retries without any delay",
			"Use 0 for the default of "+monitor.DefaultMaxBackoff.String())
	}
	if r.ReconcileTimeout <= 0 {
		v.add("reconcileTimeout", "must be positive")
	}
	if r.EventBufferSize < 1 {
		v.add("eventBufferSize", "must be at least 1")
	}
}

func (c OperatorConfig) validateServer(v validator) {
	if !c.Server.Enabled {
		return
	}
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		v.add("address", fmt.Sprintf("must be host:port, got %q", c.Server.Address))
	}
}

func (c OperatorConfig) validateLogging(v validator) {
	switch c.Logging.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		v.add("level", fmt.Sprintf("must be one of: %s",
			strings.Join([]string{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError}, ", ")))
	}
}
