package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/dogkop/internal/credentials"
	"github.com/giantswarm/dogkop/pkg/logging"
)

const (
	userConfigDir  = ".config/dogkop"
	configFileName = "config.yaml"

	// SiteEnvVar names the environment variable holding the Datadog site.
	SiteEnvVar = "DD_SITE"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from config.yaml in configPath on top of the
// defaults and applies the environment fallbacks.
func LoadConfig(configPath string) (OperatorConfig, error) {
	return loadConfig(configPath, os.LookupEnv)
}

func loadConfig(configPath string, lookup func(string) (string, bool)) (OperatorConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return OperatorConfig{}, NewConfigurationErrorWithDetails(configFilePath, configFileName, SourceFile, "", ErrorTypeIO,
			"failed to read configuration file", err.Error(), []string{"Check the file permissions of the configuration directory"})
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return OperatorConfig{}, NewConfigurationErrorWithDetails(configFilePath, configFileName, SourceFile, "", ErrorTypeParse,
				"malformed configuration file", err.Error(), []string{"Check the YAML syntax and that durations use units, e.g. 10m"})
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	ApplyEnv(&config, lookup)
	return config, nil
}

// ApplyEnv fills empty credential and site settings from the environment.
// Values from the configuration file take precedence.
func ApplyEnv(config *OperatorConfig, lookup func(string) (string, bool)) {
	apiKey, appKey := credentials.FromEnv(lookup)
	if config.Datadog.APIKey == "" {
		config.Datadog.APIKey = apiKey
	}
	if config.Datadog.AppKey == "" {
		config.Datadog.AppKey = appKey
	}

	if site, ok := lookup(SiteEnvVar); ok && strings.TrimSpace(site) != "" {
		if config.Datadog.Site == "" || config.Datadog.Site == GetDefaultConfig().Datadog.Site {
			config.Datadog.Site = strings.TrimSpace(site)
		}
	}
}
