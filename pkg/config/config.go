// Copyright 2026 BWI GmbH and Skipper contributors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Skipper commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level"`
	// Format is the log format (json, console).
	Format string `yaml:"format"`
	// Development enables development mode.
	Development bool `yaml:"development"`
}

// KubernetesConfig contains Kubernetes client configuration.
type KubernetesConfig struct {
	// InCluster enables in-cluster configuration.
	InCluster bool `yaml:"inCluster"`
	// KubeConfig is the path to the kubeconfig file (used when InCluster is false).
	KubeConfig string `yaml:"kubeConfig"`
	// Namespace is the namespace to operate in.
	Namespace string `yaml:"namespace"`
}

// Config is the configuration for the skipper CLI.
type Config struct {
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
	// Kubernetes is the cluster connection configuration.
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	// DeployerPropertiesFile points at a yaml file with the global deployer
	// defaults; empty means built-in defaults.
	DeployerPropertiesFile string `yaml:"deployerPropertiesFile"`
	// StatusPollInterval is the delay between status poll iterations.
	StatusPollInterval Duration `yaml:"statusPollInterval"`
	// StatusPollAttempts bounds wait-for-state loops.
	StatusPollAttempts int `yaml:"statusPollAttempts"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Kubernetes: KubernetesConfig{
			InCluster: false,
			Namespace: "default",
		},
		StatusPollInterval: Duration(5 * time.Second),
		StatusPollAttempts: 60,
	}
}

// LoadConfig loads a Config from a yaml file, applying defaults for fields
// the file does not set.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c Config) Validate() error {
	if c.StatusPollInterval <= 0 {
		return fmt.Errorf("statusPollInterval must be positive, got %s", c.StatusPollInterval)
	}
	if c.StatusPollAttempts <= 0 {
		return fmt.Errorf("statusPollAttempts must be positive, got %d", c.StatusPollAttempts)
	}
	if c.Kubernetes.Namespace == "" {
		return fmt.Errorf("kubernetes.namespace must not be empty")
	}
	return nil
}

// EnvLoader loads configuration values from environment variables.
type EnvLoader struct {
	prefix string
}

// NewEnvLoader creates a new EnvLoader with the given prefix.
// Environment variables will be looked up as PREFIX_KEY (e.g., SKIPPER_LOG_LEVEL).
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: strings.ToUpper(prefix)}
}

// GetString returns the string value for the given key, or the default if not set.
func (l *EnvLoader) GetString(key, defaultValue string) string {
	if value := os.Getenv(l.envKey(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the int value for the given key, or the default if not set or invalid.
func (l *EnvLoader) GetInt(key string, defaultValue int) int {
	if value := os.Getenv(l.envKey(key)); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetBool returns the bool value for the given key, or the default if not set or invalid.
func (l *EnvLoader) GetBool(key string, defaultValue bool) bool {
	if value := os.Getenv(l.envKey(key)); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// GetDuration returns the duration value for the given key, or the default if not set or invalid.
func (l *EnvLoader) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(l.envKey(key)); value != "" {
		if durVal, err := time.ParseDuration(value); err == nil {
			return durVal
		}
	}
	return defaultValue
}

func (l *EnvLoader) envKey(key string) string {
	key = strings.ToUpper(key)
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	if l.prefix != "" {
		return l.prefix + "_" + key
	}
	return key
}

// ApplyEnv overlays SKIPPER_* environment variables on the config.
func (c Config) ApplyEnv() Config {
	loader := NewEnvLoader("SKIPPER")

	c.Logging.Level = loader.GetString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = loader.GetString("LOG_FORMAT", c.Logging.Format)
	c.Logging.Development = loader.GetBool("LOG_DEVELOPMENT", c.Logging.Development)

	c.Kubernetes.InCluster = loader.GetBool("KUBE_IN_CLUSTER", c.Kubernetes.InCluster)
	c.Kubernetes.KubeConfig = loader.GetString("KUBECONFIG", c.Kubernetes.KubeConfig)
	c.Kubernetes.Namespace = loader.GetString("KUBE_NAMESPACE", c.Kubernetes.Namespace)

	c.DeployerPropertiesFile = loader.GetString("DEPLOYER_PROPERTIES_FILE", c.DeployerPropertiesFile)
	c.StatusPollInterval = Duration(loader.GetDuration("STATUS_POLL_INTERVAL", c.StatusPollInterval.Duration()))
	c.StatusPollAttempts = loader.GetInt("STATUS_POLL_ATTEMPTS", c.StatusPollAttempts)

	return c
}
