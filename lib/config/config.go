// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Caisson components.
//
// Configuration is loaded from a single file specified by:
//   - CAISSON_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// staging, production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for Caisson.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// DNS configures the trust resolver's transport and cache.
	DNS DNSConfig `yaml:"dns"`

	// Keyring configures the durable key repository.
	Keyring KeyringConfig `yaml:"keyring"`

	// Engine configures partition task workers.
	Engine EngineConfig `yaml:"engine"`

	// Trust configures where process-wide trust anchors live.
	Trust TrustConfig `yaml:"trust"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	DNS     *DNSConfig     `yaml:"dns,omitempty"`
	Keyring *KeyringConfig `yaml:"keyring,omitempty"`
	Engine  *EngineConfig  `yaml:"engine,omitempty"`
	Trust   *TrustConfig   `yaml:"trust,omitempty"`
}

// DNSConfig configures the trust resolver's DNS layer.
type DNSConfig struct {
	// Servers are resolver addresses in host:port form. When empty,
	// the servers come from resolv.conf.
	Servers []string `yaml:"servers"`

	// ResolvConf is the resolv.conf path consulted when Servers is
	// empty. Default: /etc/resolv.conf
	ResolvConf string `yaml:"resolv_conf"`

	// Timeout bounds each query exchange, as a Go duration string.
	// Default: 4s
	Timeout string `yaml:"timeout"`

	// CacheEntries is the number of positive lookup results held.
	// Default: 20000
	CacheEntries int `yaml:"cache_entries"`

	// NegativeEntries is the number of no-record outcomes held.
	// Default: 300
	NegativeEntries int `yaml:"negative_entries"`

	// CacheTTL bounds the lifetime of every cache entry, as a Go
	// duration string. Default: 5m
	CacheTTL string `yaml:"cache_ttl"`
}

// KeyringConfig configures the durable key repository.
type KeyringConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory
	// store, which forgets everything at process exit.
	// Default: ${HOME}/.cache/caisson/keyring.db
	Path string `yaml:"path"`

	// PoolSize is the SQLite connection pool size. Zero selects the
	// pool's own default.
	PoolSize int `yaml:"pool_size"`
}

// EngineConfig configures partition task workers.
type EngineConfig struct {
	// IdleThreshold is how long a partition must stay quiet before
	// idle processing fires, as a Go duration string. Default: 30s
	IdleThreshold string `yaml:"idle_threshold"`
}

// TrustConfig names the partition holding process-wide trust anchors.
type TrustConfig struct {
	// Topic is the trust partition's topic. Default: caisson.trust
	Topic string `yaml:"topic"`

	// Index is the trust partition's index within the topic.
	Index int32 `yaml:"index"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		DNS: DNSConfig{
			ResolvConf:      "/etc/resolv.conf",
			Timeout:         "4s",
			CacheEntries:    20000,
			NegativeEntries: 300,
			CacheTTL:        "5m",
		},
		Keyring: KeyringConfig{
			Path: filepath.Join(homeDir, ".cache", "caisson", "keyring.db"),
		},
		Engine: EngineConfig{
			IdleThreshold: "30s",
		},
		Trust: TrustConfig{
			Topic: "caisson.trust",
			Index: 0,
		},
	}
}

// Load loads configuration from the CAISSON_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if CAISSON_CONFIG is not set, this
// fails. This ensures deterministic, auditable configuration with no
// hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("CAISSON_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("CAISSON_CONFIG environment variable not set; " +
			"set it to the path of your caisson.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do
// not override config values - this ensures deterministic, auditable
// configuration. The only expansion performed is ${HOME} and similar path
// variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.DNS != nil {
		if len(overrides.DNS.Servers) > 0 {
			c.DNS.Servers = overrides.DNS.Servers
		}
		if overrides.DNS.ResolvConf != "" {
			c.DNS.ResolvConf = overrides.DNS.ResolvConf
		}
		if overrides.DNS.Timeout != "" {
			c.DNS.Timeout = overrides.DNS.Timeout
		}
		if overrides.DNS.CacheEntries != 0 {
			c.DNS.CacheEntries = overrides.DNS.CacheEntries
		}
		if overrides.DNS.NegativeEntries != 0 {
			c.DNS.NegativeEntries = overrides.DNS.NegativeEntries
		}
		if overrides.DNS.CacheTTL != "" {
			c.DNS.CacheTTL = overrides.DNS.CacheTTL
		}
	}

	if overrides.Keyring != nil {
		if overrides.Keyring.Path != "" {
			c.Keyring.Path = overrides.Keyring.Path
		}
		if overrides.Keyring.PoolSize != 0 {
			c.Keyring.PoolSize = overrides.Keyring.PoolSize
		}
	}

	if overrides.Engine != nil {
		if overrides.Engine.IdleThreshold != "" {
			c.Engine.IdleThreshold = overrides.Engine.IdleThreshold
		}
	}

	if overrides.Trust != nil {
		if overrides.Trust.Topic != "" {
			c.Trust.Topic = overrides.Trust.Topic
		}
		if overrides.Trust.Index != 0 {
			c.Trust.Index = overrides.Trust.Index
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Keyring.Path = expandVars(c.Keyring.Path, vars)
	c.DNS.ResolvConf = expandVars(c.DNS.ResolvConf, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Trust.Topic == "" {
		errs = append(errs, fmt.Errorf("trust.topic is required"))
	}
	if c.Trust.Index < 0 || c.Trust.Index > 65535 {
		errs = append(errs, fmt.Errorf("trust.index must be between 0 and 65535, got %d", c.Trust.Index))
	}

	if _, err := c.QueryTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("dns.timeout: %w", err))
	}
	if _, err := c.CacheTTL(); err != nil {
		errs = append(errs, fmt.Errorf("dns.cache_ttl: %w", err))
	}
	if c.DNS.CacheEntries < 0 {
		errs = append(errs, fmt.Errorf("dns.cache_entries must not be negative, got %d", c.DNS.CacheEntries))
	}
	if c.DNS.NegativeEntries < 0 {
		errs = append(errs, fmt.Errorf("dns.negative_entries must not be negative, got %d", c.DNS.NegativeEntries))
	}

	if c.Keyring.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("keyring.pool_size must not be negative, got %d", c.Keyring.PoolSize))
	}

	if _, err := c.IdleThreshold(); err != nil {
		errs = append(errs, fmt.Errorf("engine.idle_threshold: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// QueryTimeout returns the parsed DNS query timeout. Zero when the
// field is empty, letting the transport apply its own default.
func (c *Config) QueryTimeout() (time.Duration, error) {
	return parseDuration(c.DNS.Timeout)
}

// CacheTTL returns the parsed resolver cache lifetime. Zero when the
// field is empty, letting the cache apply its own default.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration(c.DNS.CacheTTL)
}

// IdleThreshold returns the parsed engine idle threshold. Zero when
// the field is empty, letting the task apply its own default.
func (c *Config) IdleThreshold() (time.Duration, error) {
	return parseDuration(c.Engine.IdleThreshold)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return d, nil
}

// EnsureKeyringDir creates the keyring database's parent directory if
// it doesn't exist. A no-op when the in-memory store is selected.
func (c *Config) EnsureKeyringDir() error {
	if c.Keyring.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.Keyring.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
