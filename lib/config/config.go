// Copyright 2026 The Tessera Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Tessera tooling.
//
// Configuration is loaded from a single file specified by:
//   - TESSERA_CONFIG environment variable, or
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

// Config is the master configuration for Tessera tooling.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Node configures the remote storage node.
	Node NodeConfig `yaml:"node"`

	// Session configures session keys and lifecycle.
	Session SessionConfig `yaml:"session"`

	// Approval configures how sign requests are resolved.
	Approval ApprovalConfig `yaml:"approval"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Node     *NodeConfig     `yaml:"node,omitempty"`
	Session  *SessionConfig  `yaml:"session,omitempty"`
	Approval *ApprovalConfig `yaml:"approval,omitempty"`
}

// NodeConfig configures the remote storage node.
type NodeConfig struct {
	// Host is the node endpoint, e.g. https://node.tessera.example.
	Host string `yaml:"host"`

	// ChainID is the EIP-155 chain wallets are expected on.
	// Default: 1
	ChainID uint64 `yaml:"chain_id"`

	// AutoCreateSpace provisions the owner's space on first sign-in.
	// Default: true (development), false (production)
	AutoCreateSpace bool `yaml:"auto_create_space"`
}

// SessionConfig configures session keys and lifecycle.
type SessionConfig struct {
	// StateDir is where session state is persisted.
	// Default: ${HOME}/.cache/tessera/state
	StateDir string `yaml:"state_dir"`

	// KeyID names the session key to operate with.
	// Default: default
	KeyID string `yaml:"key_id"`

	// TTL bounds the root delegation minted at sign-in.
	// Default: 168h
	TTL string `yaml:"ttl"`

	// DefaultActions are granted to the session key at sign-in.
	DefaultActions []string `yaml:"default_actions"`
}

// ApprovalConfig configures how sign requests are resolved.
type ApprovalConfig struct {
	// Mode selects the strategy.
	// Values: "auto-sign", "auto-reject", "event"
	// Default: auto-reject
	Mode string `yaml:"mode"`

	// Timeout bounds how long an event-mode request may stay pending.
	// Default: 2m
	Timeout string `yaml:"timeout"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultState := filepath.Join(homeDir, ".cache", "tessera", "state")

	return &Config{
		Environment: Development,
		Node: NodeConfig{
			ChainID:         1,
			AutoCreateSpace: true,
		},
		Session: SessionConfig{
			StateDir:       defaultState,
			KeyID:          "default",
			TTL:            "168h",
			DefaultActions: []string{"kv/get", "kv/put", "kv/del", "kv/list"},
		},
		Approval: ApprovalConfig{
			Mode:    "auto-reject",
			Timeout: "2m",
		},
	}
}

// Load loads configuration from TESSERA_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if TESSERA_CONFIG is not set, this fails.
// This ensures deterministic, auditable configuration with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("TESSERA_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TESSERA_CONFIG environment variable not set; " +
			"set it to the path of your tessera.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
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
		// Production defaults: no silent space provisioning.
		if overrides == nil {
			overrides = &ConfigOverrides{
				Node: &NodeConfig{
					AutoCreateSpace: false,
				},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Node != nil {
		if overrides.Node.Host != "" {
			c.Node.Host = overrides.Node.Host
		}
		if overrides.Node.ChainID != 0 {
			c.Node.ChainID = overrides.Node.ChainID
		}
		// AutoCreateSpace is a bool, so we always apply it from overrides.
		c.Node.AutoCreateSpace = overrides.Node.AutoCreateSpace
	}

	if overrides.Session != nil {
		if overrides.Session.StateDir != "" {
			c.Session.StateDir = overrides.Session.StateDir
		}
		if overrides.Session.KeyID != "" {
			c.Session.KeyID = overrides.Session.KeyID
		}
		if overrides.Session.TTL != "" {
			c.Session.TTL = overrides.Session.TTL
		}
		if len(overrides.Session.DefaultActions) > 0 {
			c.Session.DefaultActions = overrides.Session.DefaultActions
		}
	}

	if overrides.Approval != nil {
		if overrides.Approval.Mode != "" {
			c.Approval.Mode = overrides.Approval.Mode
		}
		if overrides.Approval.Timeout != "" {
			c.Approval.Timeout = overrides.Approval.Timeout
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Session.StateDir = expandVars(c.Session.StateDir, vars)
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

	if c.Node.Host == "" {
		errs = append(errs, fmt.Errorf("node.host is required"))
	}
	if c.Node.ChainID == 0 {
		errs = append(errs, fmt.Errorf("node.chain_id is required"))
	}

	if c.Session.KeyID == "" {
		errs = append(errs, fmt.Errorf("session.key_id is required"))
	}
	if _, err := c.SessionTTL(); err != nil {
		errs = append(errs, fmt.Errorf("session.ttl: %w", err))
	}

	modes := []string{"auto-sign", "auto-reject", "event"}
	if !contains(modes, c.Approval.Mode) {
		errs = append(errs, fmt.Errorf("approval.mode must be one of: %v", modes))
	}
	if _, err := c.ApprovalTimeout(); err != nil {
		errs = append(errs, fmt.Errorf("approval.timeout: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SessionTTL parses the configured session TTL.
func (c *Config) SessionTTL() (time.Duration, error) {
	return parseDuration(c.Session.TTL)
}

// ApprovalTimeout parses the configured approval timeout.
func (c *Config) ApprovalTimeout() (time.Duration, error) {
	return parseDuration(c.Approval.Timeout)
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	if c.Session.StateDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.Session.StateDir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Session.StateDir, err)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
