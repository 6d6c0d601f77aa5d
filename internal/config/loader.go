// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config with default values applied and validates
// the app definitions.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfig searches for a config file in the current directory.
// It looks for appyard.hjson first, then appyard.json.
func (l *Loader) FindConfig() (string, error) {
	candidates := []string{
		"appyard.hjson",
		"appyard.json",
	}

	for _, name := range candidates {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for appyard.hjson, appyard.json)")
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 4400
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	// Artifact directories
	if cfg.Paths.ScriptsDir == "" {
		cfg.Paths.ScriptsDir = "startup_scripts"
	}
	if cfg.Paths.LogsDir == "" {
		cfg.Paths.LogsDir = "logs"
	}

	// Supervisor defaults
	if cfg.Supervisor.MonitorInterval == "" {
		cfg.Supervisor.MonitorInterval = "3s"
	}
	if cfg.Supervisor.StartGrace == "" {
		cfg.Supervisor.StartGrace = "2s"
	}
	if cfg.Supervisor.StopTimeout == "" {
		cfg.Supervisor.StopTimeout = "10s"
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	// App defaults
	for i := range cfg.Apps {
		if cfg.Apps[i].Kind == "" {
			cfg.Apps[i].Kind = KindDashboard
		}
		if cfg.Apps[i].Env.Type == "" {
			cfg.Apps[i].Env.Type = EnvNone
		}
		if cfg.Apps[i].Category == "" {
			cfg.Apps[i].Category = "Uncategorized"
		}
	}
}
