// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON configuration loading and validation.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration structure for Appyard.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Paths        PathsConfig        `json:"paths"`
	Environments EnvironmentsConfig `json:"environments"`
	Supervisor   SupervisorConfig   `json:"supervisor"`
	Events       EventsConfig       `json:"events"`
	Apps         []AppDefinition    `json:"apps"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	TLSCert string `json:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key"`  // Path to TLS private key file
}

// PathsConfig holds base directories for generated artifacts.
type PathsConfig struct {
	ScriptsDir string `json:"scripts_dir"` // Generated startup scripts (default: startup_scripts)
	LogsDir    string `json:"logs_dir"`    // Per-app log capture files (default: logs)
}

// EnvironmentsConfig holds deployment-wide environment activation settings.
type EnvironmentsConfig struct {
	CondaActivate string `json:"conda_activate"` // Path to conda.sh; required to resolve conda environments
}

// SupervisorConfig tunes the process supervisor.
type SupervisorConfig struct {
	MonitorInterval string `json:"monitor_interval"` // Health-check loop interval (default: 3s)
	StartGrace      string `json:"start_grace"`      // Time a process must survive before Running (default: 2s)
	StopTimeout     string `json:"stop_timeout"`     // Graceful stop wait before SIGKILL (default: 10s)
}

// EventsConfig configures the event bus history.
type EventsConfig struct {
	History HistoryConfig `json:"history"`
}

// HistoryConfig configures event retention.
type HistoryConfig struct {
	MaxEvents int    `json:"max_events"`
	MaxAge    string `json:"max_age"`
}

// EnvType identifies an environment activation backend.
type EnvType string

const (
	EnvNone  EnvType = "none"  // rely on the script's own interpreter
	EnvVenv  EnvType = "venv"  // source a virtualenv activate script
	EnvConda EnvType = "conda" // activate a named conda environment
)

// AppKind determines the default launch incantation for an app.
type AppKind string

const (
	KindDashboard AppKind = "dashboard" // streamlit-style interactive dashboard
	KindAPI       AppKind = "api"       // uvicorn-served API server
	KindWeb       AppKind = "web"       // script that serves HTTP on --port
	KindScript    AppKind = "script"    // plain script, no port binding
)

// BindsPort reports whether the kind's launch command binds the declared port.
func (k AppKind) BindsPort() bool {
	switch k {
	case KindDashboard, KindAPI, KindWeb:
		return true
	}
	return false
}

// EnvSpec names the execution environment an app runs under.
type EnvSpec struct {
	Type EnvType `json:"type"`
	// Name is a filesystem path to the activate script for venv, or the
	// environment name for conda. Unused for none.
	Name string `json:"name"`
}

// AppDefinition is the immutable declarative description of one manageable app.
type AppDefinition struct {
	Name     string            `json:"name"`
	Script   string            `json:"script"`
	Port     int               `json:"port"` // 0 = no port
	Env      EnvSpec           `json:"env"`
	Kind     AppKind           `json:"kind"`
	Category string            `json:"category"` // display grouping only
	Flags    []string          `json:"flags"`    // extra args, order preserved
	EnvVars  map[string]string `json:"env_vars"`
	WorkDir  string            `json:"work_dir"` // default: directory of Script
	URL      string            `json:"url"`      // externally-reachable URL, display only
}

// EffectiveWorkDir returns the declared working directory, falling back to
// the script's containing directory.
func (d AppDefinition) EffectiveWorkDir() string {
	if d.WorkDir != "" {
		return d.WorkDir
	}
	return filepath.Dir(d.Script)
}

// RequiresRestart reports whether switching from d to next changes a field
// that affects the running process. Category and URL are display-only and
// never force a restart.
func (d AppDefinition) RequiresRestart(next AppDefinition) bool {
	if d.Script != next.Script ||
		d.Port != next.Port ||
		d.Env != next.Env ||
		d.Kind != next.Kind ||
		d.EffectiveWorkDir() != next.EffectiveWorkDir() {
		return true
	}
	if len(d.Flags) != len(next.Flags) {
		return true
	}
	for i := range d.Flags {
		if d.Flags[i] != next.Flags[i] {
			return true
		}
	}
	if len(d.EnvVars) != len(next.EnvVars) {
		return true
	}
	for k, v := range d.EnvVars {
		if nv, ok := next.EnvVars[k]; !ok || nv != v {
			return true
		}
	}
	return false
}

// ParseDuration parses a duration string, falling back to def on empty or
// invalid input.
func ParseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
