// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "time"

// App represents the status snapshot of one supervised app.
type App struct {
	// Name is the unique identifier for the app.
	Name string `json:"name"`

	// Kind is the app kind ("dashboard", "api", "web", "script").
	Kind string `json:"kind"`

	// Category is the display grouping from the configuration.
	Category string `json:"category"`

	// URL is an optional externally reachable address for the app.
	URL string `json:"url,omitempty"`

	// State is the current lifecycle state.
	// See AppState* constants for possible values.
	State string `json:"state"`

	// PID is the process ID when the app is running.
	PID int `json:"pid,omitempty"`

	// Port is the reserved port for port-binding kinds.
	Port int `json:"port,omitempty"`

	// MemoryPercent is the process's share of system memory while running.
	MemoryPercent float32 `json:"memory_percent,omitempty"`

	// ExitCode is the exit code from the last time the app stopped.
	ExitCode int `json:"exit_code"`

	// StartedAt is when the app was last started.
	StartedAt time.Time `json:"started_at"`

	// StoppedAt is when the app was last stopped.
	StoppedAt time.Time `json:"stopped_at"`

	// Forced is true if the last stop required SIGKILL escalation.
	Forced bool `json:"forced,omitempty"`

	// LastError is the most recent error recorded for this app.
	LastError string `json:"last_error,omitempty"`

	// Crash contains the crash analysis when State is "crashed" or "failed".
	Crash *Crash `json:"crash,omitempty"`

	// LogPath is the path to the app's capture file on the server.
	LogPath string `json:"log_path,omitempty"`
}

// Crash is the server's analysis of why an app died.
type Crash struct {
	// Reason categorizes the crash (e.g., "traceback", "oom", "signal").
	Reason string `json:"reason"`

	// Details carries the matched log line or exception message.
	Details string `json:"details,omitempty"`

	// Traceback holds the captured traceback block, if any.
	Traceback []string `json:"traceback,omitempty"`

	// ExitCode is the process exit code.
	ExitCode int `json:"exit_code"`
}

// AppState constants define the possible states of an app.
const (
	AppStateStopped  = "stopped"
	AppStateStarting = "starting"
	AppStateRunning  = "running"
	AppStateStopping = "stopping"
	AppStateCrashed  = "crashed"
	AppStateFailed   = "failed"
	AppStateRetired  = "retired"
)

// Event represents an entry from the event log.
type Event struct {
	ID        string                 `json:"id"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	App       string                 `json:"app"`
	Payload   map[string]interface{} `json:"payload"`
}

// ReconcileOutcome reports what the server did for one app during
// reconciliation.
type ReconcileOutcome struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

// ReconcileReport is the full result of one reconciliation pass.
type ReconcileReport struct {
	Outcomes []ReconcileOutcome `json:"outcomes"`
}

// AppLogs is the response from the logs endpoint.
type AppLogs struct {
	App   string   `json:"app"`
	Lines []string `json:"lines"`
}
