// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor runs and monitors the managed app processes.
package supervisor

import (
	"context"
	"time"

	"github.com/appyard/appyard/internal/config"
)

// State represents the lifecycle state of a managed app.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
	StateFailed
	StateRetired
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	case StateFailed:
		return "failed"
	case StateRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// startable reports whether Start is permitted from this state.
func (s State) startable() bool {
	switch s {
	case StateStopped, StateCrashed, StateFailed, StateRetired:
		return true
	}
	return false
}

// Snapshot is a point-in-time copy of one app's runtime status.
type Snapshot struct {
	Name          string         `json:"name"`
	Kind          config.AppKind `json:"kind"`
	Category      string         `json:"category"`
	URL           string         `json:"url,omitempty"`
	State         State          `json:"state"`
	PID           int            `json:"pid,omitempty"`
	Port          int            `json:"port,omitempty"`
	MemoryPercent float32        `json:"memory_percent,omitempty"`
	ExitCode      int            `json:"exit_code"`
	StartedAt     time.Time      `json:"started_at,omitzero"`
	StoppedAt     time.Time      `json:"stopped_at,omitzero"`
	Forced        bool           `json:"forced,omitempty"`
	LastError     string         `json:"last_error,omitempty"`
	Crash         *CrashResult   `json:"crash,omitempty"`
	LogPath       string         `json:"log_path,omitempty"`
	Env           config.EnvSpec `json:"env"`
}

// Manager is the control surface exposed to the API and the reconciler.
type Manager interface {
	Define(def config.AppDefinition)
	Definition(name string) (config.AppDefinition, bool)
	Definitions() []config.AppDefinition
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Retire(name string) error
	Status(name string) (Snapshot, error)
	List() []Snapshot
	Logs(name string, lines int) ([]string, error)
	StopAll(ctx context.Context) error
	Close() error
}

// CrashReason categorizes why an app died.
type CrashReason int

const (
	CrashReasonNone CrashReason = iota
	CrashReasonTraceback
	CrashReasonFatal
	CrashReasonOOM
	CrashReasonAddrInUse
	CrashReasonImport
	CrashReasonSignal
	CrashReasonError
	CrashReasonUnknown
)

func (r CrashReason) String() string {
	switch r {
	case CrashReasonNone:
		return "none"
	case CrashReasonTraceback:
		return "traceback"
	case CrashReasonFatal:
		return "fatal"
	case CrashReasonOOM:
		return "oom"
	case CrashReasonAddrInUse:
		return "addr-in-use"
	case CrashReasonImport:
		return "import-error"
	case CrashReasonSignal:
		return "signal"
	case CrashReasonError:
		return "error"
	case CrashReasonUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler to output the string representation.
func (r CrashReason) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// CrashResult contains the analysis of an app death.
type CrashResult struct {
	Reason    CrashReason `json:"reason"`
	Details   string      `json:"details,omitempty"`
	Traceback []string    `json:"traceback,omitempty"`
	ExitCode  int         `json:"exit_code"`
}

// Summary returns a human-readable summary of the crash.
func (r *CrashResult) Summary() string {
	summary := r.Reason.String()
	if r.Details != "" {
		summary += ": " + r.Details
	}
	return summary
}
