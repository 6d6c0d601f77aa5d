// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import "fmt"

// AlreadyRunningError is returned when starting an app that is not startable.
type AlreadyRunningError struct {
	Name  string
	State State
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("app %s is already %s", e.Name, e.State)
}

// NotFoundError is returned when an app name has no definition.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown app %s", e.Name)
}

// SpawnError wraps a failure to launch the child process.
type SpawnError struct {
	Name  string
	Cause error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Name, e.Cause)
}

func (e *SpawnError) Unwrap() error { return e.Cause }

// HealthTimeoutError is returned when a port-binding app never starts
// listening within the start grace interval.
type HealthTimeoutError struct {
	Name  string
	Port  int
	Grace string
}

func (e *HealthTimeoutError) Error() string {
	return fmt.Sprintf("app %s did not listen on port %d within %s", e.Name, e.Port, e.Grace)
}

// NotStoppedError is returned when retiring an app that still has a
// live or startable runtime entry.
type NotStoppedError struct {
	Name  string
	State State
}

func (e *NotStoppedError) Error() string {
	return fmt.Sprintf("app %s is %s, stop it before retiring", e.Name, e.State)
}
