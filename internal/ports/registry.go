// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package ports tracks port ownership across managed apps.
package ports

import (
	"fmt"
	"sync"
)

// ConflictError is returned when a port is already reserved by another app.
type ConflictError struct {
	Port  int
	Owner string // reserving app name, or "unknown" for an unrecognized OS process
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("port %d in use by %s", e.Port, e.Owner)
}

// Registry is the authoritative record of which app owns which port.
// It covers ports assigned by this supervisor; OS-level corroboration is
// a separate probe (see ListenerPID).
type Registry struct {
	mu     sync.RWMutex
	byPort map[int]string
	byName map[string]int
}

// NewRegistry creates an empty port registry.
func NewRegistry() *Registry {
	return &Registry{
		byPort: make(map[int]string),
		byName: make(map[string]int),
	}
}

// Reserve claims port for name. A port of 0 is never reserved and never
// conflicts. Re-reserving a port already held by the same name is a no-op.
func (r *Registry) Reserve(name string, port int) error {
	if port == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byPort[port]; ok {
		if owner == name {
			return nil
		}
		return &ConflictError{Port: port, Owner: owner}
	}

	// An app holds at most one port; a changed definition releases the
	// old reservation implicitly.
	if old, ok := r.byName[name]; ok {
		delete(r.byPort, old)
	}

	r.byPort[port] = name
	r.byName[name] = port
	return nil
}

// Release frees whatever port name holds. Releasing an unreserved name is
// a no-op.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if port, ok := r.byName[name]; ok {
		delete(r.byPort, port)
		delete(r.byName, name)
	}
}

// Owner returns the app holding port, if any.
func (r *Registry) Owner(port int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.byPort[port]
	return owner, ok
}

// PortOf returns the port reserved by name, if any.
func (r *Registry) PortOf(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	port, ok := r.byName[name]
	return port, ok
}
