// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package logsink manages per-app output capture files.
package logsink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sink is an open output destination for one app. The same file handle is
// bound to both stdout and stderr so lines interleave in write order.
type Sink struct {
	name string
	path string
	file *os.File
}

// File returns the underlying file, suitable for exec.Cmd Stdout/Stderr.
func (s *Sink) File() *os.File { return s.file }

// Path returns the file path of the sink.
func (s *Sink) Path() string { return s.path }

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) { return s.file.Write(p) }

// Manager opens and closes per-app log sinks under one directory.
type Manager struct {
	dir string

	mu    sync.Mutex
	sinks map[string]*Sink
}

// NewManager creates a sink manager rooted at dir, creating it if absent.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Manager{dir: dir, sinks: make(map[string]*Sink)}, nil
}

// Path returns the log file path for name whether or not a sink is open.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, sanitize(name)+".log")
}

// Open truncates-or-creates the destination for name and returns the sink.
// Last-run semantics: a restart never appends to the previous run's output.
// An already-open sink for the same name is closed first.
func (m *Manager) Open(name string) (*Sink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.sinks[name]; ok {
		old.file.Close()
		delete(m.sinks, name)
	}

	path := m.Path(name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log sink: %w", err)
	}

	sink := &Sink{name: name, path: path, file: f}
	m.sinks[name] = sink
	return sink, nil
}

// Close closes the sink for name. Closing an unopened name is a no-op.
func (m *Manager) Close(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sink, ok := m.sinks[name]; ok {
		sink.file.Close()
		delete(m.sinks, name)
	}
}

// CloseAll closes every open sink.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, sink := range m.sinks {
		sink.file.Close()
		delete(m.sinks, name)
	}
}

// Tail returns up to n trailing lines of the capture file for name. It
// reads whatever is on disk, whether or not a sink is currently open.
func (m *Manager) Tail(name string, n int) ([]string, error) {
	data, err := os.ReadFile(m.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
