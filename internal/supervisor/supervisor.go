// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	gops "github.com/shirou/gopsutil/v3/process"

	"github.com/appyard/appyard/internal/config"
	"github.com/appyard/appyard/internal/envs"
	"github.com/appyard/appyard/internal/events"
	"github.com/appyard/appyard/internal/launcher"
	"github.com/appyard/appyard/internal/logsink"
	"github.com/appyard/appyard/internal/ports"
)

const (
	defaultMonitorInterval = 3 * time.Second
	defaultStartGrace      = 2 * time.Second
	defaultStopTimeout     = 10 * time.Second

	healthPollInterval = 50 * time.Millisecond
	crashTailLines     = 50
)

// appEntry is the runtime record for one defined app. Its mutex serializes
// lifecycle transitions for that app; the Supervisor table lock is only
// held for lookups so one slow stop never blocks unrelated operations.
type appEntry struct {
	mu sync.Mutex

	def       config.AppDefinition
	state     State
	proc      *process
	pid       int
	exitCode  int
	startedAt time.Time
	stoppedAt time.Time
	forced    bool
	lastErr   string
	crash     *CrashResult
}

// Supervisor owns app processes end to end: environment resolution, launch
// script generation, port reservation, log capture, spawn, health
// confirmation, and termination.
type Supervisor struct {
	monitorInterval time.Duration
	startGrace      time.Duration
	stopTimeout     time.Duration

	resolver *envs.Resolver
	builder  *launcher.Builder
	registry *ports.Registry
	sinks    *logsink.Manager
	bus      events.EventBus
	analyzer *CrashAnalyzer

	mu   sync.RWMutex
	apps map[string]*appEntry

	stopMonitor chan struct{}
	monitorWG   sync.WaitGroup
	closeOnce   sync.Once
}

// New creates a Supervisor. Call StartMonitor to begin liveness checks.
func New(cfg config.SupervisorConfig, resolver *envs.Resolver, builder *launcher.Builder, registry *ports.Registry, sinks *logsink.Manager, bus events.EventBus) *Supervisor {
	return &Supervisor{
		monitorInterval: config.ParseDuration(cfg.MonitorInterval, defaultMonitorInterval),
		startGrace:      config.ParseDuration(cfg.StartGrace, defaultStartGrace),
		stopTimeout:     config.ParseDuration(cfg.StopTimeout, defaultStopTimeout),
		resolver:        resolver,
		builder:         builder,
		registry:        registry,
		sinks:           sinks,
		bus:             bus,
		analyzer:        NewCrashAnalyzer(),
		apps:            make(map[string]*appEntry),
		stopMonitor:     make(chan struct{}),
	}
}

// Define registers or replaces the definition for an app. The runtime
// state of an existing entry is preserved; a retired entry becomes
// startable again through its new definition.
func (s *Supervisor) Define(def config.AppDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.apps[def.Name]; ok {
		entry.mu.Lock()
		entry.def = def
		entry.mu.Unlock()
		return
	}
	s.apps[def.Name] = &appEntry{def: def, state: StateStopped}
}

// Definition returns the current definition for name.
func (s *Supervisor) Definition(name string) (config.AppDefinition, bool) {
	s.mu.RLock()
	entry, ok := s.apps[name]
	s.mu.RUnlock()
	if !ok {
		return config.AppDefinition{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.def, true
}

// Definitions returns the definitions of all non-retired apps, sorted by name.
func (s *Supervisor) Definitions() []config.AppDefinition {
	s.mu.RLock()
	entries := make([]*appEntry, 0, len(s.apps))
	for _, entry := range s.apps {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	defs := make([]config.AppDefinition, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if entry.state != StateRetired {
			defs = append(defs, entry.def)
		}
		entry.mu.Unlock()
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func (s *Supervisor) entry(name string) (*appEntry, error) {
	s.mu.RLock()
	entry, ok := s.apps[name]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return entry, nil
}

// Start brings the named app up: reserve the port, resolve the environment,
// regenerate the launch script, open the log sink, spawn, and confirm
// health within the start grace interval.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	entry, err := s.entry(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.startLocked(ctx, entry)
}

func (s *Supervisor) startLocked(ctx context.Context, entry *appEntry) error {
	if !entry.state.startable() {
		return &AlreadyRunningError{Name: entry.def.Name, State: entry.state}
	}

	def := entry.def
	entry.forced = false
	entry.crash = nil
	entry.lastErr = ""

	// Port reservation, then an OS-level probe for listeners we don't own
	if def.Kind.BindsPort() {
		if err := s.registry.Reserve(def.Name, def.Port); err != nil {
			return s.failLocked(entry, err)
		}
		if pid, listening, _ := ports.ListenerPID(def.Port); listening {
			s.registry.Release(def.Name)
			err := &ports.ConflictError{Port: def.Port, Owner: "unknown"}
			entry.lastErr = fmt.Sprintf("port %d already bound by pid %d", def.Port, pid)
			entry.state = StateFailed
			s.publish(events.EventAppFailed, def.Name, map[string]interface{}{"error": entry.lastErr})
			return err
		}
	}

	release := func() {
		if def.Kind.BindsPort() {
			s.registry.Release(def.Name)
		}
	}

	steps, err := s.resolver.Resolve(def.Env)
	if err != nil {
		release()
		return s.failLocked(entry, err)
	}

	scriptPath, err := s.builder.Build(def, steps)
	if err != nil {
		release()
		return s.failLocked(entry, err)
	}

	sink, err := s.sinks.Open(def.Name)
	if err != nil {
		release()
		return s.failLocked(entry, err)
	}

	entry.state = StateStarting
	proc, err := spawn(scriptPath, sink.File())
	if err != nil {
		s.sinks.Close(def.Name)
		release()
		return s.failLocked(entry, &SpawnError{Name: def.Name, Cause: err})
	}

	entry.proc = proc
	entry.pid = proc.pid
	entry.startedAt = time.Now()
	entry.exitCode = 0

	log.Printf("Supervisor: started %s (pid %d)", def.Name, proc.pid)

	// Health confirmation within the grace interval
	deadline := time.Now().Add(s.startGrace)
	for {
		if !proc.alive() {
			code := proc.exitStatus()
			tail, _ := s.sinks.Tail(def.Name, crashTailLines)
			crash := s.analyzer.Analyze(tail, code)
			s.sinks.Close(def.Name)
			release()
			entry.proc = nil
			entry.pid = 0
			entry.exitCode = code
			entry.stoppedAt = time.Now()
			entry.crash = crash
			err := &SpawnError{Name: def.Name, Cause: fmt.Errorf("exited during startup: %s", crash.Summary())}
			return s.failLocked(entry, err)
		}

		if !def.Kind.BindsPort() {
			if time.Now().After(deadline) {
				break
			}
		} else if ports.IsListening(def.Port) {
			break
		} else if time.Now().After(deadline) {
			// Never confirmed: tear the process down before failing
			proc.stop(s.stopTimeout)
			s.sinks.Close(def.Name)
			release()
			entry.proc = nil
			entry.pid = 0
			entry.stoppedAt = time.Now()
			return s.failLocked(entry, &HealthTimeoutError{
				Name:  def.Name,
				Port:  def.Port,
				Grace: s.startGrace.String(),
			})
		}

		select {
		case <-ctx.Done():
			proc.stop(s.stopTimeout)
			s.sinks.Close(def.Name)
			release()
			entry.proc = nil
			entry.pid = 0
			entry.stoppedAt = time.Now()
			return s.failLocked(entry, ctx.Err())
		case <-time.After(healthPollInterval):
		}
	}

	entry.state = StateRunning
	s.publish(events.EventAppStarted, def.Name, map[string]interface{}{
		"pid":  proc.pid,
		"port": def.Port,
	})
	return nil
}

// failLocked records err on the entry, moves it to Failed, and emits the
// failure event. It returns err for convenience.
func (s *Supervisor) failLocked(entry *appEntry, err error) error {
	entry.state = StateFailed
	entry.lastErr = err.Error()
	s.publish(events.EventAppFailed, entry.def.Name, map[string]interface{}{"error": err.Error()})
	return err
}

// Stop brings the named app down gracefully, escalating to SIGKILL after
// the stop timeout. Stopping a Crashed or Failed app normalizes its state
// to Stopped; stopping an app that is already down succeeds unchanged.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	entry, err := s.entry(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.stopLocked(ctx, entry)
}

func (s *Supervisor) stopLocked(ctx context.Context, entry *appEntry) error {
	switch entry.state {
	case StateCrashed, StateFailed:
		// Resources were already released when the state was recorded
		entry.state = StateStopped
		return nil
	case StateStopped, StateRetired:
		// Already down; nothing to release and no state change
		return nil
	}

	def := entry.def
	proc := entry.proc
	entry.state = StateStopping

	forced := false
	if proc != nil {
		forced = proc.stop(s.stopTimeout)
		entry.exitCode = proc.exitStatus()
	}

	s.sinks.Close(def.Name)
	if def.Kind.BindsPort() {
		s.registry.Release(def.Name)
	}

	entry.proc = nil
	entry.pid = 0
	entry.stoppedAt = time.Now()
	entry.forced = forced
	entry.state = StateStopped

	if forced {
		log.Printf("Supervisor: %s required SIGKILL after %s", def.Name, s.stopTimeout)
	} else {
		log.Printf("Supervisor: stopped %s", def.Name)
	}

	s.publish(events.EventAppStopped, def.Name, map[string]interface{}{"forced": forced})
	return nil
}

// Restart stops the app if it is active, then starts it with its current
// definition. The entry lock is held across both halves so no other
// operation can slip in between.
func (s *Supervisor) Restart(ctx context.Context, name string) error {
	entry, err := s.entry(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.state.startable() {
		if err := s.stopLocked(ctx, entry); err != nil {
			return err
		}
	}

	if err := s.startLocked(ctx, entry); err != nil {
		return err
	}

	s.publish(events.EventAppRestarted, name, nil)
	return nil
}

// Retire removes the app from active management. Only a stopped entry may
// be retired; retiring an already retired entry is a no-op.
func (s *Supervisor) Retire(name string) error {
	entry, err := s.entry(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch entry.state {
	case StateRetired:
		return nil
	case StateStopped:
		entry.state = StateRetired
		s.publish(events.EventAppRetired, name, nil)
		return nil
	default:
		return &NotStoppedError{Name: name, State: entry.state}
	}
}

// Status returns a snapshot of the named app. It never blocks on another
// app's transition.
func (s *Supervisor) Status(name string) (Snapshot, error) {
	entry, err := s.entry(name)
	if err != nil {
		return Snapshot{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return s.snapshotLocked(entry), nil
}

// List returns snapshots of all apps, sorted by name.
func (s *Supervisor) List() []Snapshot {
	s.mu.RLock()
	entries := make([]*appEntry, 0, len(s.apps))
	for _, entry := range s.apps {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		snaps = append(snaps, s.snapshotLocked(entry))
		entry.mu.Unlock()
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Name < snaps[j].Name })
	return snaps
}

func (s *Supervisor) snapshotLocked(entry *appEntry) Snapshot {
	snap := Snapshot{
		Name:      entry.def.Name,
		Kind:      entry.def.Kind,
		Category:  entry.def.Category,
		URL:       entry.def.URL,
		State:     entry.state,
		PID:       entry.pid,
		ExitCode:  entry.exitCode,
		StartedAt: entry.startedAt,
		StoppedAt: entry.stoppedAt,
		Forced:    entry.forced,
		LastError: entry.lastErr,
		LogPath:   s.sinks.Path(entry.def.Name),
		Env:       entry.def.Env,
	}
	if entry.def.Kind.BindsPort() {
		snap.Port = entry.def.Port
	}
	// Resource usage is best effort; a failed probe leaves the field zero
	if entry.pid > 0 {
		if proc, err := gops.NewProcess(int32(entry.pid)); err == nil {
			if mem, err := proc.MemoryPercent(); err == nil {
				snap.MemoryPercent = mem
			}
		}
	}
	if entry.crash != nil {
		crash := *entry.crash
		snap.Crash = &crash
	}
	return snap
}

// Logs returns the last n lines of the app's capture file.
func (s *Supervisor) Logs(name string, lines int) ([]string, error) {
	if _, err := s.entry(name); err != nil {
		return nil, err
	}
	return s.sinks.Tail(name, lines)
}

// StopAll stops every app. Entries that are already down are no-ops.
func (s *Supervisor) StopAll(ctx context.Context) error {
	var firstErr error
	for _, snap := range s.List() {
		if err := s.Stop(ctx, snap.Name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close stops the monitor loop and all apps.
func (s *Supervisor) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopMonitor)
		s.monitorWG.Wait()
		err = s.StopAll(context.Background())
		s.sinks.CloseAll()
	})
	return err
}

func (s *Supervisor) publish(eventType, app string, payload map[string]interface{}) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(context.Background(), events.Event{
		Type:    eventType,
		App:     app,
		Payload: payload,
	})
}
