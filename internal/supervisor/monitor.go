// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"log"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/appyard/appyard/internal/events"
)

const monitorConcurrency = 4

// StartMonitor begins the periodic liveness loop. Each tick checks every
// Running app in a bounded set of goroutines; apps mid-transition are
// skipped rather than waited on.
func (s *Supervisor) StartMonitor() {
	s.monitorWG.Add(1)
	go func() {
		defer s.monitorWG.Done()
		ticker := time.NewTicker(s.monitorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopMonitor:
				return
			case <-ticker.C:
				s.checkAll()
			}
		}
	}()
}

func (s *Supervisor) checkAll() {
	s.mu.RLock()
	entries := make([]*appEntry, 0, len(s.apps))
	for _, entry := range s.apps {
		entries = append(entries, entry)
	}
	s.mu.RUnlock()

	sem := make(chan struct{}, monitorConcurrency)
	done := make(chan struct{})
	pending := 0

	for _, entry := range entries {
		pending++
		sem <- struct{}{}
		go func(entry *appEntry) {
			defer func() {
				<-sem
				done <- struct{}{}
			}()
			s.checkOne(entry)
		}(entry)
	}

	for i := 0; i < pending; i++ {
		<-done
	}
}

// checkOne transitions a dead Running app to Crashed. TryLock keeps the
// monitor from stalling behind an in-flight start or stop.
func (s *Supervisor) checkOne(entry *appEntry) {
	if !entry.mu.TryLock() {
		return
	}
	defer entry.mu.Unlock()

	if entry.state != StateRunning || entry.proc == nil {
		return
	}

	if entry.proc.alive() {
		return
	}

	// The waiter says the child is gone; corroborate against the process
	// table in case the PID was reused by something else.
	if proc, err := ps.FindProcess(entry.pid); err == nil && proc != nil {
		// A survivor with our PID means our direct child was reaped but
		// the group may live on. Treat the app as dead regardless: the
		// launch script is what we supervise.
		log.Printf("Monitor: pid %d still in process table after exit of %s", entry.pid, entry.def.Name)
	}

	// An operator-requested stop is finishing elsewhere; leave it alone
	if entry.proc.wasStopRequested() {
		return
	}

	def := entry.def
	code := entry.proc.exitStatus()

	tail, _ := s.sinks.Tail(def.Name, crashTailLines)
	crash := s.analyzer.Analyze(tail, code)

	s.sinks.Close(def.Name)
	if def.Kind.BindsPort() {
		s.registry.Release(def.Name)
	}

	entry.proc = nil
	entry.pid = 0
	entry.exitCode = code
	entry.stoppedAt = time.Now()
	entry.crash = crash
	entry.state = StateCrashed

	log.Printf("Monitor: %s crashed (exit %d): %s", def.Name, code, crash.Summary())

	s.publish(events.EventAppCrashed, def.Name, map[string]interface{}{
		"exit_code": code,
		"reason":    crash.Reason.String(),
		"details":   crash.Details,
	})
}
