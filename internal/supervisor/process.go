// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// process wraps one spawned launch script and its exit bookkeeping.
type process struct {
	cmd  *exec.Cmd
	pid  int
	done chan struct{}

	mu            sync.Mutex
	exited        bool
	exitCode      int
	stopRequested bool
}

// spawn launches the script under bash in its own process group, with
// stdout and stderr bound to the given sink file.
func spawn(scriptPath string, sink *os.File) (*process, error) {
	cmd := exec.Command("/bin/bash", scriptPath)
	cmd.Stdout = sink
	cmd.Stderr = sink
	cmd.Env = os.Environ()

	// New process group so the whole tree can be signalled together
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", scriptPath, err)
	}

	p := &process{
		cmd:  cmd,
		pid:  cmd.Process.Pid,
		done: make(chan struct{}),
	}

	go p.waitForExit()

	return p, nil
}

func (p *process) waitForExit() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.exitCode = 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				// Shell convention: 128 + signal number
				p.exitCode = 128 + int(ws.Signal())
			} else {
				p.exitCode = exitErr.ExitCode()
			}
		} else {
			p.exitCode = -1
		}
	}
	p.mu.Unlock()

	close(p.done)
}

// alive reports whether the child has not yet been reaped.
func (p *process) alive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// exitStatus returns the recorded exit code once the child has exited.
func (p *process) exitStatus() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// wasStopRequested reports whether stop was called before exit.
func (p *process) wasStopRequested() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopRequested
}

// stop terminates the process group: SIGTERM, then SIGKILL after timeout.
// The returned flag reports whether the forceful escalation was needed.
func (p *process) stop(timeout time.Duration) bool {
	p.mu.Lock()
	p.stopRequested = true
	exited := p.exited
	p.mu.Unlock()

	if exited {
		return false
	}

	// Negative PID signals the whole process group
	syscall.Kill(-p.pid, syscall.SIGTERM)

	select {
	case <-p.done:
		return false
	case <-time.After(timeout):
		syscall.Kill(-p.pid, syscall.SIGKILL)
		<-p.done
		return true
	}
}
