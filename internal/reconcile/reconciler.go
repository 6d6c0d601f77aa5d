// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package reconcile diffs the declared app set against the supervised set
// and converges the runtime to match.
package reconcile

import (
	"context"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/appyard/appyard/internal/config"
	"github.com/appyard/appyard/internal/events"
	"github.com/appyard/appyard/internal/supervisor"
)

// Action describes what the reconciler did for one app.
type Action string

const (
	ActionStarted   Action = "started"
	ActionRestarted Action = "restarted"
	ActionUpdated   Action = "updated"
	ActionRetired   Action = "retired"
	ActionNone      Action = "none"
)

// Outcome reports the reconciliation result for one app.
type Outcome struct {
	Name   string           `json:"name"`
	Action Action           `json:"action"`
	State  supervisor.State `json:"state"`
	Error  string           `json:"error,omitempty"`
}

// Report is the full result of one reconciliation pass.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Failed reports whether any app's action errored.
func (r Report) Failed() bool {
	for _, o := range r.Outcomes {
		if o.Error != "" {
			return true
		}
	}
	return false
}

// Reconciler converges the supervisor toward a declared configuration.
type Reconciler struct {
	sup supervisor.Manager
	bus events.EventBus
}

// New creates a Reconciler over the given supervisor.
func New(sup supervisor.Manager, bus events.EventBus) *Reconciler {
	return &Reconciler{sup: sup, bus: bus}
}

// Reconcile applies the declared app set: added apps are defined and
// started, materially changed apps are redefined and restarted if active,
// removed apps are stopped and retired. Per-app actions run concurrently;
// one failure never aborts the rest.
func (r *Reconciler) Reconcile(ctx context.Context, desired []config.AppDefinition) Report {
	r.publish(events.EventReconcileStarted, nil)

	current := make(map[string]config.AppDefinition)
	for _, def := range r.sup.Definitions() {
		current[def.Name] = def
	}

	desiredByName := make(map[string]config.AppDefinition, len(desired))
	for _, def := range desired {
		desiredByName[def.Name] = def
	}

	var mu sync.Mutex
	var outcomes []Outcome
	record := func(o Outcome) {
		mu.Lock()
		outcomes = append(outcomes, o)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, def := range desired {
		def := def
		have, exists := current[def.Name]

		switch {
		case !exists:
			g.Go(func() error {
				r.sup.Define(def)
				o := Outcome{Name: def.Name, Action: ActionStarted}
				if err := r.sup.Start(ctx, def.Name); err != nil {
					o.Error = err.Error()
				}
				o.State = r.stateOf(def.Name)
				record(o)
				return nil
			})
		case have.RequiresRestart(def):
			g.Go(func() error {
				r.sup.Define(def)
				o := Outcome{Name: def.Name, Action: ActionUpdated}
				if active(r.stateOf(def.Name)) {
					o.Action = ActionRestarted
					if err := r.sup.Restart(ctx, def.Name); err != nil {
						o.Error = err.Error()
					}
				}
				o.State = r.stateOf(def.Name)
				record(o)
				return nil
			})
		default:
			// Display-only drift (category, URL) updates silently
			if have.Category != def.Category || have.URL != def.URL {
				r.sup.Define(def)
			}
			record(Outcome{Name: def.Name, Action: ActionNone, State: r.stateOf(def.Name)})
		}
	}

	for name := range current {
		if _, wanted := desiredByName[name]; wanted {
			continue
		}
		name := name
		g.Go(func() error {
			o := Outcome{Name: name, Action: ActionRetired}
			if err := r.sup.Stop(ctx, name); err != nil {
				o.Error = err.Error()
			}
			if o.Error == "" {
				if err := r.sup.Retire(name); err != nil {
					o.Error = err.Error()
				}
			}
			o.State = r.stateOf(name)
			record(o)
			return nil
		})
	}

	g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Name < outcomes[j].Name })
	report := Report{Outcomes: outcomes}

	for _, o := range report.Outcomes {
		if o.Error != "" {
			log.Printf("Reconcile: %s %s failed: %s", o.Name, o.Action, o.Error)
		} else if o.Action != ActionNone {
			log.Printf("Reconcile: %s %s", o.Name, o.Action)
		}
	}

	r.publish(events.EventReconcileDone, map[string]interface{}{
		"apps":   len(report.Outcomes),
		"failed": report.Failed(),
	})
	return report
}

func (r *Reconciler) stateOf(name string) supervisor.State {
	snap, err := r.sup.Status(name)
	if err != nil {
		return supervisor.StateRetired
	}
	return snap.State
}

func (r *Reconciler) publish(eventType string, payload map[string]interface{}) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(context.Background(), events.Event{Type: eventType, Payload: payload})
}

func active(s supervisor.State) bool {
	switch s {
	case supervisor.StateStarting, supervisor.StateRunning, supervisor.StateStopping:
		return true
	}
	return false
}
