// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const configDebounce = 500 * time.Millisecond

// ConfigWatcher watches the configuration file and invokes a callback
// after edits settle. The parent directory is watched rather than the
// file itself because editors commonly replace the file on save.
type ConfigWatcher struct {
	path      string
	onChange  func()
	watcher   *fsnotify.Watcher
	debouncer *Debouncer

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// NewConfigWatcher watches path and calls onChange after each settled edit.
func NewConfigWatcher(path string, onChange func()) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	w := &ConfigWatcher{
		path:      absPath,
		onChange:  onChange,
		watcher:   fsWatcher,
		debouncer: NewDebouncer(configDebounce),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	w.watcher.Close()
	w.wg.Wait()

	return nil
}

func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ConfigWatcher: %v", err)
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if event.Name != w.path {
		return
	}
	// Writes, creates, and renames all count; chmod does not
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.debouncer.Debounce("config", func() {
		log.Printf("ConfigWatcher: %s changed, reloading", w.path)
		w.onChange()
	})
}
