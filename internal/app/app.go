// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package app wires the Appyard components together.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/appyard/appyard/internal/api"
	"github.com/appyard/appyard/internal/config"
	"github.com/appyard/appyard/internal/envs"
	"github.com/appyard/appyard/internal/events"
	"github.com/appyard/appyard/internal/launcher"
	"github.com/appyard/appyard/internal/logsink"
	"github.com/appyard/appyard/internal/ports"
	"github.com/appyard/appyard/internal/reconcile"
	"github.com/appyard/appyard/internal/supervisor"
	"github.com/appyard/appyard/internal/watcher"
)

// Options configures App creation.
type Options struct {
	ConfigPath string
	Host       string // overrides config if set
	Port       int    // overrides config if set
	Version    string
}

// App is the top-level container for the daemon.
type App struct {
	opts       Options
	configPath string

	mu     sync.Mutex
	config *config.Config

	bus           *events.MemoryEventBus
	registry      *ports.Registry
	resolver      *envs.Resolver
	builder       *launcher.Builder
	sinks         *logsink.Manager
	sup           *supervisor.Supervisor
	reconciler    *reconcile.Reconciler
	configWatcher *watcher.ConfigWatcher
	apiServer     *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// New loads the configuration and constructs the App.
func New(opts Options) (*App, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(context.Background(), opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Server.Port = opts.Port
	}

	return &App{
		opts:       opts,
		configPath: opts.ConfigPath,
		config:     cfg,
		done:       make(chan struct{}),
	}, nil
}

// Initialize builds all components from the loaded configuration.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	app.bus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	app.registry = ports.NewRegistry()
	app.resolver = envs.NewResolver(cfg.Environments)

	builder, err := launcher.NewBuilder(cfg.Paths.ScriptsDir)
	if err != nil {
		return fmt.Errorf("init launcher: %w", err)
	}
	app.builder = builder

	sinks, err := logsink.NewManager(cfg.Paths.LogsDir)
	if err != nil {
		return fmt.Errorf("init log sinks: %w", err)
	}
	app.sinks = sinks

	// Definitions enter the supervisor through reconciliation, so the boot
	// pass can tell declared-but-new apps apart from ones already managed
	app.sup = supervisor.New(cfg.Supervisor, app.resolver, app.builder, app.registry, app.sinks, app.bus)
	app.sup.StartMonitor()

	app.reconciler = reconcile.New(app.sup, app.bus)

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, api.Dependencies{
		Supervisor: app.sup,
		EventBus:   app.bus,
		Reconcile:  app.Reconcile,
	})

	// Edits to the config file trigger an automatic reconcile
	cw, err := watcher.NewConfigWatcher(app.configPath, func() {
		if _, err := app.Reconcile(context.Background()); err != nil {
			log.Printf("Auto-reconcile failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Warning: config watching disabled: %v", err)
	} else {
		app.configWatcher = cw
	}

	return nil
}

// Reconcile reloads the configuration file and converges the runtime to it.
func (app *App) Reconcile(ctx context.Context) (reconcile.Report, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	loader := config.NewLoader()
	cfg, err := loader.LoadWithDefaults(ctx, app.configPath)
	if err != nil {
		return reconcile.Report{}, fmt.Errorf("reload config: %w", err)
	}
	app.config = cfg

	app.bus.Publish(ctx, events.Event{Type: events.EventConfigChanged})
	return app.reconciler.Reconcile(ctx, cfg.Apps), nil
}

// Start launches the declared apps and the API server.
func (app *App) Start(ctx context.Context) error {
	// Converge to the declared set at boot
	report := app.reconciler.Reconcile(ctx, app.config.Apps)
	if report.Failed() {
		log.Printf("Warning: some apps failed to start")
	}

	go func() {
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()

	return nil
}

// Run starts the app and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components.
func (app *App) Shutdown(ctx context.Context) error {
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.configWatcher != nil {
		app.configWatcher.Close()
	}

	// Stop accepting requests before stopping apps
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down API server: %v", err)
		}
	}

	if app.sup != nil {
		if err := app.sup.Close(); err != nil {
			log.Printf("Error stopping apps: %v", err)
		}
	}

	if app.bus != nil {
		app.bus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
