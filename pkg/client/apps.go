// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// AppClient provides access to app lifecycle operations.
//
// Access this client through [Client.Apps]:
//
//	apps, err := client.Apps.List(ctx)
type AppClient struct {
	c *Client
}

// List returns all supervised apps and their current status.
func (a *AppClient) List(ctx context.Context) ([]App, error) {
	data, err := a.c.get(ctx, "/api/v1/apps")
	if err != nil {
		return nil, err
	}

	var apps []App
	if err := json.Unmarshal(data, &apps); err != nil {
		return nil, fmt.Errorf("failed to parse apps: %w", err)
	}

	return apps, nil
}

// Get returns a specific app by name.
//
// Returns an error if the app does not exist.
func (a *AppClient) Get(ctx context.Context, name string) (*App, error) {
	data, err := a.c.get(ctx, "/api/v1/apps/"+name)
	if err != nil {
		return nil, err
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse app: %w", err)
	}

	return &app, nil
}

// Start starts an app and returns its updated snapshot.
func (a *AppClient) Start(ctx context.Context, name string) (*App, error) {
	return a.action(ctx, name, "start")
}

// Stop stops an app and returns its updated snapshot.
func (a *AppClient) Stop(ctx context.Context, name string) (*App, error) {
	return a.action(ctx, name, "stop")
}

// Restart restarts an app and returns its updated snapshot.
func (a *AppClient) Restart(ctx context.Context, name string) (*App, error) {
	return a.action(ctx, name, "restart")
}

func (a *AppClient) action(ctx context.Context, name, verb string) (*App, error) {
	data, err := a.c.post(ctx, "/api/v1/apps/"+name+"/"+verb)
	if err != nil {
		return nil, err
	}

	var app App
	if err := json.Unmarshal(data, &app); err != nil {
		return nil, fmt.Errorf("failed to parse app: %w", err)
	}

	return &app, nil
}

// Logs returns the last n lines of the app's captured output.
// Pass n <= 0 for the server default.
func (a *AppClient) Logs(ctx context.Context, name string, n int) (*AppLogs, error) {
	path := "/api/v1/apps/" + name + "/logs"
	if n > 0 {
		path += "?lines=" + strconv.Itoa(n)
	}

	data, err := a.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var logs AppLogs
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("failed to parse logs: %w", err)
	}

	return &logs, nil
}

// Reconcile reloads the server's configuration file and converges the
// runtime to it, returning the per-app report.
func (a *AppClient) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	data, err := a.c.post(ctx, "/api/v1/reconcile")
	if err != nil {
		return nil, err
	}

	var report ReconcileReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}
