// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "fmt"

// Validate checks app definitions for configuration-level errors: duplicate
// names, unknown kinds, missing ports for port-binding kinds. These are
// loading errors, not supervisor errors.
func Validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Apps))

	for _, app := range cfg.Apps {
		if app.Name == "" {
			return fmt.Errorf("app with script %q: name is required", app.Script)
		}
		if seen[app.Name] {
			return fmt.Errorf("app %q: duplicate name", app.Name)
		}
		seen[app.Name] = true

		if app.Script == "" {
			return fmt.Errorf("app %q: script is required", app.Name)
		}

		switch app.Kind {
		case KindDashboard, KindAPI, KindWeb, KindScript:
		default:
			return fmt.Errorf("app %q: unknown kind %q", app.Name, app.Kind)
		}

		switch app.Env.Type {
		case EnvNone, EnvVenv, EnvConda:
		default:
			return fmt.Errorf("app %q: unknown environment type %q", app.Name, app.Env.Type)
		}
		if app.Env.Type != EnvNone && app.Env.Name == "" {
			return fmt.Errorf("app %q: environment type %q requires a name", app.Name, app.Env.Type)
		}

		// Port conflicts between apps are not a loading error: the port
		// registry arbitrates them at start time.
		if app.Kind.BindsPort() && app.Port == 0 {
			return fmt.Errorf("app %q: kind %q requires a port", app.Name, app.Kind)
		}
	}

	return nil
}
