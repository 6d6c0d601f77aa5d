// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package launcher materializes per-app startup scripts.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/appyard/appyard/internal/config"
	"github.com/appyard/appyard/internal/envs"
)

// Builder writes startup scripts for app definitions.
type Builder struct {
	dir string
}

// NewBuilder creates a builder that writes scripts under dir, creating it
// if absent.
func NewBuilder(dir string) (*Builder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scripts dir: %w", err)
	}
	return &Builder{dir: dir}, nil
}

// ScriptPath returns the path the startup script for name is written to.
func (b *Builder) ScriptPath(name string) string {
	return filepath.Join(b.dir, sanitize(name)+".sh")
}

// Build composes the activation steps with the app's command into a single
// executable script and writes it atomically (temp file, then rename), always
// overwriting any previous script for the same app.
func (b *Builder) Build(def config.AppDefinition, steps envs.ActivationSteps) (string, error) {
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")

	for _, step := range steps {
		switch step.Kind {
		case envs.StepPrependPath:
			sb.WriteString("export PATH=" + quote(step.Name) + ":\"$PATH\"\n")
		case envs.StepSetVar:
			sb.WriteString("export " + step.Name + "=" + quote(step.Value) + "\n")
		case envs.StepRunInit:
			sb.WriteString(strings.Join(quoteInit(step.Args), " ") + "\n")
		}
	}

	sb.WriteString("cd " + quote(def.EffectiveWorkDir()) + "\n")

	// Later-declared keys win, though definitions guarantee uniqueness;
	// sorted for a stable artifact.
	keys := make([]string, 0, len(def.EnvVars))
	for k := range def.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("export " + k + "=" + quote(def.EnvVars[k]) + "\n")
	}

	cmd := commandFor(def)
	cmd = append(cmd, def.Flags...)
	sb.WriteString("exec " + strings.Join(quoteInit(cmd), " ") + "\n")

	path := b.ScriptPath(def.Name)
	tmp, err := os.CreateTemp(b.dir, "."+sanitize(def.Name)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp script: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write script: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return "", fmt.Errorf("chmod script: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close script: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename script: %w", err)
	}

	return path, nil
}

// commandFor returns the launch command for the app's kind. Dashboard and
// api kinds follow the incantations streamlit and uvicorn expect; web runs
// the script with its port appended; script runs the file as-is and relies
// on its shebang.
func commandFor(def config.AppDefinition) []string {
	port := strconv.Itoa(def.Port)
	switch def.Kind {
	case config.KindDashboard:
		return []string{
			"streamlit", "run", def.Script,
			"--server.port=" + port,
			"--server.headless=true",
			"--server.fileWatcherType=none",
			"--browser.gatherUsageStats=false",
		}
	case config.KindAPI:
		module := strings.TrimSuffix(filepath.Base(def.Script), filepath.Ext(def.Script))
		return []string{
			"uvicorn", module + ":app",
			"--host", "0.0.0.0",
			"--port", port,
		}
	case config.KindWeb:
		return []string{def.Script, "--port", port}
	default:
		return []string{def.Script}
	}
}

// quote wraps s in double quotes, escaping occurrences within.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "$", `\$`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return `"` + s + `"`
}

// quoteInit quotes command words that need it, leaving bare words alone so
// the generated script stays readable.
func quoteInit(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t\"'$`\\") {
			out[i] = quote(a)
		} else {
			out[i] = a
		}
	}
	return out
}

func sanitize(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}
