// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

// Package envs resolves app environment specifications into activation steps.
package envs

import (
	"errors"
	"fmt"
	"os"

	"github.com/appyard/appyard/internal/config"
)

// ErrNotFound is returned when an environment cannot be resolved.
var ErrNotFound = errors.New("environment not found")

// ErrBackendUnconfigured is returned when a conda environment is requested
// but no conda activation entry point is configured.
var ErrBackendUnconfigured = errors.New("conda activation entry point not configured")

// StepKind identifies one kind of activation step.
type StepKind int

const (
	// StepPrependPath prepends a directory to the child's search path.
	StepPrependPath StepKind = iota
	// StepSetVar sets an environment variable before activation commands run.
	StepSetVar
	// StepRunInit runs an initialization command (e.g. sourcing a script).
	StepRunInit
)

// Step is a single environment activation step.
type Step struct {
	Kind StepKind
	// Name holds the variable name for StepSetVar, the directory for
	// StepPrependPath. Unused for StepRunInit.
	Name string
	// Value holds the variable value for StepSetVar. Unused otherwise.
	Value string
	// Args holds the command words for StepRunInit.
	Args []string
}

// ActivationSteps is the ordered list of steps needed before an app's
// command runs under the right interpreter.
type ActivationSteps []Step

// Resolver turns an EnvSpec into activation steps. Resolution is pure
// lookup and validation; no step is executed here.
type Resolver struct {
	// CondaActivate is the path to the conda.sh entry point. Empty means
	// conda environments cannot be resolved.
	CondaActivate string
}

// NewResolver creates a resolver with the deployment-wide activation settings.
func NewResolver(envs config.EnvironmentsConfig) *Resolver {
	return &Resolver{CondaActivate: envs.CondaActivate}
}

// Resolve produces the activation steps for the given environment spec.
func (r *Resolver) Resolve(spec config.EnvSpec) (ActivationSteps, error) {
	switch spec.Type {
	case config.EnvNone, "":
		return nil, nil

	case config.EnvVenv:
		f, err := os.Open(spec.Name)
		if err != nil {
			return nil, fmt.Errorf("venv activate script %q: %w", spec.Name, ErrNotFound)
		}
		f.Close()
		return ActivationSteps{
			{Kind: StepRunInit, Args: []string{"source", spec.Name}},
		}, nil

	case config.EnvConda:
		if r.CondaActivate == "" {
			return nil, fmt.Errorf("conda environment %q: %w", spec.Name, ErrBackendUnconfigured)
		}
		if _, err := os.Stat(r.CondaActivate); err != nil {
			return nil, fmt.Errorf("conda entry point %q: %w", r.CondaActivate, ErrNotFound)
		}
		return ActivationSteps{
			{Kind: StepRunInit, Args: []string{"source", r.CondaActivate}},
			{Kind: StepRunInit, Args: []string{"conda", "activate", spec.Name}},
		}, nil

	default:
		return nil, fmt.Errorf("environment type %q: %w", spec.Type, ErrNotFound)
	}
}
