// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternMatcher_Match(t *testing.T) {
	matcher := NewPatternMatcher()

	tests := []struct {
		name      string
		pattern   string
		eventType string
		matches   bool
	}{
		// Exact matches
		{
			name:      "exact match",
			pattern:   "app.started",
			eventType: "app.started",
			matches:   true,
		},
		{
			name:      "exact no match",
			pattern:   "app.started",
			eventType: "app.stopped",
			matches:   false,
		},

		// Wildcard at end (app.*)
		{
			name:      "wildcard end matches started",
			pattern:   "app.*",
			eventType: "app.started",
			matches:   true,
		},
		{
			name:      "wildcard end matches crashed",
			pattern:   "app.*",
			eventType: "app.crashed",
			matches:   true,
		},
		{
			name:      "wildcard end no match different prefix",
			pattern:   "app.*",
			eventType: "reconcile.done",
			matches:   false,
		},

		// Wildcard at start (*.started)
		{
			name:      "wildcard start matches reconcile",
			pattern:   "*.started",
			eventType: "reconcile.started",
			matches:   true,
		},
		{
			name:      "wildcard start matches app",
			pattern:   "*.started",
			eventType: "app.started",
			matches:   true,
		},
		{
			name:      "wildcard start no match different suffix",
			pattern:   "*.started",
			eventType: "app.stopped",
			matches:   false,
		},

		// Match all
		{
			name:      "match all",
			pattern:   "*",
			eventType: "anything.here",
			matches:   true,
		},
		{
			name:      "match all single word",
			pattern:   "*",
			eventType: "event",
			matches:   true,
		},

		// Nested events
		{
			name:      "wildcard end nested",
			pattern:   "app.*",
			eventType: "app.health.degraded",
			matches:   true,
		},
		{
			name:      "exact nested match",
			pattern:   "app.health.degraded",
			eventType: "app.health.degraded",
			matches:   true,
		},
		{
			name:      "exact nested no match",
			pattern:   "app.health.degraded",
			eventType: "app.health.recovered",
			matches:   false,
		},

		// Edge cases
		{
			name:      "empty pattern",
			pattern:   "",
			eventType: "app.started",
			matches:   false,
		},
		{
			name:      "empty event type",
			pattern:   "app.*",
			eventType: "",
			matches:   false,
		},
		{
			name:      "both empty",
			pattern:   "",
			eventType: "",
			matches:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := matcher.Match(tt.eventType, tt.pattern)
			assert.Equal(t, tt.matches, result)
		})
	}
}

func TestPatternMatcher_Compile(t *testing.T) {
	matcher := NewPatternMatcher()

	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{"exact pattern", "app.started", false},
		{"wildcard end", "app.*", false},
		{"wildcard start", "*.started", false},
		{"match all", "*", false},
		{"empty pattern", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := matcher.Compile(tt.pattern)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, compiled)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, compiled)
			}
		})
	}
}

func TestCompiledPattern_Match(t *testing.T) {
	matcher := NewPatternMatcher()

	// Compile pattern once, match multiple times
	pattern, err := matcher.Compile("app.*")
	require.NoError(t, err)

	tests := []struct {
		eventType string
		matches   bool
	}{
		{"app.started", true},
		{"app.stopped", true},
		{"app.crashed", true},
		{"reconcile.started", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.matches, pattern.Match(tt.eventType))
		})
	}
}

func TestPatternMatcher_MatchMultiplePatterns(t *testing.T) {
	matcher := NewPatternMatcher()

	patterns := []string{"app.started", "app.crashed", "reconcile.*"}

	tests := []struct {
		eventType string
		matches   bool
	}{
		{"app.started", true},
		{"app.crashed", true},
		{"app.stopped", false},
		{"reconcile.started", true},
		{"reconcile.done", true},
		{"config.changed", false},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			matched := false
			for _, pattern := range patterns {
				if matcher.Match(tt.eventType, pattern) {
					matched = true
					break
				}
			}
			assert.Equal(t, tt.matches, matched)
		})
	}
}

func TestPatternMatcher_Concurrency(t *testing.T) {
	matcher := NewPatternMatcher()

	pattern, err := matcher.Compile("app.*")
	require.NoError(t, err)

	done := make(chan bool, 100)
	for i := 0; i < 100; i++ {
		go func() {
			for j := 0; j < 1000; j++ {
				pattern.Match("app.started")
				matcher.Match("app.stopped", "app.*")
			}
			done <- true
		}()
	}

	for i := 0; i < 100; i++ {
		<-done
	}
}
