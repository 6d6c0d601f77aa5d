// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"errors"
	"strings"
)

// PatternMatcher decides which event types a subscription pattern covers.
type PatternMatcher struct{}

// NewPatternMatcher creates a pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// Match reports whether eventType is covered by pattern. "*" covers
// every type, "app.*" covers everything under the app namespace, and
// "*.started" covers the started action of any namespace. An empty
// pattern or event type never matches.
func (pm *PatternMatcher) Match(eventType, pattern string) bool {
	if eventType == "" || pattern == "" {
		return false
	}
	if pattern == "*" || pattern == eventType {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, ".*"); ok {
		return strings.HasPrefix(eventType, prefix+".")
	}
	if action, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(eventType, "."+action)
	}

	return false
}

// CompiledPattern matches event types against one fixed pattern.
type CompiledPattern interface {
	Match(eventType string) bool
}

// Compile validates pattern once and binds it for repeated matching.
func (pm *PatternMatcher) Compile(pattern string) (CompiledPattern, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	return &compiledPattern{pattern: pattern, matcher: pm}, nil
}

type compiledPattern struct {
	pattern string
	matcher *PatternMatcher
}

func (cp *compiledPattern) Match(eventType string) bool {
	return cp.matcher.Match(eventType, cp.pattern)
}
