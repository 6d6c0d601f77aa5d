// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"regexp"
	"strings"
)

// CrashAnalyzer classifies why an app died from its log tail and exit code.
// The managed apps are mostly Python services, so traceback detection comes
// first; the rest falls back to generic signal and exit-code analysis.
type CrashAnalyzer struct {
	tracebackRe *regexp.Regexp
	pyErrRe     *regexp.Regexp
	importRe    *regexp.Regexp
	fatalRe     *regexp.Regexp
	oomRe       *regexp.Regexp
	addrRe      *regexp.Regexp
	sigRe       *regexp.Regexp
}

// NewCrashAnalyzer creates a new crash analyzer.
func NewCrashAnalyzer() *CrashAnalyzer {
	return &CrashAnalyzer{
		tracebackRe: regexp.MustCompile(`^Traceback \(most recent call last\):`),
		pyErrRe:     regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*(?:Error|Exception|Exit|Interrupt))(?::\s*(.*))?$`),
		importRe:    regexp.MustCompile(`^(ModuleNotFoundError|ImportError)(?::\s*(.*))?$`),
		fatalRe:     regexp.MustCompile(`(?i)(^fatal error:|FATAL[:\s])`),
		oomRe:       regexp.MustCompile(`(?i)(out of memory|cannot allocate memory|MemoryError)`),
		addrRe:      regexp.MustCompile(`(?i)(address already in use|bind: address already in use|port \d+ is (already )?in use)`),
		sigRe:       regexp.MustCompile(`(?i)(SIGTERM|SIGKILL|SIGINT|signal[:\s]+(terminated|killed|interrupt))`),
	}
}

// Analyze examines the log tail and exit code to determine the crash reason.
func (a *CrashAnalyzer) Analyze(logs []string, exitCode int) *CrashResult {
	result := &CrashResult{
		ExitCode: exitCode,
	}

	if exitCode == 0 {
		result.Reason = CrashReasonNone
		return result
	}

	if len(logs) == 0 {
		return a.analyzeExitCode(result)
	}

	if a.detectAddrInUse(logs, result) {
		return result
	}

	if a.detectOOM(logs, result) {
		return result
	}

	if a.detectTraceback(logs, result) {
		return result
	}

	if a.detectFatal(logs, result) {
		return result
	}

	if a.detectSignal(logs, result) {
		return result
	}

	// No specific pattern matched: exit-code analysis plus log context
	a.analyzeExitCode(result)
	if result.Details == "" {
		var lastLines []string
		for i := len(logs) - 1; i >= 0 && len(lastLines) < 3; i-- {
			line := strings.TrimSpace(logs[i])
			if line != "" {
				lastLines = append([]string{line}, lastLines...)
			}
		}
		if len(lastLines) > 0 {
			result.Details = strings.Join(lastLines, " | ")
		}
	}
	return result
}

func (a *CrashAnalyzer) detectTraceback(logs []string, result *CrashResult) bool {
	for i, line := range logs {
		if !a.tracebackRe.MatchString(strings.TrimSpace(line)) {
			continue
		}

		// Capture the traceback block and find the final exception line
		var block []string
		for j := i; j < len(logs); j++ {
			block = append(block, logs[j])
			trimmed := strings.TrimSpace(logs[j])
			if j > i && a.pyErrRe.MatchString(trimmed) {
				if a.importRe.MatchString(trimmed) {
					result.Reason = CrashReasonImport
				} else {
					result.Reason = CrashReasonTraceback
				}
				result.Details = trimmed
			}
		}
		if result.Reason == CrashReasonNone {
			result.Reason = CrashReasonTraceback
		}
		result.Traceback = block
		return true
	}

	// A bare exception line without the Traceback header still counts
	for _, line := range logs {
		trimmed := strings.TrimSpace(line)
		if a.pyErrRe.MatchString(trimmed) {
			if a.importRe.MatchString(trimmed) {
				result.Reason = CrashReasonImport
			} else {
				result.Reason = CrashReasonTraceback
			}
			result.Details = trimmed
			return true
		}
	}
	return false
}

func (a *CrashAnalyzer) detectFatal(logs []string, result *CrashResult) bool {
	for _, line := range logs {
		if a.fatalRe.MatchString(line) {
			result.Reason = CrashReasonFatal
			result.Details = strings.TrimSpace(line)
			return true
		}
	}
	return false
}

func (a *CrashAnalyzer) detectOOM(logs []string, result *CrashResult) bool {
	for _, line := range logs {
		if a.oomRe.MatchString(line) {
			result.Reason = CrashReasonOOM
			result.Details = "out of memory"
			return true
		}
	}
	return false
}

func (a *CrashAnalyzer) detectAddrInUse(logs []string, result *CrashResult) bool {
	for _, line := range logs {
		if a.addrRe.MatchString(line) {
			result.Reason = CrashReasonAddrInUse
			result.Details = strings.TrimSpace(line)
			return true
		}
	}
	return false
}

func (a *CrashAnalyzer) detectSignal(logs []string, result *CrashResult) bool {
	for _, line := range logs {
		if match := a.sigRe.FindString(line); match != "" {
			result.Reason = CrashReasonSignal
			result.Details = strings.ToUpper(strings.TrimSpace(match))
			return true
		}
	}
	return false
}

func (a *CrashAnalyzer) analyzeExitCode(result *CrashResult) *CrashResult {
	switch {
	case result.ExitCode == 0:
		result.Reason = CrashReasonNone
	case result.ExitCode >= 128:
		// Exit codes 128+ indicate killed by signal
		result.Reason = CrashReasonSignal
		result.Details = signalName(result.ExitCode - 128)
	case result.ExitCode > 0:
		result.Reason = CrashReasonError
	default:
		result.Reason = CrashReasonUnknown
	}
	return result
}

func signalName(num int) string {
	switch num {
	case 1:
		return "SIGHUP"
	case 2:
		return "SIGINT"
	case 3:
		return "SIGQUIT"
	case 9:
		return "SIGKILL"
	case 11:
		return "SIGSEGV"
	case 15:
		return "SIGTERM"
	default:
		return "signal"
	}
}
