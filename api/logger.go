// Package api
// Author: momentics <momentics@gmail.com>
//
// Logging collaborator. Components receive a Logger at construction instead
// of reaching for process-global state; operational failures are reported
// exactly once, at the point of detection.

package api

// Logger is a single-line, printf-style structured log sink.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards every line.
var NopLogger Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
