// Package monitoring carries the shared diagnostic logger for the triage
// service. Compute-core packages log through Logf instead of the stdlib
// logger directly so tests and embedding hosts can redirect or mute
// diagnostics without touching process-level logging.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op so
// callers never have to nil-check before logging.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
