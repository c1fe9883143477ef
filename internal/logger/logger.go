// Package logger provides package-level logging with a verbose switch.
//
// Debug output is suppressed unless SetVerbose(true) has been called,
// which the CLI wires to the --verbose flag.
package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	verbose atomic.Bool

	std = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether debug output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Debug logs a message only when verbose mode is enabled.
func Debug(format string, args ...any) {
	if verbose.Load() {
		std.Printf("DEBUG "+format, args...)
	}
}

// Info logs an informational message.
func Info(format string, args ...any) {
	std.Printf("INFO  "+format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	std.Printf("WARN  "+format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	std.Printf("ERROR "+format, args...)
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}
