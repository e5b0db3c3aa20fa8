// Package logger provides verbose logging for the bidscribe CLI.
// When verbose mode is enabled via the --verbose flag, debug messages
// are printed to stderr to follow generation and retrieval as they run.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for verbose logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[DEBUG] "+format+"\n", args...)
	}
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[INFO] "+format+"\n", args...)
	}
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "[WARN] "+format+"\n", args...)
	}
}

// Scoped prefixes every message with a fixed label, e.g. "[chapter 3]".
// It is used by concurrent work so interleaved lines stay attributable.
type Scoped struct {
	prefix string
}

// Scope returns a logger that prefixes messages with "[label] ".
func Scope(label string) Scoped {
	return Scoped{prefix: "[" + label + "] "}
}

// Debug prints a prefixed debug message.
func (s Scoped) Debug(format string, args ...any) {
	Debug(s.prefix+format, args...)
}

// Info prints a prefixed informational message.
func (s Scoped) Info(format string, args ...any) {
	Info(s.prefix+format, args...)
}

// Warn prints a prefixed warning.
func (s Scoped) Warn(format string, args ...any) {
	Warn(s.prefix+format, args...)
}
