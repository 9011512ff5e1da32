// Package logger provides verbose pipeline logging for quasar.
// Debug, Info and Section output only appears with --verbose so the
// context builder's stages (classify, aggregate, retrieve, truncate)
// can be traced. Warnings about degraded paths are always written.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	now               = time.Now
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

// SetOutput sets the output writer. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func emit(always bool, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if always || verbose {
		fmt.Fprintf(output, prefix+format+"\n", args...)
	}
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	emit(false, "[DEBUG] ", format, args...)
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	emit(false, "[INFO] ", format, args...)
}

// Warn prints a warning. Warnings mark degraded behaviour and are never suppressed.
func Warn(format string, args ...any) {
	emit(true, "[WARN] ", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	emit(false, "", "\n=== %s ===", name)
}

// Stage logs the start of a named stage and returns a func that logs its duration.
//
//	done := logger.Stage("embed batch")
//	defer done()
func Stage(name string) func() {
	start := now()
	Debug("%s: start", name)
	return func() {
		Debug("%s: done in %s", name, now().Sub(start).Round(time.Millisecond))
	}
}
