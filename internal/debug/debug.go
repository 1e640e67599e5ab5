// Package debug provides a logging gate for degraded-environment paths.
// Local-environment failures (missing git, unreadable directories) are
// expected and must not surface as errors, but they should still be
// observable when diagnosing a run.
package debug

import (
	"log"
	"os"
)

// envVar enables debug output when set to any non-empty value.
const envVar = "GHSYNC_DEBUG"

// Enabled reports whether debug logging is on for this process.
func Enabled() bool {
	return os.Getenv(envVar) != ""
}

// Logf writes a debug line to stderr when enabled, and is otherwise a no-op.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	log.Printf(format, args...)
}
