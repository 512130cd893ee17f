package logging

import (
	"fmt"
	"os"
)

// User-facing output, separate from the structured debug log. These
// print directly so command output stays readable even when --json
// reroutes the slog records.

// UserInfo prints a progress line to stdout, such as the checkout
// path an up produced.
func UserInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "ℹ "+format+"\n", args...)
}

// UserSuccess prints a completion line to stdout.
func UserSuccess(format string, args ...interface{}) {
	fmt.Fprintf(os.Stdout, "✓ "+format+"\n", args...)
}

// UserWarning prints a warning to stderr, for degraded-but-continuing
// situations like an offline fetch.
func UserWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "⚠ "+format+"\n", args...)
}

// UserError prints a failure line to stderr.
func UserError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}
