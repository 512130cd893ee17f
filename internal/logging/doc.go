// Package logging provides logging utilities for arbor-ctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating checkout", "repo", key, "branch", branch)
//	logging.Warn("fetch failed, using stale mirror", "repo", key, "error", err)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Cloning %s...", remoteURL)
//	logging.UserSuccess("Environment %s ready", envID)
//	logging.UserWarning("Remote unreachable, using stale mirror")
//	logging.UserError("Failed to create checkout: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
