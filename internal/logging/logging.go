package logging

import (
	"io"
	"log/slog"
	"os"
)

// Verbose reports whether debug-level output is enabled.
var Verbose bool

// Logger is the package-level structured logger configured by Setup.
var Logger = slog.Default()

// Setup configures the package logger. Debug messages are emitted only
// when verbose is true; jsonOutput switches to JSON-encoded records.
// A nil writer falls back to stderr.
func Setup(verbose, jsonOutput bool, w io.Writer) {
	Verbose = verbose

	if w == nil {
		w = os.Stderr
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	Logger = slog.New(handler)
}

// With returns a logger with the given attributes attached.
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info-level message with structured attributes.
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning-level message with structured attributes.
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error-level message with structured attributes.
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
