package errors

import (
	"errors"
	"fmt"
)

// Exit codes for arbor-ctl
const (
	ExitSuccess           = 0
	ExitGeneralError      = 1
	ExitSourceUnavailable = 2
	ExitAmbiguousBranch   = 3
	ExitCheckoutBusy      = 4
	ExitPathsUnfixed      = 5
	ExitBackendFailure    = 6
	ExitConfigError       = 7
	ExitMetadataCorrupt   = 8
)

// Sentinel kinds for the failure taxonomy. Callers match with errors.Is.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrAmbiguousBranch   = errors.New("ambiguous branch")
	ErrCheckoutBusy      = errors.New("checkout busy")
	ErrPathsUnfixed      = errors.New("paths unfixed")
	ErrBackendFailure    = errors.New("backend failure")
	ErrMetadataCorrupt   = errors.New("metadata corrupt")
)

// ArborError is the base error type for arbor-ctl
type ArborError struct {
	Code    int
	Kind    error
	Message string
	Cause   error
}

func (e *ArborError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ArborError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error carries the given taxonomy kind.
func (e *ArborError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// ExitCode returns the exit code for this error
func (e *ArborError) ExitCode() int {
	return e.Code
}

// New creates a new ArborError
func New(code int, message string) *ArborError {
	return &ArborError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an ArborError
func Wrap(code int, message string, cause error) *ArborError {
	return &ArborError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// SourceUnavailable returns an error for an unreachable remote with no
// usable local mirror to fall back on. Fatal to the current operation.
func SourceUnavailable(remote string, cause error) *ArborError {
	return &ArborError{
		Code:    ExitSourceUnavailable,
		Kind:    ErrSourceUnavailable,
		Message: fmt.Sprintf("remote %s unreachable and no local mirror exists", remote),
		Cause:   cause,
	}
}

// AmbiguousBranch returns an error for two branch names that collide
// once sanitized for filesystem use.
func AmbiguousBranch(requested, existing string) *ArborError {
	return &ArborError{
		Code:    ExitAmbiguousBranch,
		Kind:    ErrAmbiguousBranch,
		Message: fmt.Sprintf("branch %q collides with existing branch %q after sanitization", requested, existing),
	}
}

// CheckoutBusy returns an error for a checkout removal blocked by an
// active environment binding.
func CheckoutBusy(key, environmentID string) *ArborError {
	return &ArborError{
		Code:    ExitCheckoutBusy,
		Kind:    ErrCheckoutBusy,
		Message: fmt.Sprintf("checkout %s is bound to environment %s (use --force or tear the environment down first)", key, environmentID),
	}
}

// PathsUnfixed returns an error for a checkout whose cross-reference
// rewrite did not complete. Recoverable by retrying the fix step.
func PathsUnfixed(path string, cause error) *ArborError {
	return &ArborError{
		Code:    ExitPathsUnfixed,
		Kind:    ErrPathsUnfixed,
		Message: fmt.Sprintf("checkout %s has unfixed cross-reference paths", path),
		Cause:   cause,
	}
}

// BackendFailure returns an error for a failed execution-backend call,
// carrying the captured output.
func BackendFailure(op, output string, cause error) *ArborError {
	msg := fmt.Sprintf("backend %s failed", op)
	if output != "" {
		msg = fmt.Sprintf("%s: %s", msg, output)
	}
	return &ArborError{
		Code:    ExitBackendFailure,
		Kind:    ErrBackendFailure,
		Message: msg,
		Cause:   cause,
	}
}

// MetadataCorrupt returns an error for unparseable persisted state.
func MetadataCorrupt(path string, cause error) *ArborError {
	return &ArborError{
		Code:    ExitMetadataCorrupt,
		Kind:    ErrMetadataCorrupt,
		Message: fmt.Sprintf("metadata file %s is corrupt", path),
		Cause:   cause,
	}
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *ArborError {
	return Wrap(ExitConfigError, message, cause)
}

// GitError returns an error for git operations that have no more
// specific taxonomy entry.
func GitError(op, stderr string, cause error) *ArborError {
	msg := fmt.Sprintf("git %s failed", op)
	if stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	return Wrap(ExitGeneralError, msg, cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *ArborError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var arborErr *ArborError
	if errors.As(err, &arborErr) {
		return arborErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
