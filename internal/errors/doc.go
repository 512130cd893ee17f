// Package errors provides typed errors with exit codes for arbor-ctl.
//
// # Error Types
//
// ArborError is the base error type that wraps an error with an exit code
// and an optional taxonomy kind:
//
//	type ArborError struct {
//	    Code    int    // Exit code
//	    Kind    error  // Taxonomy sentinel (matched via errors.Is)
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// Defined exit codes for different error categories:
//
//	ExitSuccess           = 0  // Success
//	ExitGeneralError      = 1  // General/unknown errors
//	ExitSourceUnavailable = 2  // Remote unreachable, no local mirror
//	ExitAmbiguousBranch   = 3  // Sanitized branch name collision
//	ExitCheckoutBusy      = 4  // Removal blocked by active binding
//	ExitPathsUnfixed      = 5  // Cross-reference rewrite incomplete
//	ExitBackendFailure    = 6  // Execution backend failed
//	ExitConfigError       = 7  // Configuration error
//	ExitMetadataCorrupt   = 8  // Persisted state unparseable
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.SourceUnavailable("git@github.com:acme/widgets", err)
//	errors.AmbiguousBranch("feature/x", "feature-x")
//	errors.CheckoutBusy("acme/widgets/main", "acme-widgets-main")
//	errors.BackendFailure("up", output, err)
//
// # Matching Taxonomy Kinds
//
// Constructors tag errors with a sentinel kind, so callers can branch on
// the taxonomy without type assertions:
//
//	if errors.Is(err, errors.ErrCheckoutBusy) {
//	    // tear down the binding or force
//	}
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
