// Package spec parses the source argument of a request into a
// structured form and decides which execution mode serves it.
package spec

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
)

// Mode selects how a request is executed.
type Mode string

const (
	// ModeWorktree runs against a managed mirror and checkout.
	ModeWorktree Mode = "worktree"
	// ModeDirect runs against a filesystem path as-is, with no
	// mirror or checkout management.
	ModeDirect Mode = "direct"
)

// BackendEnvVar overrides the mode for all requests when set to
// "worktree" or "direct". A --backend flag beats the variable.
const BackendEnvVar = "ARBOR_BACKEND"

// Spec is a parsed source argument.
type Spec struct {
	Mode Mode

	// Owner, Repo, and Branch are set in worktree mode. Branch is
	// empty when the request did not pin one.
	Owner  string
	Repo   string
	Branch string

	// Path is set in direct mode.
	Path string
}

// Remote returns the clone URL for a worktree-mode spec.
func (s *Spec) Remote() string {
	return "https://github.com/" + s.Owner + "/" + s.Repo + ".git"
}

// RepoKey returns "owner/repo".
func (s *Spec) RepoKey() string {
	return s.Owner + "/" + s.Repo
}

var ownerRepoPattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._-]*)/([A-Za-z0-9][A-Za-z0-9._-]*)$`)

// Parse interprets a source argument. Accepted worktree forms:
//
//	owner/repo
//	owner/repo@branch
//	github.com/owner/repo[@branch]
//	https://github.com/owner/repo[.git][@branch]
//	git@github.com:owner/repo[.git]
//
// Anything that exists on the local filesystem, or starts with "/",
// "./" or "../", parses as a direct-mode path. flagBackend comes from
// --backend and beats the environment override.
func Parse(arg, flagBackend string) (*Spec, error) {
	if arg == "" {
		return nil, errors.ValidationError("empty source argument")
	}

	if isPathLike(arg) {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, errors.ValidationError("cannot resolve path: " + arg)
		}
		sp := &Spec{Mode: ModeDirect, Path: abs}
		return applyOverride(sp, flagBackend)
	}

	sp, err := parseRepo(arg)
	if err != nil {
		return nil, err
	}
	return applyOverride(sp, flagBackend)
}

func isPathLike(arg string) bool {
	if strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") || arg == "." || arg == ".." {
		return true
	}
	if _, err := os.Stat(arg); err == nil {
		return true
	}
	return false
}

func parseRepo(arg string) (*Spec, error) {
	rest := arg

	// Split off an @branch suffix before stripping URL decoration.
	// SSH remotes contain "@" before the host, so only treat the
	// last "@" as a branch separator when it follows a "/".
	branch := ""
	if idx := strings.LastIndex(rest, "@"); idx > strings.LastIndex(rest, "/") && strings.Contains(rest, "/") {
		branch = rest[idx+1:]
		rest = rest[:idx]
	}

	rest = strings.TrimPrefix(rest, "https://")
	rest = strings.TrimPrefix(rest, "http://")
	rest = strings.TrimPrefix(rest, "git@github.com:")
	rest = strings.TrimPrefix(rest, "github.com/")
	rest = strings.TrimSuffix(rest, ".git")
	rest = strings.TrimSuffix(rest, "/")

	m := ownerRepoPattern.FindStringSubmatch(rest)
	if m == nil {
		return nil, errors.ValidationError("cannot parse source argument: " + arg)
	}

	return &Spec{
		Mode:   ModeWorktree,
		Owner:  m[1],
		Repo:   m[2],
		Branch: branch,
	}, nil
}

func applyOverride(sp *Spec, flagBackend string) (*Spec, error) {
	override := flagBackend
	if override == "" {
		override = os.Getenv(BackendEnvVar)
	}
	switch override {
	case "":
		return sp, nil
	case string(ModeWorktree):
		if sp.Mode == ModeDirect {
			return nil, errors.ValidationError("worktree backend requires an owner/repo source, got a path")
		}
		sp.Mode = ModeWorktree
		return sp, nil
	case string(ModeDirect):
		if sp.Mode == ModeWorktree {
			return nil, errors.ValidationError("direct backend requires a filesystem path, got " + sp.RepoKey())
		}
		return sp, nil
	default:
		return nil, errors.ConfigError("unknown backend "+override+", want worktree or direct", nil)
	}
}
