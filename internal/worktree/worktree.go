// Package worktree creates and removes the per-branch checkouts that
// share a mirror's object store. Checkouts live under the mirror root
// at .worktrees/<segment> so mounting the mirror root keeps every
// checkout's git metadata reachable.
package worktree

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

// WorktreesDirName is the directory under the mirror root that holds
// all checkouts.
const WorktreesDirName = ".worktrees"

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// Sanitize maps a branch name onto a single path segment. Slashes
// become dashes so hierarchy stays readable, everything else unsafe
// becomes an underscore, and leading or trailing dots and dashes are
// stripped.
func Sanitize(branch string) string {
	s := strings.ReplaceAll(branch, "/", "-")
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".-")
	if s == "" {
		s = "branch"
	}
	return s
}

// Manager creates checkouts, fixes their cross-references, and
// reconciles them against recorded state.
type Manager struct {
	git git.Client
	fs  system.FileSystem
}

// NewManager returns a worktree manager.
func NewManager(g git.Client, fs system.FileSystem) *Manager {
	return &Manager{git: g, fs: fs}
}

// CheckoutPath returns where the checkout for branch lives under
// mirrorPath. The sanitized segment is joined with securejoin so a
// hostile branch name can never escape the mirror root.
func CheckoutPath(mirrorPath, branch string) (string, error) {
	p, err := securejoin.SecureJoin(mirrorPath, filepath.Join(WorktreesDirName, Sanitize(branch)))
	if err != nil {
		return "", errors.ValidationError("branch name produces unusable path: " + branch)
	}
	return p, nil
}

// checkCollision fails when branch would share a checkout path with a
// different branch that already has a checkout of this mirror.
// Comparison is case-insensitive because the path may land on a
// case-preserving filesystem.
func checkCollision(state *store.PersistedState, mirror *store.MirrorRecord, branch string) error {
	seg := Sanitize(branch)
	for _, c := range state.CheckoutsFor(mirror.Key()) {
		if c.Branch == branch {
			continue
		}
		if strings.EqualFold(Sanitize(c.Branch), seg) {
			return errors.AmbiguousBranch(branch, c.Branch)
		}
	}
	return nil
}

// Ensure returns a usable checkout of branch in the given mirror,
// creating it when absent. An existing checkout is verified rather
// than recreated, so re-running after a partial failure picks up
// where the previous run stopped. Cross-references are rewritten to
// relative form before the checkout is considered usable.
func (m *Manager) Ensure(ctx context.Context, state *store.PersistedState, mirror *store.MirrorRecord, branch string, branchIsNew bool) (*store.CheckoutRecord, error) {
	if err := checkCollision(state, mirror, branch); err != nil {
		return nil, err
	}

	path, err := CheckoutPath(mirror.Path, branch)
	if err != nil {
		return nil, err
	}

	key := mirror.Key() + "/" + branch
	rec := state.Checkouts[key]
	existing := m.fs.Exists(filepath.Join(path, ".git"))

	if rec == nil && existing {
		// A checkout on disk with no record: the worktree was
		// created but the state save never landed. Verify it and
		// take it over rather than letting a second worktree add
		// fail against the occupied path.
		logging.Warn("adopting unrecorded checkout", "path", path, "branch", branch)
		if err := FixPaths(m.fs, path); err != nil {
			return nil, err
		}
		if err := VerifyPaths(m.fs, path); err != nil {
			return nil, err
		}
		rec = &store.CheckoutRecord{
			Owner:     mirror.Owner,
			Repo:      mirror.Repo,
			Branch:    branch,
			Path:      path,
			CreatedAt: time.Now().UTC(),
			LastUsed:  time.Now().UTC(),
			NeedsPush: branchIsNew,
		}
		state.Checkouts[key] = rec
		return rec, nil
	}

	if rec != nil && existing {
		if rec.PathsUnfixed {
			// Retry the rewrite that failed last time.
			if err := FixPaths(m.fs, path); err != nil {
				return nil, err
			}
			rec.PathsUnfixed = false
		}
		if err := VerifyPaths(m.fs, path); err != nil {
			return nil, err
		}
		rec.LastUsed = time.Now().UTC()
		logging.Debug("reusing existing checkout", "path", path, "branch", branch)
		return rec, nil
	}

	if rec != nil {
		// Record without a directory. Drop it and recreate; the
		// mirror-side admin entry may also be stale.
		logging.Warn("checkout directory missing, recreating", "path", path)
		delete(state.Checkouts, key)
		if err := m.git.PruneWorktrees(ctx, mirror.Path); err != nil {
			logging.Debug("worktree prune failed", "error", err)
		}
	}

	if err := m.fs.MkdirAll(filepath.Join(mirror.Path, WorktreesDirName), 0o755); err != nil {
		return nil, errors.Wrap(errors.ExitGeneralError, "create worktrees directory", err)
	}

	if err := m.git.AddWorktree(ctx, mirror.Path, path, branch, false); err != nil {
		return nil, err
	}

	rec = &store.CheckoutRecord{
		Owner:     mirror.Owner,
		Repo:      mirror.Repo,
		Branch:    branch,
		Path:      path,
		CreatedAt: time.Now().UTC(),
		LastUsed:  time.Now().UTC(),
		NeedsPush: branchIsNew,
	}
	state.Checkouts[key] = rec

	if err := FixPaths(m.fs, path); err != nil {
		// The checkout exists but cannot be relocated safely. Record
		// it so the next run retries the rewrite instead of cloning
		// a duplicate.
		rec.PathsUnfixed = true
		return nil, err
	}

	logging.Info("created checkout", "path", path, "branch", branch)
	return rec, nil
}

// Remove deletes a checkout and its record. It refuses while an
// environment is still bound to the checkout unless force is set.
func (m *Manager) Remove(ctx context.Context, state *store.PersistedState, mirror *store.MirrorRecord, branch string, force bool) error {
	key := mirror.Key() + "/" + branch
	rec := state.Checkouts[key]
	if rec == nil {
		return errors.ValidationError("no checkout recorded for " + key)
	}
	if rec.EnvID != "" && !force {
		return errors.CheckoutBusy(key, rec.EnvID)
	}

	if err := m.git.RemoveWorktree(ctx, mirror.Path, rec.Path, force); err != nil {
		return err
	}
	delete(state.Checkouts, key)
	logging.Info("removed checkout", "path", rec.Path, "branch", branch)
	return nil
}

// DriftKind classifies one reconciliation finding.
type DriftKind string

const (
	// DriftUntracked is a checkout directory with no record.
	DriftUntracked DriftKind = "untracked"
	// DriftMissing is a record whose directory is gone.
	DriftMissing DriftKind = "missing"
)

// Drift is one discrepancy between disk and recorded state. Findings
// are reported to the caller, never auto-corrected.
type Drift struct {
	Kind   DriftKind
	Path   string
	Branch string
}

// List reconciles on-disk checkouts of mirror against the recorded
// state, cross-checked with git's own worktree bookkeeping. It
// returns the records that are intact plus any drift.
func (m *Manager) List(ctx context.Context, state *store.PersistedState, mirror *store.MirrorRecord) ([]*store.CheckoutRecord, []Drift, error) {
	recorded := state.CheckoutsFor(mirror.Key())
	wtDir := filepath.Join(mirror.Path, WorktreesDirName)

	onDisk := make(map[string]bool)
	if m.fs.IsDir(wtDir) {
		entries, err := m.fs.ReadDir(wtDir)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ExitGeneralError, "read worktrees directory", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				onDisk[filepath.Join(wtDir, e.Name())] = true
			}
		}
	}

	// git's list catches worktrees whose directory vanished but whose
	// admin entry survives, and names the branch of untracked ones.
	gitKnown := make(map[string]git.WorktreeEntry)
	if entries, err := m.git.ListWorktrees(ctx, mirror.Path); err == nil {
		for _, e := range entries {
			if strings.HasPrefix(e.Path, wtDir+string(filepath.Separator)) {
				gitKnown[e.Path] = e
			}
		}
	} else {
		logging.Debug("git worktree list unavailable", "error", err)
	}

	var intact []*store.CheckoutRecord
	var drift []Drift
	for _, rec := range recorded {
		delete(gitKnown, rec.Path)
		if onDisk[rec.Path] {
			intact = append(intact, rec)
			delete(onDisk, rec.Path)
		} else {
			drift = append(drift, Drift{Kind: DriftMissing, Path: rec.Path, Branch: rec.Branch})
		}
	}
	for path := range onDisk {
		d := Drift{Kind: DriftUntracked, Path: path}
		if e, ok := gitKnown[path]; ok {
			d.Branch = e.Branch
			logging.Debug("untracked checkout", "worktree", e.Describe())
			delete(gitKnown, path)
		}
		drift = append(drift, d)
	}
	for path, e := range gitKnown {
		drift = append(drift, Drift{Kind: DriftMissing, Path: path, Branch: e.Branch})
	}
	return intact, drift, nil
}
