// Package mirror manages the shared clones that back all of a
// repository's worktrees. One mirror per repository lives under the
// repos directory, keyed by owner and name, and every checkout shares
// its object store.
package mirror

import (
	"context"
	"path/filepath"
	"time"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
	"github.com/arbor-tools/arbor-ctl/internal/worktree"
)

// Manager ensures mirrors exist and stay fresh.
type Manager struct {
	reposDir      string
	autoFetch     bool
	fetchInterval time.Duration
	git           git.Client
	fs            system.FileSystem
	store         *store.Store
}

// NewManager returns a mirror manager rooted at reposDir. When
// autoFetch is false existing mirrors are never refreshed by Ensure;
// an explicit fetch is the only way to update them.
func NewManager(reposDir string, autoFetch bool, fetchInterval time.Duration, g git.Client, fs system.FileSystem, st *store.Store) *Manager {
	return &Manager{
		reposDir:      reposDir,
		autoFetch:     autoFetch,
		fetchInterval: fetchInterval,
		git:           g,
		fs:            fs,
		store:         st,
	}
}

// Path returns the on-disk location for a mirror, without touching
// the filesystem.
func Path(reposDir, owner, repo string) string {
	return filepath.Join(reposDir, owner, repo)
}

// Ensure makes sure a mirror for owner/repo exists and is reasonably
// fresh, cloning it on first use. When the remote is unreachable an
// existing mirror is used as-is with a warning; without a local copy
// the error is fatal.
//
// The caller must hold the repository lock.
func (m *Manager) Ensure(ctx context.Context, state *store.PersistedState, owner, repo, remote string) (*store.MirrorRecord, error) {
	key := owner + "/" + repo
	rec := state.Mirrors[key]
	path := Path(m.reposDir, owner, repo)
	valid := m.isValidMirror(path)

	if rec == nil && valid {
		// A usable clone with no record: the metadata was recovered,
		// or an earlier run cloned but could not save. Adopt it
		// instead of recloning over it.
		logging.Warn("adopting unrecorded mirror", "path", path)
		rec = &store.MirrorRecord{
			Owner:       owner,
			Repo:        repo,
			Remote:      remote,
			Path:        path,
			DefaultName: "main",
		}
		if branch, err := m.git.DefaultBranch(ctx, path); err == nil {
			rec.DefaultName = branch
		}
		// LastFetch stays zero so the freshness check below refreshes
		// the adopted mirror on this run.
		state.Mirrors[key] = rec
	}

	if rec == nil || !valid {
		if !valid && m.fs.Exists(filepath.Join(path, worktree.WorktreesDirName)) {
			// The clone is damaged but checkouts still hang off it.
			// Deleting would take their uncommitted work with them.
			return nil, errors.New(errors.ExitGeneralError,
				"mirror at "+path+" is damaged but still holds checkouts; repair or remove it manually")
		}
		if m.fs.Exists(path) {
			// Partial clone left by an interrupted run.
			logging.Debug("discarding invalid mirror", "path", path)
			if err := m.fs.RemoveAll(path); err != nil {
				return nil, errors.Wrap(errors.ExitGeneralError, "remove partial mirror", err)
			}
		}
		delete(state.Mirrors, key)
		return m.clone(ctx, state, owner, repo, remote, path)
	}

	if !m.autoFetch {
		logging.Debug("auto-fetch disabled, using mirror as-is", "repo", key)
		return rec, nil
	}

	if time.Since(rec.LastFetch) < m.fetchInterval {
		logging.Debug("mirror is fresh, skipping fetch", "repo", key, "last_fetch", rec.LastFetch)
		return rec, nil
	}

	if err := m.git.Fetch(ctx, path); err != nil {
		// Offline or remote trouble. The local mirror still works,
		// just possibly behind.
		logging.Warn("fetch failed, using local mirror", "repo", key, "error", err)
		return rec, nil
	}

	rec.LastFetch = time.Now().UTC()
	if branch, err := m.git.DefaultBranch(ctx, path); err == nil {
		rec.DefaultName = branch
	}
	return rec, nil
}

func (m *Manager) clone(ctx context.Context, state *store.PersistedState, owner, repo, remote, path string) (*store.MirrorRecord, error) {
	logging.Info("cloning mirror", "repo", owner+"/"+repo, "remote", remote)

	if err := m.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(errors.ExitGeneralError, "create repos directory", err)
	}

	if err := m.git.Clone(ctx, remote, path); err != nil {
		// Do not leave a half-cloned directory behind, the next run
		// would mistake it for a mirror.
		if rmErr := m.fs.RemoveAll(path); rmErr != nil {
			logging.Warn("failed to clean up partial clone", "path", path, "error", rmErr)
		}
		return nil, errors.SourceUnavailable(remote, err)
	}

	branch, err := m.git.DefaultBranch(ctx, path)
	if err != nil {
		branch = "main"
	}

	rec := &store.MirrorRecord{
		Owner:       owner,
		Repo:        repo,
		Remote:      remote,
		Path:        path,
		LastFetch:   time.Now().UTC(),
		DefaultName: branch,
	}
	state.Mirrors[rec.Key()] = rec
	return rec, nil
}

// isValidMirror reports whether path holds a usable clone.
func (m *Manager) isValidMirror(path string) bool {
	return m.fs.Exists(filepath.Join(path, ".git"))
}

// Remove deletes a mirror from disk and from the state. It refuses
// when checkouts still reference the mirror.
func (m *Manager) Remove(state *store.PersistedState, owner, repo string) error {
	key := owner + "/" + repo
	if remaining := state.CheckoutsFor(key); len(remaining) > 0 {
		return errors.New(errors.ExitGeneralError,
			"mirror "+key+" still has checkouts, remove them first")
	}

	path := Path(m.reposDir, owner, repo)
	if err := m.fs.RemoveAll(path); err != nil {
		return errors.Wrap(errors.ExitGeneralError, "remove mirror", err)
	}
	delete(state.Mirrors, key)
	return nil
}
