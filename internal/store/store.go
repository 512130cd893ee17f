// Package store persists mirror and checkout metadata as a single
// JSON file. Two locks guard it: a per-repository lock serializes
// mutations of one repository's mirror and checkouts, and a single
// state lock guards every load-modify-save of the shared file so
// writers for different repositories cannot erase each other.
package store

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

// Store reads and writes the metadata file. All writes go through a
// temp file followed by a rename so readers never observe a torn file.
type Store struct {
	path     string
	locksDir string
	fs       system.FileSystem
}

// New returns a store backed by the given metadata path. Lock files
// live in locksDir, one per repository.
func New(path, locksDir string, fs system.FileSystem) *Store {
	return &Store{path: path, locksDir: locksDir, fs: fs}
}

// Path returns the metadata file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the metadata file. A missing file yields an empty state.
// A file that exists but cannot be parsed is a hard error so we never
// silently discard records.
func (s *Store) Load() (*PersistedState, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, errors.MetadataCorrupt(s.path, err)
	}

	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, errors.MetadataCorrupt(s.path, err)
	}

	migrate(&state)
	return &state, nil
}

// Save writes the state atomically.
func (s *Store) Save(state *PersistedState) error {
	state.Version = SchemaVersion

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ExitGeneralError, "marshal metadata", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ExitGeneralError, "create metadata directory", err)
	}

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrap(errors.ExitGeneralError, "write metadata", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return errors.Wrap(errors.ExitGeneralError, "replace metadata", err)
	}
	return nil
}

// Recover moves a corrupt metadata file aside and returns a fresh
// state so the tool can keep working. The damaged file is preserved
// for inspection.
func (s *Store) Recover() (*PersistedState, error) {
	backup := s.path + ".corrupt"
	if s.fs.Exists(s.path) {
		if err := s.fs.Rename(s.path, backup); err != nil {
			return nil, errors.Wrap(errors.ExitMetadataCorrupt, "move corrupt metadata aside", err)
		}
		logging.Warn("metadata file was corrupt, moved aside", "backup", backup)
	}
	return NewState(), nil
}

// Update loads the state, applies fn, and saves the result. The
// repository lock serializes mutators of the same repository; the
// state lock guards the load-modify-save window itself. A corrupt
// file is recovered with a warning so mutations keep working after
// damage. fn may return an error to abort without writing.
func (s *Store) Update(repoKey string, fn func(*PersistedState) error) error {
	return s.WithLock(repoKey, func() error {
		return s.withStateLock(func() error {
			state, err := s.loadOrRecover()
			if err != nil {
				return err
			}
			if err := fn(state); err != nil {
				return err
			}
			return s.Save(state)
		})
	})
}

// CommitRepo writes one repository's slice of an in-memory state back
// into the shared file. The current file is re-read under the state
// lock and only the entries keyed by repoKey are replaced, so a
// pipeline that loaded its state minutes ago cannot erase records
// other repositories wrote in the meantime. The caller must hold the
// repository lock for repoKey.
func (s *Store) CommitRepo(state *PersistedState, repoKey string) error {
	return s.withStateLock(func() error {
		current, err := s.loadOrRecover()
		if err != nil {
			return err
		}
		mergeRepo(current, state, repoKey)
		return s.Save(current)
	})
}

// loadOrRecover loads the state, taking the recovery path when the
// file is corrupt.
func (s *Store) loadOrRecover() (*PersistedState, error) {
	state, err := s.Load()
	if err == nil {
		return state, nil
	}
	if goerrors.Is(err, errors.ErrMetadataCorrupt) {
		return s.Recover()
	}
	return nil, err
}

// WithLock runs fn while holding an exclusive flock on the lock file
// for the given repository. Locks are per repository so unrelated
// repositories never contend.
func (s *Store) WithLock(repoKey string, fn func() error) error {
	return s.withFlock(lockName(repoKey), fn)
}

// stateLockFile guards load-modify-save of the metadata file itself.
// Repository keys always contain a slash, so lockName can never
// produce this filename.
const stateLockFile = "metadata.lock"

func (s *Store) withStateLock(fn func() error) error {
	return s.withFlock(stateLockFile, fn)
}

func (s *Store) withFlock(name string, fn func() error) error {
	if err := os.MkdirAll(s.locksDir, 0o755); err != nil {
		return errors.Wrap(errors.ExitGeneralError, "create locks directory", err)
	}

	lockPath := filepath.Join(s.locksDir, name)
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrap(errors.ExitGeneralError, "open lock file", err)
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return errors.Wrap(errors.ExitGeneralError, fmt.Sprintf("lock %s", lockPath), err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	return fn()
}

// lockName flattens a repo key like "acme/widgets" into a filename.
func lockName(repoKey string) string {
	return strings.ReplaceAll(repoKey, "/", "-") + ".lock"
}

// mergeRepo replaces dst's entries for repoKey with src's, including
// deletions: entries present in dst but absent from src are dropped.
func mergeRepo(dst, src *PersistedState, repoKey string) {
	if m, ok := src.Mirrors[repoKey]; ok {
		dst.Mirrors[repoKey] = m
	} else {
		delete(dst.Mirrors, repoKey)
	}

	prefix := repoKey + "/"
	for key := range dst.Checkouts {
		if strings.HasPrefix(key, prefix) {
			delete(dst.Checkouts, key)
		}
	}
	for key, c := range src.Checkouts {
		if strings.HasPrefix(key, prefix) {
			dst.Checkouts[key] = c
		}
	}
}

// migrate fills in fields that older metadata files may lack.
func migrate(state *PersistedState) {
	if state.Mirrors == nil {
		state.Mirrors = make(map[string]*MirrorRecord)
	}
	if state.Checkouts == nil {
		state.Checkouts = make(map[string]*CheckoutRecord)
	}
	if state.Version == 0 {
		state.Version = SchemaVersion
	}
	for key, c := range state.Checkouts {
		if c.Owner == "" || c.Repo == "" || c.Branch == "" {
			// Reconstruct identity fields from the map key.
			parts := strings.SplitN(key, "/", 3)
			if len(parts) == 3 {
				c.Owner, c.Repo, c.Branch = parts[0], parts[1], parts[2]
			}
		}
	}
	for key, m := range state.Mirrors {
		if m.Owner == "" || m.Repo == "" {
			parts := strings.SplitN(key, "/", 2)
			if len(parts) == 2 {
				m.Owner, m.Repo = parts[0], parts[1]
			}
		}
	}
}
