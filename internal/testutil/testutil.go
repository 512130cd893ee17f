// Package testutil provides test utilities for integration tests
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbor-tools/arbor-ctl/internal/backend"
	"github.com/arbor-tools/arbor-ctl/internal/config"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/spec"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
	"github.com/arbor-tools/arbor-ctl/internal/workspace"
)

// TestEnv holds a fully wired orchestrator with mock git and backend
// over a temp directory.
type TestEnv struct {
	T            *testing.T
	TmpDir       string
	Config       *config.Config
	Paths        *config.Paths
	Store        *store.Store
	Git          *git.Mock
	Backend      *backend.Mock
	Orchestrator *workspace.Orchestrator
}

// NewTestEnv creates a test environment rooted in t.TempDir.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.Worktree.ReposDir = filepath.Join(tmpDir, "repos")
	cfg.Worktree.MetadataPath = filepath.Join(tmpDir, "metadata.json")
	paths := cfg.ResolvePaths()

	fs := system.DefaultFS()
	st := store.New(paths.MetadataPath, paths.LocksDir, fs)
	g := git.NewMock()
	g.Remote = []string{"main"}
	be := backend.NewMock()

	return &TestEnv{
		T:            t,
		TmpDir:       tmpDir,
		Config:       cfg,
		Paths:        paths,
		Store:        st,
		Git:          g,
		Backend:      be,
		Orchestrator: workspace.New(cfg, paths, st, g, be, fs),
	}
}

// Up runs the full pipeline for a source argument.
func (e *TestEnv) Up(arg string) *workspace.UpResult {
	e.T.Helper()

	sp, err := spec.Parse(arg, "")
	if err != nil {
		e.T.Fatalf("parse %q: %v", arg, err)
	}
	res, err := e.Orchestrator.Up(context.Background(), workspace.UpRequest{Spec: sp})
	if err != nil {
		e.T.Fatalf("up %q: %v", arg, err)
	}
	return res
}

// State loads the current metadata.
func (e *TestEnv) State() *store.PersistedState {
	e.T.Helper()

	state, err := e.Store.Load()
	if err != nil {
		e.T.Fatalf("load state: %v", err)
	}
	return state
}

// AddCheckoutRecord seeds a checkout record directly into the
// metadata, bypassing the pipeline.
func (e *TestEnv) AddCheckoutRecord(rec *store.CheckoutRecord) {
	e.T.Helper()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := e.Store.Update(rec.MirrorKey(), func(state *store.PersistedState) error {
		state.Checkouts[rec.Key()] = rec
		return nil
	})
	if err != nil {
		e.T.Fatalf("seed checkout: %v", err)
	}
}

// MirrorPath returns where the mirror for owner/repo lives.
func (e *TestEnv) MirrorPath(owner, repo string) string {
	return filepath.Join(e.Paths.ReposDir, owner, repo)
}
