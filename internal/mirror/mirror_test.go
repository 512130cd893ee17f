package mirror

import (
	"context"
	goerrors "errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

func newTestManager(t *testing.T) (*Manager, *git.Mock, *store.PersistedState, string) {
	t.Helper()
	dir := t.TempDir()
	reposDir := filepath.Join(dir, "repos")
	st := store.New(filepath.Join(dir, "metadata.json"), filepath.Join(dir, "locks"), system.DefaultFS())
	g := git.NewMock()
	mgr := NewManager(reposDir, true, time.Hour, g, system.DefaultFS(), st)
	return mgr, g, store.NewState(), reposDir
}

func TestEnsure_AdoptsUnrecordedMirror(t *testing.T) {
	mgr, g, state, _ := newTestManager(t)
	g.Remote = []string{"main"}

	// First run clones; a fresh state simulates metadata that was
	// recovered (or never saved) afterwards.
	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}

	fresh := store.NewState()
	rec, err := mgr.Ensure(context.Background(), fresh, "acme", "widgets", "url")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if len(g.CallsFor("Clone")) != 1 {
		t.Fatalf("clone ran %d times, want 1: the on-disk mirror must be adopted", len(g.CallsFor("Clone")))
	}
	if rec.DefaultName != "main" {
		t.Errorf("DefaultName = %q for adopted mirror", rec.DefaultName)
	}
	if _, ok := fresh.Mirrors["acme/widgets"]; !ok {
		t.Error("adopted mirror not re-recorded")
	}
	// The adopted record starts with a zero LastFetch, so the same
	// call already refreshed it.
	if len(g.CallsFor("Fetch")) != 1 {
		t.Errorf("fetch ran %d times, want 1 refresh of the adopted mirror", len(g.CallsFor("Fetch")))
	}
}

func TestEnsure_CloneFailureNeverDeletesExistingMirror(t *testing.T) {
	mgr, g, state, reposDir := newTestManager(t)
	g.Remote = []string{"main"}

	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(reposDir, "acme", "widgets")
	fs := system.DefaultFS()
	wtFile := filepath.Join(path, ".worktrees", "main", "work.txt")
	if err := fs.MkdirAll(filepath.Dir(wtFile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(wtFile, []byte("uncommitted"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Empty state plus a failing clone: the valid mirror on disk must
	// be adopted, never recloned or removed.
	g.SetError("Clone", goerrors.New("could not resolve host"))
	if _, err := mgr.Ensure(context.Background(), store.NewState(), "acme", "widgets", "url"); err != nil {
		t.Fatalf("Ensure() error = %v, want adoption of the on-disk mirror", err)
	}
	if !fs.Exists(wtFile) {
		t.Fatal("pre-existing worktree file was deleted")
	}
}

func TestEnsure_RefusesToRemoveDamagedMirrorWithCheckouts(t *testing.T) {
	mgr, _, state, reposDir := newTestManager(t)

	// No .git, but .worktrees holds a checkout: deleting would take
	// its contents along.
	path := filepath.Join(reposDir, "acme", "widgets")
	fs := system.DefaultFS()
	keep := filepath.Join(path, ".worktrees", "main", "work.txt")
	if err := fs.MkdirAll(filepath.Dir(keep), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fs.WriteFile(keep, []byte("uncommitted"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err == nil {
		t.Fatal("Ensure() should refuse to replace a damaged mirror that still holds checkouts")
	}
	if !fs.Exists(keep) {
		t.Fatal("checkout contents deleted from damaged mirror")
	}
}

func TestEnsure_AutoFetchDisabledSkipsRefresh(t *testing.T) {
	dir := t.TempDir()
	reposDir := filepath.Join(dir, "repos")
	st := store.New(filepath.Join(dir, "metadata.json"), filepath.Join(dir, "locks"), system.DefaultFS())
	g := git.NewMock()
	g.Remote = []string{"main"}
	mgr := NewManager(reposDir, false, time.Hour, g, system.DefaultFS(), st)

	state := store.NewState()
	rec, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err != nil {
		t.Fatal(err)
	}
	rec.LastFetch = time.Now().Add(-48 * time.Hour)

	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}
	if calls := g.CallsFor("Fetch"); len(calls) != 0 {
		t.Errorf("fetch ran %d times with auto-fetch disabled, want 0", len(calls))
	}
}

func TestEnsure_ClonesOnFirstUse(t *testing.T) {
	mgr, g, state, reposDir := newTestManager(t)
	g.Remote = []string{"main", "feature/x"}

	rec, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "git@github.com:acme/widgets.git")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	wantPath := filepath.Join(reposDir, "acme", "widgets")
	if rec.Path != wantPath {
		t.Errorf("Path = %q, want %q", rec.Path, wantPath)
	}
	if rec.DefaultName != "main" {
		t.Errorf("DefaultName = %q, want main", rec.DefaultName)
	}
	if len(g.CallsFor("Clone")) != 1 {
		t.Error("expected exactly one clone")
	}
	if _, ok := state.Mirrors["acme/widgets"]; !ok {
		t.Error("mirror not recorded in state")
	}
}

func TestEnsure_SkipsFetchWhenFresh(t *testing.T) {
	mgr, g, state, _ := newTestManager(t)
	g.Remote = []string{"main"}

	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}

	if calls := g.CallsFor("Fetch"); len(calls) != 0 {
		t.Errorf("fetch ran %d times for a fresh mirror, want 0", len(calls))
	}
}

func TestEnsure_FetchesWhenStale(t *testing.T) {
	mgr, g, state, _ := newTestManager(t)
	g.Remote = []string{"main"}

	rec, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err != nil {
		t.Fatal(err)
	}
	rec.LastFetch = time.Now().Add(-2 * time.Hour)

	if _, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url"); err != nil {
		t.Fatal(err)
	}
	if calls := g.CallsFor("Fetch"); len(calls) != 1 {
		t.Errorf("fetch ran %d times for a stale mirror, want 1", len(calls))
	}
	if time.Since(rec.LastFetch) > time.Minute {
		t.Error("LastFetch not updated after fetch")
	}
}

func TestEnsure_OfflineDowngradesToLocalMirror(t *testing.T) {
	mgr, g, state, _ := newTestManager(t)
	g.Remote = []string{"main"}

	rec, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	rec.LastFetch = stale
	g.SetError("Fetch", goerrors.New("could not resolve host"))

	got, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err != nil {
		t.Fatalf("Ensure() should tolerate fetch failure with a local mirror, got %v", err)
	}
	if !got.LastFetch.Equal(stale) {
		t.Error("LastFetch updated despite failed fetch")
	}
}

func TestEnsure_NoLocalMirrorAndOfflineIsFatal(t *testing.T) {
	mgr, g, state, _ := newTestManager(t)
	g.SetError("Clone", goerrors.New("could not resolve host"))

	_, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if !goerrors.Is(err, errors.ErrSourceUnavailable) {
		t.Fatalf("Ensure() error = %v, want source unavailable", err)
	}
	if errors.GetExitCode(err) != errors.ExitSourceUnavailable {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitSourceUnavailable)
	}
}

func TestEnsure_ReclonesOverPartialClone(t *testing.T) {
	mgr, g, state, reposDir := newTestManager(t)
	g.Remote = []string{"main"}

	// A record pointing at a directory with no .git is a partial
	// clone from an interrupted run.
	path := filepath.Join(reposDir, "acme", "widgets")
	fs := system.DefaultFS()
	if err := fs.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	state.Mirrors["acme/widgets"] = &store.MirrorRecord{
		Owner: "acme", Repo: "widgets", Path: path, LastFetch: time.Now(),
	}

	rec, err := mgr.Ensure(context.Background(), state, "acme", "widgets", "url")
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if len(g.CallsFor("Clone")) != 1 {
		t.Error("partial clone was not replaced")
	}
	if rec.DefaultName != "main" {
		t.Errorf("DefaultName = %q after reclone", rec.DefaultName)
	}
}

func TestRemove_RefusesWithCheckouts(t *testing.T) {
	mgr, _, state, _ := newTestManager(t)
	state.Mirrors["acme/widgets"] = &store.MirrorRecord{Owner: "acme", Repo: "widgets"}
	state.Checkouts["acme/widgets/main"] = &store.CheckoutRecord{Owner: "acme", Repo: "widgets", Branch: "main"}

	if err := mgr.Remove(state, "acme", "widgets"); err == nil {
		t.Fatal("Remove() should refuse while checkouts exist")
	}
	if _, ok := state.Mirrors["acme/widgets"]; !ok {
		t.Error("mirror record removed despite refusal")
	}
}

func TestPath(t *testing.T) {
	got := Path("/cache/repos", "acme", "widgets")
	if got != filepath.Join("/cache/repos", "acme", "widgets") {
		t.Errorf("Path() = %q", got)
	}
}
