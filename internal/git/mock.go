package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MockCall records one Client method invocation.
type MockCall struct {
	Method string
	Args   []string
}

// Mock is a stateful fake Client for tests. It maintains branch and
// worktree state in memory and mirrors just enough repository
// structure onto disk (directories and gitdir cross-reference files)
// for the managers' filesystem checks and the path rewriter to
// operate on.
type Mock struct {
	mu sync.Mutex

	// Remote state served to RemoteBranches / DefaultBranch.
	Remote      []string
	DefaultName string

	// Local state, keyed by repository dest path.
	Local     map[string][]string          // dest -> local branch names
	Tracked   map[string]map[string]string // dest -> branch -> upstream
	Worktrees map[string]map[string]string // dest -> worktree path -> branch
	Pushed    map[string][]string          // dest -> pushed branch names

	// Errors injects failures per method name.
	Errors map[string]error

	// CallLog records all method calls for verification.
	CallLog []MockCall
}

// NewMock creates an empty mock with default branch "main".
func NewMock() *Mock {
	return &Mock{
		DefaultName: "main",
		Local:       make(map[string][]string),
		Tracked:     make(map[string]map[string]string),
		Worktrees:   make(map[string]map[string]string),
		Pushed:      make(map[string][]string),
		Errors:      make(map[string]error),
	}
}

func (m *Mock) record(method string, args ...string) {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
}

// CallsFor returns all recorded calls for a method.
func (m *Mock) CallsFor(method string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var calls []MockCall
	for _, c := range m.CallLog {
		if c.Method == method {
			calls = append(calls, c)
		}
	}
	return calls
}

// SetError injects an error for a method name.
func (m *Mock) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[method] = err
}

func (m *Mock) Clone(ctx context.Context, url, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Clone", url, dest)
	if err := m.Errors["Clone"]; err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dest, ".git"), 0755); err != nil {
		return err
	}
	branches := append([]string(nil), m.Remote...)
	if len(branches) == 0 {
		branches = []string{m.DefaultName}
	}
	m.Local[dest] = branches
	return nil
}

func (m *Mock) Fetch(ctx context.Context, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Fetch", dest)
	return m.Errors["Fetch"]
}

func (m *Mock) DefaultBranch(ctx context.Context, dest string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DefaultBranch", dest)
	if err := m.Errors["DefaultBranch"]; err != nil {
		return "", err
	}
	return m.DefaultName, nil
}

func (m *Mock) LocalBranches(ctx context.Context, dest string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("LocalBranches", dest)
	if err := m.Errors["LocalBranches"]; err != nil {
		return nil, err
	}
	return append([]string(nil), m.Local[dest]...), nil
}

func (m *Mock) RemoteBranches(ctx context.Context, dest string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemoteBranches", dest)
	if err := m.Errors["RemoteBranches"]; err != nil {
		return nil, err
	}
	return append([]string(nil), m.Remote...), nil
}

func (m *Mock) CreateBranch(ctx context.Context, dest, name, startPoint string, trackRemote bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateBranch", dest, name, startPoint, fmt.Sprintf("track=%t", trackRemote))
	if err := m.Errors["CreateBranch"]; err != nil {
		return err
	}

	m.Local[dest] = append(m.Local[dest], name)
	if trackRemote {
		if m.Tracked[dest] == nil {
			m.Tracked[dest] = make(map[string]string)
		}
		m.Tracked[dest][name] = "origin/" + name
	}
	return nil
}

func (m *Mock) Push(ctx context.Context, dest, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("Push", dest, name)
	if err := m.Errors["Push"]; err != nil {
		return err
	}
	m.Pushed[dest] = append(m.Pushed[dest], name)
	m.Remote = append(m.Remote, name)
	return nil
}

// AddWorktree lays out the same structure real git produces: a working
// directory with a .git file holding an absolute gitdir pointer, and a
// mirror-side worktrees/<name>/gitdir backref, also absolute.
func (m *Mock) AddWorktree(ctx context.Context, dest, path, branch string, createBranch bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AddWorktree", dest, path, branch, fmt.Sprintf("create=%t", createBranch))
	if err := m.Errors["AddWorktree"]; err != nil {
		return err
	}

	if createBranch {
		m.Local[dest] = append(m.Local[dest], branch)
	}

	name := filepath.Base(path)
	adminDir := filepath.Join(dest, ".git", "worktrees", name)
	if err := os.MkdirAll(adminDir, 0755); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	gitFile := fmt.Sprintf("gitdir: %s\n", adminDir)
	if err := os.WriteFile(filepath.Join(path, ".git"), []byte(gitFile), 0644); err != nil {
		return err
	}
	backref := fmt.Sprintf("%s\n", filepath.Join(path, ".git"))
	if err := os.WriteFile(filepath.Join(adminDir, "gitdir"), []byte(backref), 0644); err != nil {
		return err
	}

	if m.Worktrees[dest] == nil {
		m.Worktrees[dest] = make(map[string]string)
	}
	m.Worktrees[dest][path] = branch
	return nil
}

func (m *Mock) RemoveWorktree(ctx context.Context, dest, path string, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemoveWorktree", dest, path, fmt.Sprintf("force=%t", force))
	if err := m.Errors["RemoveWorktree"]; err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return err
	}
	name := filepath.Base(path)
	if err := os.RemoveAll(filepath.Join(dest, ".git", "worktrees", name)); err != nil {
		return err
	}
	delete(m.Worktrees[dest], path)
	return nil
}

func (m *Mock) PruneWorktrees(ctx context.Context, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("PruneWorktrees", dest)
	return m.Errors["PruneWorktrees"]
}

func (m *Mock) ListWorktrees(ctx context.Context, dest string) ([]WorktreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListWorktrees", dest)
	if err := m.Errors["ListWorktrees"]; err != nil {
		return nil, err
	}

	entries := []WorktreeEntry{{Path: dest, Branch: m.DefaultName}}
	for path, branch := range m.Worktrees[dest] {
		entries = append(entries, WorktreeEntry{Path: path, Branch: branch})
	}
	return entries, nil
}

func (m *Mock) CurrentBranch(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CurrentBranch", path)
	if err := m.Errors["CurrentBranch"]; err != nil {
		return "", err
	}

	for _, wts := range m.Worktrees {
		if branch, ok := wts[path]; ok {
			return branch, nil
		}
	}
	return "", nil
}

var _ Client = (*Mock)(nil)
