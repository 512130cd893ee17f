// Package git provides a narrow client for the source-control
// operations arbor-ctl needs: mirror clone/fetch, branch queries and
// creation, and worktree add/remove/list. All operations shell out to
// the git binary; orchestration logic depends only on the Client
// interface so it can be tested against the mock.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

// WorktreeEntry describes one worktree reported by the repository.
type WorktreeEntry struct {
	// Path is the absolute path of the worktree's working directory.
	Path string

	// Branch is the short branch name checked out in the worktree,
	// empty when the worktree is detached.
	Branch string

	// Detached reports a worktree without a named branch.
	Detached bool
}

// Client is the source-control primitive consumed by the managers.
type Client interface {
	// Clone clones url into dest, fetching all branches.
	Clone(ctx context.Context, url, dest string) error

	// Fetch updates all remote refs in the repository at dest.
	Fetch(ctx context.Context, dest string) error

	// DefaultBranch returns the remote's default branch for dest.
	DefaultBranch(ctx context.Context, dest string) (string, error)

	// LocalBranches lists short local branch names in dest.
	LocalBranches(ctx context.Context, dest string) ([]string, error)

	// RemoteBranches lists short branch names on the origin remote.
	RemoteBranches(ctx context.Context, dest string) ([]string, error)

	// CreateBranch creates a local branch at startPoint. When
	// trackRemote is true the branch is set up to track origin/<name>.
	CreateBranch(ctx context.Context, dest, name, startPoint string, trackRemote bool) error

	// Push pushes a branch to origin with upstream tracking.
	Push(ctx context.Context, dest, name string) error

	// AddWorktree creates a worktree at path checked out on branch.
	// When createBranch is true the branch is created by the add.
	AddWorktree(ctx context.Context, dest, path, branch string, createBranch bool) error

	// RemoveWorktree removes the worktree at path.
	RemoveWorktree(ctx context.Context, dest, path string, force bool) error

	// PruneWorktrees drops stale worktree bookkeeping in dest.
	PruneWorktrees(ctx context.Context, dest string) error

	// ListWorktrees reports the worktrees attached to dest.
	ListWorktrees(ctx context.Context, dest string) ([]WorktreeEntry, error)

	// CurrentBranch returns the branch checked out at path, or an
	// empty string for a detached HEAD.
	CurrentBranch(ctx context.Context, path string) (string, error)
}

// CLI implements Client by shelling out to the git binary.
type CLI struct {
	exec system.CommandExecutor
}

// NewCLI creates a git client using the given executor. A nil executor
// uses the default OS executor.
func NewCLI(exec system.CommandExecutor) *CLI {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &CLI{exec: exec}
}

func (g *CLI) run(ctx context.Context, dir string, args ...string) (string, error) {
	logging.Debug("running git", "dir", dir, "args", strings.Join(args, " "))
	out, err := g.exec.Execute(ctx, dir, "git", args...)
	if err != nil {
		return string(out), errors.GitError(args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

func (g *CLI) Clone(ctx context.Context, url, dest string) error {
	_, err := g.run(ctx, "", "clone", url, dest)
	return err
}

func (g *CLI) Fetch(ctx context.Context, dest string) error {
	_, err := g.run(ctx, dest, "fetch", "--all", "--tags", "--prune")
	return err
}

func (g *CLI) DefaultBranch(ctx context.Context, dest string) (string, error) {
	out, err := g.run(ctx, dest, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		// Output is like "refs/remotes/origin/main".
		ref := strings.TrimSpace(out)
		if idx := strings.LastIndex(ref, "/"); idx >= 0 {
			return ref[idx+1:], nil
		}
	}

	// origin/HEAD is not always set; fall back to well-known names.
	branches, err := g.RemoteBranches(ctx, dest)
	if err == nil {
		for _, candidate := range []string{"main", "master"} {
			for _, b := range branches {
				if b == candidate {
					return candidate, nil
				}
			}
		}
	}

	return "main", nil
}

func (g *CLI) LocalBranches(ctx context.Context, dest string) ([]string, error) {
	out, err := g.run(ctx, dest, "for-each-ref", "--format=%(refname:short)", "refs/heads")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (g *CLI) RemoteBranches(ctx context.Context, dest string) ([]string, error) {
	out, err := g.run(ctx, dest, "ls-remote", "--heads", "origin")
	if err != nil {
		return nil, err
	}

	var branches []string
	for _, line := range splitLines(out) {
		// Format: <hash>\trefs/heads/<branch>
		parts := strings.Split(line, "\t")
		if len(parts) != 2 {
			continue
		}
		if ref, ok := strings.CutPrefix(parts[1], "refs/heads/"); ok {
			branches = append(branches, ref)
		}
	}
	return branches, nil
}

func (g *CLI) CreateBranch(ctx context.Context, dest, name, startPoint string, trackRemote bool) error {
	args := []string{"branch"}
	if trackRemote {
		args = append(args, "--track")
	}
	args = append(args, name)
	if startPoint != "" {
		args = append(args, startPoint)
	}
	_, err := g.run(ctx, dest, args...)
	return err
}

func (g *CLI) Push(ctx context.Context, dest, name string) error {
	_, err := g.run(ctx, dest, "push", "-u", "origin", name)
	return err
}

func (g *CLI) AddWorktree(ctx context.Context, dest, path, branch string, createBranch bool) error {
	args := []string{"worktree", "add"}
	if createBranch {
		args = append(args, "-b", branch, path)
	} else {
		args = append(args, path, branch)
	}
	_, err := g.run(ctx, dest, args...)
	return err
}

func (g *CLI) RemoveWorktree(ctx context.Context, dest, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := g.run(ctx, dest, args...)
	return err
}

func (g *CLI) PruneWorktrees(ctx context.Context, dest string) error {
	_, err := g.run(ctx, dest, "worktree", "prune")
	return err
}

func (g *CLI) ListWorktrees(ctx context.Context, dest string) ([]WorktreeEntry, error) {
	out, err := g.run(ctx, dest, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	return parseWorktreeList(out), nil
}

func (g *CLI) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := g.run(ctx, path, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// parseWorktreeList parses `git worktree list --porcelain` output.
func parseWorktreeList(out string) []WorktreeEntry {
	var entries []WorktreeEntry
	var current *WorktreeEntry

	flush := func() {
		if current != nil {
			entries = append(entries, *current)
			current = nil
		}
	}

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			flush()
			current = &WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case strings.HasPrefix(line, "branch ") && current != nil:
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached" && current != nil:
			current.Detached = true
		}
	}
	flush()

	return entries
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

var _ Client = (*CLI)(nil)

// Describe renders a worktree entry for drift reports.
func (w WorktreeEntry) Describe() string {
	if w.Detached {
		return fmt.Sprintf("%s (detached)", w.Path)
	}
	return fmt.Sprintf("%s (%s)", w.Path, w.Branch)
}
