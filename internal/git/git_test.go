package git

import (
	"context"
	"fmt"
	"testing"

	"github.com/arbor-tools/arbor-ctl/internal/system"
)

func TestParseWorktreeList(t *testing.T) {
	out := `worktree /home/user/.cache/arbor/repos/acme/widgets
HEAD 1234567890abcdef1234567890abcdef12345678
branch refs/heads/main

worktree /home/user/.cache/arbor/repos/acme/widgets/.worktrees/feature-x
HEAD abcdef1234567890abcdef1234567890abcdef12
branch refs/heads/feature/x

worktree /home/user/.cache/arbor/repos/acme/widgets/.worktrees/pinned
HEAD abcdef1234567890abcdef1234567890abcdef12
detached
`

	entries := parseWorktreeList(out)
	if len(entries) != 3 {
		t.Fatalf("parsed %d entries, want 3", len(entries))
	}

	if entries[0].Branch != "main" {
		t.Errorf("entries[0].Branch = %q, want main", entries[0].Branch)
	}
	if entries[1].Branch != "feature/x" {
		t.Errorf("entries[1].Branch = %q, want feature/x", entries[1].Branch)
	}
	if entries[1].Path != "/home/user/.cache/arbor/repos/acme/widgets/.worktrees/feature-x" {
		t.Errorf("entries[1].Path = %q", entries[1].Path)
	}
	if !entries[2].Detached {
		t.Error("entries[2] should be detached")
	}
}

func TestCLI_RemoteBranches_ParsesLsRemote(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("ls-remote --heads origin", []byte(
		"1111111111111111111111111111111111111111\trefs/heads/main\n"+
			"2222222222222222222222222222222222222222\trefs/heads/feature/x\n"), nil)

	cli := NewCLI(exec)
	branches, err := cli.RemoteBranches(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("RemoteBranches() error = %v", err)
	}

	want := []string{"main", "feature/x"}
	if len(branches) != len(want) {
		t.Fatalf("branches = %v, want %v", branches, want)
	}
	for i := range want {
		if branches[i] != want[i] {
			t.Errorf("branches[%d] = %q, want %q", i, branches[i], want[i])
		}
	}
}

func TestCLI_DefaultBranch_SymbolicRef(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("symbolic-ref refs/remotes/origin/HEAD", []byte("refs/remotes/origin/trunk\n"), nil)

	cli := NewCLI(exec)
	branch, err := cli.DefaultBranch(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}
	if branch != "trunk" {
		t.Errorf("DefaultBranch() = %q, want trunk", branch)
	}
}

func TestCLI_DefaultBranch_FallsBackToMaster(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("symbolic-ref", nil, fmt.Errorf("exit status 1"))
	exec.AddResponse("ls-remote --heads origin", []byte(
		"1111111111111111111111111111111111111111\trefs/heads/master\n"+
			"2222222222222222222222222222222222222222\trefs/heads/develop\n"), nil)

	cli := NewCLI(exec)
	branch, err := cli.DefaultBranch(context.Background(), "/repo")
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}
	if branch != "master" {
		t.Errorf("DefaultBranch() = %q, want master", branch)
	}
}

func TestCLI_AddWorktree_Args(t *testing.T) {
	exec := system.NewMockExecutor()
	cli := NewCLI(exec)

	if err := cli.AddWorktree(context.Background(), "/repo", "/repo/.worktrees/new", "new", true); err != nil {
		t.Fatalf("AddWorktree() error = %v", err)
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	want := []string{"worktree", "add", "-b", "new", "/repo/.worktrees/new"}
	if len(cmd.Args) != len(want) {
		t.Fatalf("args = %v, want %v", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, cmd.Args[i], want[i])
		}
	}
	if cmd.Dir != "/repo" {
		t.Errorf("dir = %q, want /repo", cmd.Dir)
	}
}

func TestCLI_CurrentBranch_TrimsOutput(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("branch --show-current", []byte("feature/x\n"), nil)

	cli := NewCLI(exec)
	branch, err := cli.CurrentBranch(context.Background(), "/repo/.worktrees/feature-x")
	if err != nil {
		t.Fatalf("CurrentBranch() error = %v", err)
	}
	if branch != "feature/x" {
		t.Errorf("CurrentBranch() = %q, want feature/x", branch)
	}
}
