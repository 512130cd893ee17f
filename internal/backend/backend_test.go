package backend

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

func TestCLI_UpArgs(t *testing.T) {
	exec := system.NewMockExecutor()
	b := NewCLI("", exec)

	err := b.Up(context.Background(), UpOptions{
		ID:            "acme-widgets-main",
		Source:        "/cache/repos/acme/widgets",
		FallbackImage: "mcr.microsoft.com/devcontainers/base:ubuntu",
	})
	if err != nil {
		t.Fatalf("Up() error = %v", err)
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	if cmd.Name != "devpod" {
		t.Errorf("command = %q, want devpod", cmd.Name)
	}
	want := []string{
		"up", "/cache/repos/acme/widgets", "--id", "acme-widgets-main",
		"--fallback-image", "mcr.microsoft.com/devcontainers/base:ubuntu",
	}
	if len(cmd.Args) != len(want) {
		t.Fatalf("args = %v, want %v", cmd.Args, want)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("args[%d] = %q, want %q", i, cmd.Args[i], want[i])
		}
	}
}

func TestCLI_ListParsesJSON(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("list --output json", []byte(
		`[{"id":"acme-widgets-main","source":"/cache/repos/acme/widgets","status":"Running"}]`), nil)
	b := NewCLI("", exec)

	workspaces, err := b.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].ID != "acme-widgets-main" {
		t.Errorf("List() = %+v", workspaces)
	}
	if workspaces[0].Status != "Running" {
		t.Errorf("Status = %q", workspaces[0].Status)
	}
}

func TestCLI_FailureCarriesOutput(t *testing.T) {
	exec := system.NewMockExecutor()
	exec.AddResponse("stop", []byte("workspace not found"), goerrors.New("exit status 1"))
	b := NewCLI("", exec)

	err := b.Stop(context.Background(), "nope")
	if !goerrors.Is(err, errors.ErrBackendFailure) {
		t.Fatalf("Stop() error = %v, want backend failure", err)
	}
	if errors.GetExitCode(err) != errors.ExitBackendFailure {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitBackendFailure)
	}
}

func TestCLI_SSHInteractiveCommand(t *testing.T) {
	exec := system.NewMockExecutor()
	b := NewCLI("", exec)

	if err := b.SSH(context.Background(), "acme-widgets-main", "cd /home/vscode/work && exec $SHELL"); err != nil {
		t.Fatalf("SSH() error = %v", err)
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("no command recorded")
	}
	if cmd.Args[0] != "ssh" || cmd.Args[1] != "acme-widgets-main" {
		t.Errorf("args = %v", cmd.Args)
	}
	if cmd.Args[2] != "--command" {
		t.Errorf("args[2] = %q, want --command", cmd.Args[2])
	}
}

func TestMock_TracksLifecycle(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	if err := m.Up(ctx, UpOptions{ID: "env", Source: "/src"}); err != nil {
		t.Fatal(err)
	}
	if m.Workspaces["env"].Status != "Running" {
		t.Error("Up did not mark workspace running")
	}

	if err := m.Stop(ctx, "env"); err != nil {
		t.Fatal(err)
	}
	if m.Workspaces["env"].Status != "Stopped" {
		t.Error("Stop did not mark workspace stopped")
	}

	if err := m.Delete(ctx, "env", false); err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Workspaces["env"]; ok {
		t.Error("Delete did not remove workspace")
	}
}

func TestCLI_SSHReplacesProcess(t *testing.T) {
	exec := system.NewMockExecutor()
	// Only a failure to exec should surface; an interactive-child
	// failure must not, because attach never runs through one.
	exec.InteractiveErr = goerrors.New("child failed")
	b := NewCLI("", exec)

	if err := b.SSH(context.Background(), "acme-widgets-main", ""); err != nil {
		t.Fatalf("SSH() error = %v", err)
	}

	exec.ReplaceErr = goerrors.New("binary not found")
	err := b.SSH(context.Background(), "acme-widgets-main", "")
	if !goerrors.Is(err, errors.ErrBackendFailure) {
		t.Fatalf("SSH() error = %v, want backend failure", err)
	}
}
