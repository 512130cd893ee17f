// Package backend drives the external environment CLI that builds and
// runs containerized workspaces. The CLI is treated as opaque: this
// package shells out to it and translates failures, it never inspects
// container state itself.
package backend

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/system"
)

// DefaultCommand is the environment CLI binary.
const DefaultCommand = "devpod"

// UpOptions configures environment creation.
type UpOptions struct {
	// ID is the deterministic environment identifier.
	ID string
	// Source is the directory handed to the backend. For managed
	// checkouts this is the mirror root, never the checkout alone.
	Source string
	// FallbackImage is used when the source has no devcontainer.
	FallbackImage string
	// IDE opens the environment in an IDE after creation.
	IDE string
}

// Workspace is one environment known to the backend.
type Workspace struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Status string `json:"status"`
}

// Backend is the consumed execution interface.
type Backend interface {
	// Up creates or starts the environment. Output streams to the
	// user so image builds are visible.
	Up(ctx context.Context, opts UpOptions) error

	// Start brings an existing environment back up by id.
	Start(ctx context.Context, id string) error

	// Stop halts the environment without removing it.
	Stop(ctx context.Context, id string) error

	// Delete removes the environment entirely.
	Delete(ctx context.Context, id string, force bool) error

	// List returns all environments the backend knows about.
	List(ctx context.Context) ([]Workspace, error)

	// SSH attaches an interactive shell running command inside the
	// environment. The CLI implementation replaces the current
	// process, so it only returns on failure to start.
	SSH(ctx context.Context, id, command string) error

	// RunCommand executes command inside the environment and
	// captures its output.
	RunCommand(ctx context.Context, id, command string) ([]byte, error)
}

// CLI is the subprocess-backed Backend.
type CLI struct {
	command string
	exec    system.CommandExecutor
}

// NewCLI returns a Backend shelling out to command, or the default
// binary when command is empty.
func NewCLI(command string, exec system.CommandExecutor) *CLI {
	if command == "" {
		command = DefaultCommand
	}
	return &CLI{command: command, exec: exec}
}

func (b *CLI) Up(ctx context.Context, opts UpOptions) error {
	args := []string{"up", opts.Source, "--id", opts.ID}
	if opts.FallbackImage != "" {
		args = append(args, "--fallback-image", opts.FallbackImage)
	}
	if opts.IDE != "" {
		args = append(args, "--ide", opts.IDE)
	}

	logging.Debug("starting environment", "command", b.command, "args", strings.Join(args, " "))
	if err := b.exec.ExecuteInteractive(ctx, b.command, args...); err != nil {
		return errors.BackendFailure("up", "", err)
	}
	return nil
}

func (b *CLI) Start(ctx context.Context, id string) error {
	if err := b.exec.ExecuteInteractive(ctx, b.command, "up", id); err != nil {
		return errors.BackendFailure("start", "", err)
	}
	return nil
}

func (b *CLI) Stop(ctx context.Context, id string) error {
	out, err := b.exec.Execute(ctx, "", b.command, "stop", id)
	if err != nil {
		return errors.BackendFailure("stop", string(out), err)
	}
	return nil
}

func (b *CLI) Delete(ctx context.Context, id string, force bool) error {
	args := []string{"delete", id}
	if force {
		args = append(args, "--force")
	}
	out, err := b.exec.Execute(ctx, "", b.command, args...)
	if err != nil {
		return errors.BackendFailure("delete", string(out), err)
	}
	return nil
}

func (b *CLI) List(ctx context.Context) ([]Workspace, error) {
	out, err := b.exec.Execute(ctx, "", b.command, "list", "--output", "json")
	if err != nil {
		return nil, errors.BackendFailure("list", string(out), err)
	}

	var workspaces []Workspace
	if err := json.Unmarshal(out, &workspaces); err != nil {
		return nil, errors.BackendFailure("list", string(out), err)
	}
	return workspaces, nil
}

func (b *CLI) SSH(ctx context.Context, id, command string) error {
	args := []string{"ssh", id}
	if command != "" {
		args = append(args, "--command", command)
	}
	// Hand the terminal straight to the ssh client instead of
	// proxying it through a child process.
	if err := b.exec.ReplaceProcess(b.command, args...); err != nil {
		return errors.BackendFailure("ssh", "", err)
	}
	return nil
}

func (b *CLI) RunCommand(ctx context.Context, id, command string) ([]byte, error) {
	out, err := b.exec.Execute(ctx, "", b.command, "ssh", id, "--command", command)
	if err != nil {
		return out, errors.BackendFailure("run", string(out), err)
	}
	return out, nil
}

var _ Backend = (*CLI)(nil)
