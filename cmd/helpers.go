package cmd

import (
	"github.com/arbor-tools/arbor-ctl/internal/backend"
	"github.com/arbor-tools/arbor-ctl/internal/config"
	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/spec"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
	"github.com/arbor-tools/arbor-ctl/internal/workspace"
)

// newOrchestrator wires the full pipeline from configuration.
// This is a helper to reduce repetition in commands.
func newOrchestrator() (*workspace.Orchestrator, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.ConfigError("failed to load config", err)
	}

	paths := cfg.ResolvePaths()
	fs := system.DefaultFS()
	exec := system.DefaultExecutor()

	st := store.New(paths.MetadataPath, paths.LocksDir, fs)
	g := git.NewCLI(exec)
	be := backend.NewCLI("", exec)

	return workspace.New(cfg, paths, st, g, be, fs), nil
}

// parseSpec parses a source argument with the --backend override.
func parseSpec(arg, backendFlag string) (*spec.Spec, error) {
	return spec.Parse(arg, backendFlag)
}

// requireWorktreeSpec parses a source argument and rejects direct-mode
// paths for commands that only operate on managed repositories.
func requireWorktreeSpec(arg string) (*spec.Spec, error) {
	sp, err := spec.Parse(arg, "")
	if err != nil {
		return nil, err
	}
	if sp.Mode != spec.ModeWorktree {
		return nil, errors.ValidationError("this command needs an owner/repo source, got a path")
	}
	return sp, nil
}
