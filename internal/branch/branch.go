// Package branch decides how a requested branch name maps onto the
// branches a mirror actually has. The policy is local first, then
// track the remote branch, then create a new branch from the default
// tip. Resolution never produces a detached HEAD.
package branch

import (
	"context"
	"slices"

	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
)

// Resolution describes what Resolve decided for a branch name.
type Resolution struct {
	// Name is the branch the checkout will be on.
	Name string

	// Created is true when the branch did not exist locally and had
	// to be created, either tracking a remote branch or from the
	// default tip.
	Created bool

	// NeedsPush is true when the branch was created from the default
	// tip and has no upstream yet. The branch is never pushed
	// implicitly; the caller surfaces this to the user.
	NeedsPush bool
}

// Resolver maps branch names onto mirror branches.
type Resolver struct {
	git git.Client
}

// NewResolver returns a resolver using the given git client.
func NewResolver(g git.Client) *Resolver {
	return &Resolver{git: g}
}

// Resolve ensures a local branch named name exists in the mirror at
// dest and reports how it came to be. defaultBranch is the remote's
// default, used as the start point for brand new branches.
//
// The branch is only created in the mirror's ref store here; checking
// it out into a worktree is the caller's job.
func (r *Resolver) Resolve(ctx context.Context, dest, name, defaultBranch string) (*Resolution, error) {
	local, err := r.git.LocalBranches(ctx, dest)
	if err != nil {
		return nil, err
	}
	if slices.Contains(local, name) {
		logging.Debug("branch exists locally", "branch", name)
		return &Resolution{Name: name}, nil
	}

	remote, err := r.git.RemoteBranches(ctx, dest)
	if err != nil {
		// Offline. Remote branches are unknowable, so fall through
		// to creating from the local default tip.
		logging.Warn("cannot list remote branches, assuming branch is new", "error", err)
		remote = nil
	}
	if slices.Contains(remote, name) {
		logging.Debug("branch exists on remote, creating tracking branch", "branch", name)
		if err := r.git.CreateBranch(ctx, dest, name, "origin/"+name, true); err != nil {
			return nil, err
		}
		return &Resolution{Name: name, Created: true}, nil
	}

	logging.Info("creating new branch from default tip", "branch", name, "from", defaultBranch)
	if err := r.git.CreateBranch(ctx, dest, name, defaultBranch, false); err != nil {
		return nil, err
	}
	return &Resolution{Name: name, Created: true, NeedsPush: true}, nil
}
