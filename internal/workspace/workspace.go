// Package workspace orchestrates the full request pipeline: mirror,
// branch, checkout, environment. Each stage is idempotent, so a
// request that failed partway can simply be retried.
package workspace

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/arbor-tools/arbor-ctl/internal/backend"
	"github.com/arbor-tools/arbor-ctl/internal/branch"
	"github.com/arbor-tools/arbor-ctl/internal/config"
	"github.com/arbor-tools/arbor-ctl/internal/errors"
	"github.com/arbor-tools/arbor-ctl/internal/git"
	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/mirror"
	"github.com/arbor-tools/arbor-ctl/internal/spec"
	"github.com/arbor-tools/arbor-ctl/internal/store"
	"github.com/arbor-tools/arbor-ctl/internal/system"
	"github.com/arbor-tools/arbor-ctl/internal/worktree"
)

// environmentIDBudget caps identifier length. The branch segment
// absorbs the truncation first, but the final identifier is clamped
// whatever the segment lengths are.
const environmentIDBudget = 50

// containerSourceRoot is where the backend mounts the source
// directory inside an environment.
const containerSourceRoot = "/workspaces"

// EnvironmentID builds the deterministic identifier for a checkout.
// Two repositories sharing a branch name never collide because owner
// and repo lead the identifier.
func EnvironmentID(owner, repo, branchName string) string {
	return clampID(owner + "-" + repo + "-" + worktree.Sanitize(branchName))
}

// SharedEnvironmentID is the identifier used in share mode, where all
// branches of a repository land in one environment.
func SharedEnvironmentID(owner, repo string) string {
	return clampID(owner + "-" + repo)
}

// clampID enforces the length budget and strips separators a cut can
// leave dangling, so identifiers stay valid hostname-ish tokens.
func clampID(id string) string {
	if len(id) > environmentIDBudget {
		id = id[:environmentIDBudget]
	}
	return strings.TrimRight(id, "-_.")
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cfg       *config.Config
	paths     *config.Paths
	store     *store.Store
	mirrors   *mirror.Manager
	branches  *branch.Resolver
	worktrees *worktree.Manager
	backend   backend.Backend
	git       git.Client
	fs        system.FileSystem
}

// New assembles an orchestrator from its collaborators.
func New(cfg *config.Config, paths *config.Paths, st *store.Store, g git.Client, be backend.Backend, fs system.FileSystem) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		paths:     paths,
		store:     st,
		mirrors:   mirror.NewManager(paths.ReposDir, cfg.Worktree.AutoFetch, cfg.Worktree.FetchInterval(), g, fs, st),
		branches:  branch.NewResolver(g),
		worktrees: worktree.NewManager(g, fs),
		backend:   be,
		git:       g,
		fs:        fs,
	}
}

// UpRequest describes one up invocation.
type UpRequest struct {
	Spec          *spec.Spec
	Branch        string
	IDE           string
	FallbackImage string
	Share         bool
	NoPush        bool
}

// UpResult reports what Up produced.
type UpResult struct {
	EnvID     string
	Mode      spec.Mode
	Checkout  *store.CheckoutRecord
	NeedsPush bool
}

// Up runs the full pipeline for a request. In direct mode the source
// path is handed to the backend untouched. In worktree mode the
// repository lock is held across the mirror and checkout mutations so
// two invocations for the same repository cannot race; starting the
// environment, which can take minutes, happens outside the lock.
func (o *Orchestrator) Up(ctx context.Context, req UpRequest) (*UpResult, error) {
	if req.Spec.Mode == spec.ModeDirect {
		return o.upDirect(ctx, req)
	}
	if !o.cfg.Worktree.Enabled {
		return nil, errors.ConfigError("worktree orchestration is disabled in the configuration (set worktree.enabled = true)", nil)
	}

	branchName := req.Branch
	if branchName == "" {
		branchName = req.Spec.Branch
	}

	var checkout *store.CheckoutRecord
	var mirrorRec *store.MirrorRecord
	var needsPush bool

	err := o.store.WithLock(req.Spec.RepoKey(), func() error {
		state, err := o.store.Load()
		if err != nil {
			var recoverErr error
			state, recoverErr = o.store.Recover()
			if recoverErr != nil {
				return err
			}
		}

		mirrorRec, err = o.mirrors.Ensure(ctx, state, req.Spec.Owner, req.Spec.Repo, req.Spec.Remote())
		if err != nil {
			return err
		}
		if branchName == "" {
			branchName = mirrorRec.DefaultName
		}

		res, err := o.branches.Resolve(ctx, mirrorRec.Path, branchName, mirrorRec.DefaultName)
		if err != nil {
			return err
		}
		if res.NeedsPush && !req.NoPush {
			if err := o.git.Push(ctx, mirrorRec.Path, branchName); err != nil {
				logging.Warn("could not push new branch, it stays local", "branch", branchName, "error", err)
			} else {
				res.NeedsPush = false
			}
		}
		needsPush = res.NeedsPush

		checkout, err = o.worktrees.Ensure(ctx, state, mirrorRec, branchName, res.NeedsPush)
		if err != nil {
			// Persist partial progress, a half-done checkout is
			// picked up on retry.
			if saveErr := o.store.CommitRepo(state, req.Spec.RepoKey()); saveErr != nil {
				logging.Warn("could not record partial state", "error", saveErr)
			}
			return err
		}

		return o.store.CommitRepo(state, req.Spec.RepoKey())
	})
	if err != nil {
		return nil, err
	}

	envID := EnvironmentID(req.Spec.Owner, req.Spec.Repo, branchName)
	if req.Share {
		envID = SharedEnvironmentID(req.Spec.Owner, req.Spec.Repo)
	}

	if err := o.backend.Up(ctx, backend.UpOptions{
		ID:            envID,
		Source:        mirrorRec.Path,
		FallbackImage: firstNonEmpty(req.FallbackImage, o.cfg.Worktree.FallbackImage),
		IDE:           req.IDE,
	}); err != nil {
		return nil, err
	}

	if err := o.setupAlias(ctx, envID, checkout); err != nil {
		logging.Warn("could not create alias path inside environment", "error", err)
	}

	err = o.store.Update(req.Spec.RepoKey(), func(state *store.PersistedState) error {
		if rec, ok := state.Checkouts[checkout.Key()]; ok {
			rec.EnvID = envID
			rec.LastUsed = time.Now().UTC()
			checkout = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if o.cfg.Worktree.Cleanup.AutoPrune {
		if removed, err := o.PruneStale(ctx, o.cfg.Worktree.Cleanup.PruneAfter()); err != nil {
			logging.Warn("automatic prune failed", "error", err)
		} else if len(removed) > 0 {
			logging.Info("pruned stale checkouts", "count", len(removed))
		}
	}

	return &UpResult{
		EnvID:     envID,
		Mode:      spec.ModeWorktree,
		Checkout:  checkout,
		NeedsPush: needsPush,
	}, nil
}

func (o *Orchestrator) upDirect(ctx context.Context, req UpRequest) (*UpResult, error) {
	envID := worktree.Sanitize(filepath.Base(req.Spec.Path))
	if err := o.backend.Up(ctx, backend.UpOptions{
		ID:            envID,
		Source:        req.Spec.Path,
		FallbackImage: firstNonEmpty(req.FallbackImage, o.cfg.Worktree.FallbackImage),
		IDE:           req.IDE,
	}); err != nil {
		return nil, err
	}
	return &UpResult{EnvID: envID, Mode: spec.ModeDirect}, nil
}

// containerCheckoutPath computes where the checkout appears inside
// the environment. The backend mounts the mirror root under the
// environment id, so the checkout sits at its worktrees-relative
// position below that.
func containerCheckoutPath(envID string, checkout *store.CheckoutRecord) string {
	return path.Join(containerSourceRoot, envID,
		worktree.WorktreesDirName, worktree.Sanitize(checkout.Branch))
}

// setupAlias points the fixed alias path at the checkout as seen from
// inside the environment. ln -sfn makes this idempotent, re-running
// replaces the link instead of failing.
func (o *Orchestrator) setupAlias(ctx context.Context, envID string, checkout *store.CheckoutRecord) error {
	target := containerCheckoutPath(envID, checkout)
	cmd := fmt.Sprintf("ln -sfn %s %s",
		shellquote.Join(target), shellquote.Join(o.cfg.Worktree.AliasPath))
	_, err := o.backend.RunCommand(ctx, envID, cmd)
	return err
}

// Attach opens an interactive session in the environment, restarting
// it first when the backend reports it stopped. The shell is started
// with cd into the alias so the symlinked path, not its resolved
// target, shows up in $PWD.
func (o *Orchestrator) Attach(ctx context.Context, envID, command string) error {
	if workspaces, err := o.backend.List(ctx); err == nil {
		for _, ws := range workspaces {
			if ws.ID == envID && strings.EqualFold(ws.Status, "Stopped") {
				logging.Info("environment is stopped, starting it", "env", envID)
				if err := o.backend.Start(ctx, envID); err != nil {
					return err
				}
			}
		}
	} else {
		logging.Debug("backend listing unavailable before attach", "error", err)
	}

	alias := shellquote.Join(o.cfg.Worktree.AliasPath)
	if command == "" {
		command = fmt.Sprintf("cd %s && exec $SHELL", alias)
	} else {
		command = fmt.Sprintf("cd %s && %s", alias, command)
	}
	return o.backend.SSH(ctx, envID, command)
}

// Down stops and deletes an environment. The checkout stays behind
// unless removeCheckout is set; deleting work is never the default.
func (o *Orchestrator) Down(ctx context.Context, envID string, removeCheckout bool) error {
	if err := o.backend.Stop(ctx, envID); err != nil {
		logging.Debug("stop before delete failed", "env", envID, "error", err)
	}
	if err := o.backend.Delete(ctx, envID, false); err != nil {
		return err
	}

	rec, repoKey := o.findCheckoutByEnv(envID)
	if rec == nil {
		return nil
	}

	return o.store.Update(repoKey, func(state *store.PersistedState) error {
		current, ok := state.Checkouts[rec.Key()]
		if !ok {
			return nil
		}
		current.EnvID = ""
		if removeCheckout {
			mirrorRec := state.Mirrors[current.MirrorKey()]
			if mirrorRec == nil {
				return errors.ValidationError("no mirror recorded for " + current.MirrorKey())
			}
			return o.worktrees.Remove(ctx, state, mirrorRec, current.Branch, true)
		}
		return nil
	})
}

// Remove deletes a checkout without touching its mirror. force
// overrides the busy check when an environment is still bound.
func (o *Orchestrator) Remove(ctx context.Context, sp *spec.Spec, branchName string, force bool) error {
	return o.store.Update(sp.RepoKey(), func(state *store.PersistedState) error {
		mirrorRec := state.Mirrors[sp.RepoKey()]
		if mirrorRec == nil {
			return errors.ValidationError("no mirror recorded for " + sp.RepoKey())
		}
		return o.worktrees.Remove(ctx, state, mirrorRec, branchName, force)
	})
}

// Fetch refreshes a repository's mirror regardless of the fetch
// interval.
func (o *Orchestrator) Fetch(ctx context.Context, sp *spec.Spec) error {
	return o.store.Update(sp.RepoKey(), func(state *store.PersistedState) error {
		rec := state.Mirrors[sp.RepoKey()]
		if rec == nil {
			return errors.ValidationError("no mirror recorded for " + sp.RepoKey())
		}
		if err := o.git.Fetch(ctx, rec.Path); err != nil {
			return errors.SourceUnavailable(rec.Remote, err)
		}
		rec.LastFetch = time.Now().UTC()
		if branchName, err := o.git.DefaultBranch(ctx, rec.Path); err == nil {
			rec.DefaultName = branchName
		}
		return nil
	})
}

// EnvironmentStatus is one row of the ps listing: a recorded checkout
// enriched with what the backend reports about its environment.
type EnvironmentStatus struct {
	Checkout *store.CheckoutRecord
	EnvID    string
	// Status is the backend's state string, or "-" when the
	// environment is not known to the backend (stale binding).
	Status string
}

// Status lists all recorded checkouts with their environment state.
func (o *Orchestrator) Status(ctx context.Context) ([]EnvironmentStatus, error) {
	state, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	known := make(map[string]string)
	if workspaces, err := o.backend.List(ctx); err == nil {
		for _, ws := range workspaces {
			known[ws.ID] = ws.Status
		}
	} else {
		logging.Debug("backend listing unavailable", "error", err)
	}

	var out []EnvironmentStatus
	for _, rec := range state.Checkouts {
		row := EnvironmentStatus{Checkout: rec, EnvID: rec.EnvID, Status: "-"}
		if rec.EnvID != "" {
			if status, ok := known[rec.EnvID]; ok {
				row.Status = status
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// PruneStale removes checkouts not used within olderThan that have no
// bound environment. It returns the removed records.
func (o *Orchestrator) PruneStale(ctx context.Context, olderThan time.Duration) ([]*store.CheckoutRecord, error) {
	state, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-olderThan)
	byRepo := make(map[string][]*store.CheckoutRecord)
	for _, rec := range state.Checkouts {
		if rec.EnvID != "" || rec.LastUsed.After(cutoff) {
			continue
		}
		byRepo[rec.MirrorKey()] = append(byRepo[rec.MirrorKey()], rec)
	}

	var removed []*store.CheckoutRecord
	for repoKey, recs := range byRepo {
		err := o.store.Update(repoKey, func(state *store.PersistedState) error {
			mirrorRec := state.Mirrors[repoKey]
			if mirrorRec == nil {
				return nil
			}
			for _, rec := range recs {
				current, ok := state.Checkouts[rec.Key()]
				if !ok || current.EnvID != "" || current.LastUsed.After(cutoff) {
					continue
				}
				if err := o.worktrees.Remove(ctx, state, mirrorRec, current.Branch, false); err != nil {
					logging.Warn("could not prune checkout", "path", current.Path, "error", err)
					continue
				}
				removed = append(removed, current)
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// ListDrift reconciles all recorded mirrors against disk.
func (o *Orchestrator) ListDrift(ctx context.Context) ([]worktree.Drift, error) {
	state, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	var all []worktree.Drift
	for _, mirrorRec := range state.Mirrors {
		_, drift, err := o.worktrees.List(ctx, state, mirrorRec)
		if err != nil {
			return nil, err
		}
		all = append(all, drift...)
	}
	return all, nil
}

func (o *Orchestrator) findCheckoutByEnv(envID string) (*store.CheckoutRecord, string) {
	state, err := o.store.Load()
	if err != nil {
		return nil, ""
	}
	for _, rec := range state.Checkouts {
		if rec.EnvID == envID {
			return rec, rec.MirrorKey()
		}
	}
	return nil, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
