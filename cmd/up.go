package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/spec"
	"github.com/arbor-tools/arbor-ctl/internal/workspace"
)

var upCmd = &cobra.Command{
	Use:   "up <owner/repo[@branch] | path>",
	Short: "Create or start an environment for a branch",
	Args:  cobra.ExactArgs(1),
	RunE:  runUp,
}

var (
	upBranch        string
	upBackend       string
	upIDE           string
	upFallbackImage string
	upShare         bool
	upNoPush        bool
	upNoAttach      bool
)

func init() {
	upCmd.Flags().StringVarP(&upBranch, "branch", "b", "", "Branch to check out (defaults to the remote default branch)")
	upCmd.Flags().StringVar(&upBackend, "backend", "", "Force backend mode: worktree or direct")
	upCmd.Flags().StringVar(&upIDE, "ide", "", "Open the environment in an IDE after creation")
	upCmd.Flags().StringVar(&upFallbackImage, "fallback-image", "", "Image for repositories without a devcontainer")
	upCmd.Flags().BoolVar(&upShare, "share", false, "Share one environment across all branches of the repository")
	upCmd.Flags().BoolVar(&upNoPush, "no-push", false, "Keep a newly created branch local instead of pushing it")
	upCmd.Flags().BoolVar(&upNoAttach, "no-attach", false, "Don't open a shell after the environment is up")
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	sp, err := parseSpec(args[0], upBackend)
	if err != nil {
		return err
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	logging.Debug("starting environment", "source", args[0], "branch", upBranch)
	logInfo("Bringing up %s...", args[0])

	result, err := orch.Up(ctx, workspace.UpRequest{
		Spec:          sp,
		Branch:        upBranch,
		IDE:           upIDE,
		FallbackImage: upFallbackImage,
		Share:         upShare,
		NoPush:        upNoPush,
	})
	if err != nil {
		return err
	}

	logSuccess("Environment %s is running", result.EnvID)
	if result.Mode == spec.ModeWorktree {
		fmt.Printf("  Branch:   %s\n", result.Checkout.Branch)
		fmt.Printf("  Checkout: %s\n", result.Checkout.Path)
	}
	fmt.Printf("  Connect:  arbor-ctl ssh %s\n", result.EnvID)
	if result.NeedsPush {
		logWarning("  Branch %s exists only locally, push it with: git push -u origin %s",
			result.Checkout.Branch, result.Checkout.Branch)
	}

	if upNoAttach || result.Mode == spec.ModeDirect {
		return nil
	}
	return orch.Attach(ctx, result.EnvID, "")
}
