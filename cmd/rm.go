package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/arbor-tools/arbor-ctl/internal/errors"
)

var rmCmd = &cobra.Command{
	Use:   "rm <owner/repo@branch>",
	Short: "Remove a checkout",
	Args:  cobra.ExactArgs(1),
	RunE:  runRM,
}

var rmForce bool

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "Remove even while an environment is bound")
	rootCmd.AddCommand(rmCmd)
}

func runRM(cmd *cobra.Command, args []string) error {
	sp, err := requireWorktreeSpec(args[0])
	if err != nil {
		return err
	}
	if sp.Branch == "" {
		return errors.ValidationError("rm needs a branch, use owner/repo@branch")
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	if err := orch.Remove(context.Background(), sp, sp.Branch, rmForce); err != nil {
		return err
	}

	logSuccess("Checkout %s@%s removed", sp.RepoKey(), sp.Branch)
	return nil
}
