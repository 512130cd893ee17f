package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arbor-tools/arbor-ctl/internal/config"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove checkouts that have not been used recently",
	Long: `prune removes checkouts whose last use is older than the cutoff
and that have no environment bound. Checkouts with a running
environment are never pruned.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

var pruneOlderThan time.Duration

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0,
		fmt.Sprintf("Age cutoff (default %dd from config)", config.DefaultPruneAfterDays))
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	cutoff := pruneOlderThan
	if cutoff == 0 {
		cutoff = cfg.Worktree.Cleanup.PruneAfter()
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	removed, err := orch.PruneStale(context.Background(), cutoff)
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		logInfo("Nothing to prune")
		return nil
	}
	for _, rec := range removed {
		fmt.Printf("  removed %s/%s@%s\n", rec.Owner, rec.Repo, rec.Branch)
	}
	logSuccess("Pruned %d checkout(s)", len(removed))
	return nil
}
