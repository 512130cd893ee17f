package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <owner/repo>",
	Short: "Refresh a repository's mirror now",
	Long: `fetch updates the mirror from its remote immediately, ignoring
the configured fetch interval.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	sp, err := requireWorktreeSpec(args[0])
	if err != nil {
		return err
	}

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	if err := orch.Fetch(context.Background(), sp); err != nil {
		return err
	}

	logSuccess("Mirror %s updated", sp.RepoKey())
	return nil
}
