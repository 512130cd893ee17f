package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var downCmd = &cobra.Command{
	Use:   "down <env-id>",
	Short: "Stop and delete an environment",
	Long: `down stops and deletes the environment. The checkout and any
uncommitted work in it stay on disk unless --rm-checkout is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runDown,
}

var downRmCheckout bool

func init() {
	downCmd.Flags().BoolVar(&downRmCheckout, "rm-checkout", false, "Also remove the checkout directory")
	rootCmd.AddCommand(downCmd)
}

func runDown(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	if err := orch.Down(context.Background(), args[0], downRmCheckout); err != nil {
		return err
	}

	logSuccess("Environment %s removed", args[0])
	if downRmCheckout {
		logInfo("  Checkout removed as well")
	}
	return nil
}
