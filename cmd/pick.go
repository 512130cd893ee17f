package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbor-tools/arbor-ctl/internal/logging"
	"github.com/arbor-tools/arbor-ctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive checkout picker",
	Long: `Opens an interactive TUI for selecting and connecting to checkouts.

Use arrow keys or j/k to navigate, / to filter, Enter to connect.

Actions:
  Enter  - Attach to the selected environment
  n      - Show instructions for creating a new checkout
  d      - Show instructions for removing the selected environment
  q/Esc  - Quit`,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	logging.Debug("picker mode started")

	rows, err := orch.Status(ctx)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		logInfo("No checkouts found. Create one with: arbor-ctl up owner/repo")
		return nil
	}

	result, err := tui.RunPicker(rows)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action)

	switch result.Action {
	case tui.ActionAttach:
		if result.Row != nil {
			if result.Row.EnvID == "" {
				c := result.Row.Checkout
				logInfo("No environment for %s/%s@%s. Start one with: arbor-ctl up %s/%s@%s",
					c.Owner, c.Repo, c.Branch, c.Owner, c.Repo, c.Branch)
				return nil
			}
			return orch.Attach(ctx, result.Row.EnvID, "")
		}

	case tui.ActionNew:
		fmt.Println("\nTo create a new checkout, run:")
		fmt.Println("  arbor-ctl up owner/repo@branch")

	case tui.ActionDown:
		if result.Row != nil && result.Row.EnvID != "" {
			fmt.Printf("\nTo remove environment '%s', run:\n", result.Row.EnvID)
			fmt.Printf("  arbor-ctl down %s\n", result.Row.EnvID)
		}

	case tui.ActionQuit:
		// Just exit cleanly
	}

	return nil
}
