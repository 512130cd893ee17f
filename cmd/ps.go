package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List checkouts and their environments",
	Args:  cobra.NoArgs,
	RunE:  runPS,
}

var psDrift bool

func init() {
	psCmd.Flags().BoolVar(&psDrift, "drift", false, "Also report disk/metadata mismatches")
	rootCmd.AddCommand(psCmd)
}

func runPS(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	orch, err := newOrchestrator()
	if err != nil {
		return err
	}

	rows, err := orch.Status(ctx)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		logInfo("No checkouts. Create one with: arbor-ctl up owner/repo")
		return nil
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Checkout.Key() < rows[j].Checkout.Key()
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tBRANCH\tENVIRONMENT\tSTATUS\tLAST USED")
	for _, row := range rows {
		c := row.Checkout
		envID := row.EnvID
		if envID == "" {
			envID = "-"
		}
		lastUsed := "-"
		if !c.LastUsed.IsZero() {
			lastUsed = c.LastUsed.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s/%s\t%s\t%s\t%s\t%s\n", c.Owner, c.Repo, c.Branch, envID, row.Status, lastUsed)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !psDrift {
		return nil
	}

	drift, err := orch.ListDrift(ctx)
	if err != nil {
		return err
	}
	for _, d := range drift {
		if d.Branch != "" {
			logWarning("drift (%s): %s [%s]", d.Kind, d.Path, d.Branch)
		} else {
			logWarning("drift (%s): %s", d.Kind, d.Path)
		}
	}
	if len(drift) == 0 {
		logInfo("No drift detected")
	}
	return nil
}
