package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var sshCmd = &cobra.Command{
	Use:   "ssh <env-id>",
	Short: "Open a shell in a running environment",
	Args:  cobra.ExactArgs(1),
	RunE:  runSSH,
}

var sshCommand string

func init() {
	sshCmd.Flags().StringVarP(&sshCommand, "command", "c", "", "Run a command instead of an interactive shell")
	rootCmd.AddCommand(sshCmd)
}

func runSSH(cmd *cobra.Command, args []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return err
	}
	return orch.Attach(context.Background(), args[0], sshCommand)
}
