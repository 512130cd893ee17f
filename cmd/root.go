package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/arbor-tools/arbor-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "arbor-ctl",
	Short: "Per-branch containerized development environments",
	Long: `arbor-ctl turns a repository branch into a running containerized
workspace. One shared mirror per repository backs any number of
per-branch checkouts, so switching branches never means recloning.

Each environment is built from the repository's devcontainer (or a
fallback image) and exposes the checkout at a fixed alias path.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, os.Stderr)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
