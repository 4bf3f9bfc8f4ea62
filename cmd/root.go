// Package cmd implements the commitgroup CLI commands using Cobra.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/toyinlola/commitgroup/internal/logging"
)

var (
	cfgFile   string
	verbosity int

	// appLogger is the process-wide logger, installed by PersistentPreRunE
	// before any subcommand runs.
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "commitgroup",
	Short: "Split a diff into semantically grouped, reviewable commits",
	Long: `commitgroup reads a unified diff, chunks every hunk along syntax
boundaries, embeds and clusters the chunks by semantic similarity, and
writes one directory of replayable per-intent patch groups plus a
commits.json manifest naming a generated commit message for each.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		appLogger = logging.Setup(verbosity)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default: .commitgroup.yml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")
}
