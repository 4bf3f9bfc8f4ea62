package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toyinlola/commitgroup/internal/config"
	"github.com/toyinlola/commitgroup/pipeline"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <run-dir>",
	Short: "Regenerate commit messages for an interrupted run",
	Long: `resume re-reads the patch files already written under <run-dir>'s
cluster_<k> directories and requests a commit message for each,
rewriting commits.json. It does not re-read the original diff or
re-embed anything, so it only helps when a prior run crashed or lost
its network connection after writing patches but before every cluster
got a message.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runDir := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	appLogger.Info("resuming run", "run_dir", runDir)

	manifest, err := pipeline.Resume(cmd.Context(), runDir, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}

	fmt.Printf("wrote %d commit group(s) to %s\n", len(*manifest), runDir)
	return nil
}
