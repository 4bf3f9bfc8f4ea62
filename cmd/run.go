package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/toyinlola/commitgroup/internal/config"
	"github.com/toyinlola/commitgroup/pipeline"
)

var (
	diffFile  string
	threshold float64
	single    bool
	visualize bool
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Read a diff and write grouped, reviewable commit patches",
	Long: `run chunks a unified diff along syntax boundaries, embeds and
clusters the chunks by semantic similarity, and writes one directory of
replayable patch groups plus a commits.json manifest naming a generated
commit message for each group.

Read a diff file directly:
  commitgroup run --diff ./path/to/file.diff

Read from stdin:
  cat change.diff | commitgroup run

Diff a directory against git HEAD:
  commitgroup run ./path/to/repo`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&diffFile, "diff", "", "path to a unified diff file to read")
	runCmd.Flags().Float64VarP(&threshold, "distance", "d", 0, "clustering distance threshold (default from config, 0.5 if unset)")
	runCmd.Flags().BoolVar(&single, "single", false, "fold every hunk into one commit group (mcommit's minimal mode)")
	runCmd.Flags().BoolVarP(&visualize, "interactive", "i", false, "also emit visualization.json")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var target string
	if len(args) > 0 {
		target = args[0]
	}
	if diffFile == "" && target == "" {
		appLogger.Debug("no --diff or target path given, reading diff from stdin")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if cmd.Flags().Changed("distance") {
		cfg.Clustering.Threshold = threshold
	}

	var r io.Reader
	switch {
	case diffFile != "":
		f, openErr := os.Open(diffFile)
		if openErr != nil {
			return fmt.Errorf("run: opening diff file: %w", openErr)
		}
		defer f.Close()
		r = f
	case target != "":
		diff, gitErr := diffFromGit(ctx, target)
		if gitErr != nil {
			return fmt.Errorf("run: %w", gitErr)
		}
		r = diff
	default:
		r = os.Stdin
	}

	var opts []pipeline.Option
	if single {
		opts = append(opts, pipeline.WithSingleCluster())
	}
	if visualize {
		opts = append(opts, pipeline.WithVisualization())
	}

	appLogger.Info("starting run", "target", target, "diff_file", diffFile, "threshold", cfg.Clustering.Threshold)

	runDir, manifest, err := pipeline.Run(ctx, r, cfg, cfg.Output.Dir, appLogger, opts...)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	fmt.Printf("wrote %d commit group(s) to %s\n", len(*manifest), runDir)
	return nil
}

// diffFromGit runs `git diff HEAD` in dir and returns its stdout.
func diffFromGit(ctx context.Context, dir string) (io.Reader, error) {
	gitCmd := exec.CommandContext(ctx, "git", "diff", "HEAD")
	gitCmd.Dir = dir

	out, err := gitCmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running git diff in %s: %w", dir, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no changes found in %s (git diff HEAD returned empty)", dir)
	}
	return bytes.NewReader(out), nil
}
