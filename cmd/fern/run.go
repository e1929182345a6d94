package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/orchestrator"
)

var (
	batchSize       int
	only            []string
	skipConstraints bool
)

func init() {
	runCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per batch for every loader (default: each loader's own)")
	runCmd.Flags().StringSliceVar(&only, "only", nil, "Comma separated loaders to run, in catalogue order")
	loadCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per batch (default: the loader's own)")
	for _, c := range []*cobra.Command{runCmd, loadCmd} {
		c.Flags().BoolVar(&skipConstraints, "skip-constraints", false, "Do not create uniqueness constraints before loading")
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loadCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Rebuild the graph: constraints, node loaders, then relationship loaders",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return orchestrate(cmd, only)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load [loader]",
	Short: "Run a single loader",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, ok := loader.Lookup(args[0]); !ok {
			return errors.NewLoadErrorf(errors.KindConfig, "unknown loader %q (see fern list)", args[0])
		}
		return orchestrate(cmd, []string{args[0]})
	},
}

func orchestrate(cmd *cobra.Command, names []string) error {
	changed := cmd.Flags().Changed("batch-size")
	if changed && batchSize <= 0 {
		return errors.NewLoadErrorf(errors.KindConfig, "--batch-size must be greater than 0, got %d", batchSize)
	}

	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		size := a.cfg.BatchSize
		if changed {
			size = batchSize
		}

		runID := uuid.NewString()
		report := a.orch.Run(ctx, orchestrator.Options{RunID: runID, BatchSize: size, Only: names, SkipConstraints: skipConstraints})
		a.pushMetrics(ctx, runID)

		if err := orchestrator.WriteSummary(os.Stdout, report); err != nil {
			a.logger.WithContext(ctx).WithError(err).Warn("Failed to write run summary")
		}
		return report.Err
	})
}
