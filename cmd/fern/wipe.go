package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/graph"
)

var (
	wipeConfirmed  bool
	wipeLimit      int
	wipeKeepSchema bool
)

func init() {
	wipeCmd.Flags().BoolVar(&wipeConfirmed, "yes", false, "Confirm deletion of every managed node")
	wipeCmd.Flags().IntVar(&wipeLimit, "limit", 10000, "Nodes deleted per transaction")
	wipeCmd.Flags().BoolVar(&wipeKeepSchema, "keep-schema", false, "Keep constraints and indexes")
	rootCmd.AddCommand(wipeCmd)
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Detach and delete every node carrying a managed label, then drop the schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !wipeConfirmed {
			return errors.NewLoadError(errors.KindConfig, "refusing to wipe without --yes")
		}
		if wipeLimit <= 0 {
			return errors.NewLoadErrorf(errors.KindConfig, "--limit must be greater than 0, got %d", wipeLimit)
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			deleted, err := a.store.Wipe(ctx, wipeLimit)
			for _, v := range graph.AllVariants() {
				fmt.Fprintf(os.Stdout, "%-24s %d deleted\n", v.Label, deleted[v.Label])
			}
			if err != nil {
				return fmt.Errorf("failed to wipe graph: %w", err)
			}
			if wipeKeepSchema {
				return nil
			}

			dropped, failures := a.store.DropSchema(ctx)
			for _, name := range dropped {
				fmt.Fprintf(os.Stdout, "%-24s dropped\n", name)
			}
			for name, ferr := range failures {
				fmt.Fprintf(os.Stdout, "%-24s not dropped: %v\n", name, ferr)
			}
			return nil
		})
	},
}
