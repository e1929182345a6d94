package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/loader"
)

var probeSample int

func init() {
	probeCmd.Flags().IntVar(&probeSample, "sample", 10, "Distinct identifiers sampled per column")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe [loader]",
	Short: "Resolve sampled source identifiers of a loader against the graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, ok := loader.Lookup(args[0])
		if !ok {
			return errors.NewLoadErrorf(errors.KindConfig, "unknown loader %q (see fern list)", args[0])
		}
		if probeSample <= 0 {
			return errors.NewLoadErrorf(errors.KindConfig, "--sample must be greater than 0, got %d", probeSample)
		}

		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COLUMN\tIDENTIFIER\tFAMILY\tRESOLVES TO")

			for _, target := range def.ProbeTargets() {
				raw, err := a.reader.Sample(ctx, def.Table, target.Column, probeSample)
				if err != nil {
					return err
				}

				ids := make([]string, 0, len(raw))
				seen := map[string]bool{}
				for _, v := range raw {
					if id := def.NormaliseID(v); id != "" && !seen[id] {
						seen[id] = true
						ids = append(ids, id)
					}
				}

				for _, family := range target.Families {
					resolved, err := a.resolver.ResolveMany(ctx, family, ids)
					if err != nil {
						return err
					}
					for _, id := range ids {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", target.Column, id, family, describeVariant(resolved[id]))
					}
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout)
			for _, v := range def.Variants() {
				n, err := a.store.CountNodes(ctx, v.Label)
				if err != nil {
					fmt.Fprintf(os.Stdout, "%-24s N/A (%v)\n", v.Label, err)
					continue
				}
				fmt.Fprintf(os.Stdout, "%-24s %d nodes\n", v.Label, n)
			}
			return nil
		})
	},
}
