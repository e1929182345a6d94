package orchestrator

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteSummary prints one row per loader plus warnings and the overall outcome
func WriteSummary(w io.Writer, report *Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOADER\tSTATE\tEXPECTED\tSUCCESSFUL\tNULL\tUNRESOLVED\tUNPROCESSED\tNET NEW\tDURATION")
	for _, res := range report.Results {
		c := res.Counters
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			res.Loader, res.State, c.Expected, c.Successful, c.SkippedNull, c.SkippedUnresolved,
			c.Unprocessed, count(c.NetNew()), res.Duration.Round(time.Millisecond))
	}
	for _, name := range report.Skipped {
		fmt.Fprintf(tw, "%s\tSKIPPED\t-\t-\t-\t-\t-\t-\t-\n", name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	warnings := append([]string{}, report.Warnings...)
	for _, res := range report.Results {
		for _, warning := range res.Warnings {
			warnings = append(warnings, res.Loader+": "+warning)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, warning := range warnings {
			fmt.Fprintf(w, "  %s\n", warning)
		}
	}

	if report.Err != nil {
		_, err := fmt.Fprintf(w, "\nRun %s FAILED: %v\n", report.RunID, report.Err)
		return err
	}
	_, err := fmt.Fprintf(w, "\nRun %s completed in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
	return err
}

func count(n *int64) string {
	if n == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *n)
}
