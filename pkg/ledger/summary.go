package ledger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Reconcile returns the warnings implied by a run's counters. Mismatches are never errors.
func Reconcile(c models.RunCounters) []string {
	warnings := []string{}

	derived := c.Expected - c.SkippedNull - c.SkippedUnresolved
	if c.Successful != derived {
		warnings = append(warnings, fmt.Sprintf(
			"successful merges (%d) != expected - skipped_null - skipped_unresolved (%d - %d - %d = %d)",
			c.Successful, c.Expected, c.SkippedNull, c.SkippedUnresolved, derived))
	}
	if c.Unprocessed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d rows were not processed because the run aborted", c.Unprocessed))
	}
	if c.Unprocessed > 0 && !c.Conserved() {
		warnings = append(warnings, fmt.Sprintf(
			"%d rows unaccounted for: expected %d, accounted %d (source changed during the run?)",
			c.Expected-c.Accounted(), c.Expected, c.Accounted()))
	}

	if netNew := c.NetNew(); netNew == nil {
		warnings = append(warnings, "target counts unavailable; net new cannot be derived")
	} else if *netNew != c.Successful {
		warnings = append(warnings, fmt.Sprintf(
			"net new (%d) differs from successful merges (%d): existing entries were updated in place or merged rows shared a key",
			*netNew, c.Successful))
	}

	return warnings
}

// Finalize renders the summary of a run, overwriting any previous summary, and closes the detail log.
// The warnings are appended to the result.
func (l *Ledger) Finalize(result *models.RunResult) error {
	result.Warnings = append(result.Warnings, Reconcile(result.Counters)...)

	body := l.renderSummary(result)
	writeErr := os.WriteFile(l.summaryPath, []byte(body), 0o644)
	closeErr := l.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write skip summary: %w", writeErr)
	}
	return closeErr
}

// SummaryFile is the path the summary is written to
func (l *Ledger) SummaryFile() string {
	return l.summaryPath
}

// DetailFile is the path of the append-only detail log
func (l *Ledger) DetailFile() string {
	return l.detailPath
}

func (l *Ledger) renderSummary(result *models.RunResult) string {
	c := result.Counters
	counts := l.Counts()

	var b strings.Builder
	line := func(label string, value any) {
		fmt.Fprintf(&b, "%-34s %v\n", label+":", value)
	}

	line("Loader", result.Loader)
	line("Target", result.Target)
	line("Run ID", result.RunID)
	line("State", result.State)
	line("Started", result.StartedAt.UTC().Format(time.RFC3339))
	line("Duration", result.Duration.Round(time.Millisecond))
	if result.Err != nil {
		line("Error", result.Err.Error())
	}
	b.WriteString("\n")

	line("Source rows (expected)", c.Expected)
	if c.DistinctIDs != nil {
		line("Distinct identifiers", *c.DistinctIDs)
	}
	line("Rows read", c.Read)
	line("Batches", c.Batches)
	line("Skipped (null id/type)", c.SkippedNull)
	line("Skipped (unresolved endpoint)", c.SkippedUnresolved)
	for _, reason := range sortedReasons(counts) {
		fmt.Fprintf(&b, "  %-32s %d\n", reason+":", counts[reason])
	}
	line("Successful merges", c.Successful)
	if c.Unprocessed > 0 {
		line("Unprocessed (aborted)", c.Unprocessed)
	}
	line("Target count before", formatCount(c.Before))
	line("Target count after", formatCount(c.After))
	line("Net new", formatCount(c.NetNew()))
	line("Detail log", l.detailPath)

	if len(result.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "  WARNING: %s\n", w)
		}
	}

	return b.String()
}

func formatCount(n *int64) string {
	if n == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *n)
}
