// Package ledger records every source row that did not produce a merge
package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Columns names the identifier columns heading the detail log
type Columns struct {
	Source string
	Target string
}

// Ledger owns the detail and summary logs of one loader
type Ledger struct {
	name        string
	detailPath  string
	summaryPath string
	columns     Columns

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	counts map[models.ReasonCode]int64
	logger ectologger.Logger
}

// DetailPath returns the detail log location for a loader
func DetailPath(dir, name string) string {
	return filepath.Join(dir, name+"_skipped_details.log")
}

// SummaryPath returns the summary log location for a loader
func SummaryPath(dir, name string) string {
	return filepath.Join(dir, name+"_skipped_summary.log")
}

// Open opens the detail log in append mode, writing the header only when the file is new or empty
func Open(dir, name string, columns Columns, logger ectologger.Logger) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Ledger{
		name:        name,
		detailPath:  DetailPath(dir, name),
		summaryPath: SummaryPath(dir, name),
		columns:     columns,
		counts:      map[models.ReasonCode]int64{},
		logger:      logger,
	}

	file, err := os.OpenFile(l.detailPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open skip detail log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat skip detail log: %w", err)
	}

	l.file = file
	l.writer = bufio.NewWriter(file)

	if info.Size() == 0 {
		if _, err := l.writer.WriteString(l.header()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write skip detail header: %w", err)
		}
		if err := l.writer.Flush(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write skip detail header: %w", err)
		}
	}

	return l, nil
}

// header leaves the target column unnamed for node loaders, matching their empty target field
func (l *Ledger) header() string {
	return strings.Join([]string{l.columns.Source, l.columns.Target, "source_type", "target_type", "reason", "field"}, "\t") + "\n"
}

// NewBatch starts buffering the skips of one batch
func (l *Ledger) NewBatch() *Batch {
	return &Batch{ledger: l}
}

// Count returns the number of committed skips for a reason
func (l *Ledger) Count(reason models.ReasonCode) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[reason]
}

// NullSkips is the number of committed NULL_ID and NULL_TYPE skips
func (l *Ledger) NullSkips() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[models.ReasonNullID] + l.counts[models.ReasonNullType]
}

// UnresolvedSkips is the number of committed skips decided by the merge executor
func (l *Ledger) UnresolvedSkips() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for reason, c := range l.counts {
		if !reason.IsNullSkip() {
			n += c
		}
	}
	return n
}

// Counts returns a copy of the committed counts by reason
func (l *Ledger) Counts() map[models.ReasonCode]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[models.ReasonCode]int64, len(l.counts))
	for k, v := range l.counts {
		out[k] = v
	}
	return out
}

func (l *Ledger) commit(records []models.SkipRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return fmt.Errorf("skip ledger %s is closed", l.name)
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(formatRecord(rec))
	}
	if _, err := l.writer.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write skip detail: %w", err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush skip detail: %w", err)
	}

	for _, rec := range records {
		l.counts[rec.Reason]++
	}
	return nil
}

// Close flushes and closes the detail log
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	flushErr := l.writer.Flush()
	closeErr := l.file.Close()
	l.file = nil
	l.writer = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

var fieldCleaner = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

func formatRecord(rec models.SkipRecord) string {
	fields := []string{rec.SourceID, rec.TargetID, rec.SourceType, rec.TargetType, string(rec.Reason), rec.Field}
	for i, f := range fields {
		fields[i] = fieldCleaner.Replace(f)
	}
	return strings.Join(fields, "\t") + "\n"
}

func sortedReasons(counts map[models.ReasonCode]int64) []models.ReasonCode {
	reasons := make([]models.ReasonCode, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	return reasons
}
