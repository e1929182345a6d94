package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/source"
	fernerrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/ledger"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SourceReader is the relational side of a loader run
type SourceReader interface {
	Count(ctx context.Context, table string) (int64, error)
	CountDistinct(ctx context.Context, table, column string) (int64, error)
	Open(ctx context.Context, q source.Query) (source.Cursor, error)
}

// GraphStore is the graph side of a loader run
type GraphStore interface {
	MergeRelationships(ctx context.Context, stmt *graph.EdgeStatement, rows []models.EdgeRow) ([]models.UnresolvedRow, error)
	MergeNodes(ctx context.Context, stmt *graph.NodeStatement, rows []models.NodeRow) (int64, error)
	CountNodes(ctx context.Context, label string) (int64, error)
	CountRelationships(ctx context.Context, relType string) (int64, error)
}

// Observer is notified of loader progress. Implementations must not block.
type Observer interface {
	LoaderStarted(ctx context.Context, result *models.RunResult)
	BatchCompleted(ctx context.Context, loader string, stats models.BatchStats)
	LoaderFinished(ctx context.Context, result *models.RunResult)
}

// Options are the per-invocation settings of a loader run
type Options struct {
	RunID string
	// BatchSize overrides the loader default when positive
	BatchSize int
}

// Driver runs loader definitions: count, stream, merge, record skips, reconcile
type Driver struct {
	reader    SourceReader
	store     GraphStore
	logDir    string
	observers []Observer
	logger    ectologger.Logger
	now       func() time.Time
}

// NewDriver creates a new loader driver writing its skip logs under logDir
func NewDriver(reader SourceReader, store GraphStore, logDir string, logger ectologger.Logger, observers ...Observer) *Driver {
	return &Driver{
		reader:    reader,
		store:     store,
		logDir:    logDir,
		observers: observers,
		logger:    logger,
		now:       time.Now,
	}
}

// run is the state of one loader invocation
type run struct {
	d         *Driver
	def       Definition
	result    *models.RunResult
	ledger    *ledger.Ledger
	sanitiser *sanitiser
	grouper   *grouper
	batchSize int
	log       ectologger.Logger
}

// Run executes one loader to completion. The result is always returned, with State ABORTED and Err
// set when the run ended early; partial counters are kept.
func (d *Driver) Run(ctx context.Context, def Definition, opts Options) *models.RunResult {
	ctx, span := tracing.StartSpan(ctx, "loader.Driver.Run")
	defer span.End()

	r := &run{
		d:   d,
		def: def,
		result: &models.RunResult{
			RunID:     opts.RunID,
			Loader:    def.Name,
			Target:    def.Target(),
			State:     models.RunStateInit,
			StartedAt: d.now(),
		},
		batchSize: def.BatchSize,
		log: d.logger.WithContext(ctx).WithFields(map[string]any{
			"loader": def.Name,
			"run_id": opts.RunID,
		}),
	}
	if opts.BatchSize > 0 {
		r.batchSize = opts.BatchSize
	}

	err := r.execute(ctx)
	r.finish(ctx, err)
	return r.result
}

func (r *run) execute(ctx context.Context) error {
	if err := r.def.Validate(); err != nil {
		return fernerrors.Wrap(fernerrors.KindConfig, err).AddLoader(r.def.Name)
	}
	edgeStmt, nodeStmt, err := r.def.compile()
	if err != nil {
		return fernerrors.Wrap(fernerrors.KindConfig, err).AddLoader(r.def.Name)
	}

	l, err := ledger.Open(r.d.logDir, r.def.Name, r.def.LedgerColumns(), r.d.logger)
	if err != nil {
		return fernerrors.Wrap(fernerrors.KindConfig, err).AddLoader(r.def.Name)
	}
	r.ledger = l
	r.sanitiser = newSanitiser(r.def)
	if r.def.Grouped() {
		r.grouper = newGrouper(r.def.Node)
	}

	for _, o := range r.d.observers {
		o.LoaderStarted(ctx, r.result)
	}
	r.log.WithFields(map[string]any{
		"table":      r.def.Table,
		"target":     r.def.Target(),
		"batch_size": r.batchSize,
	}).Info("Starting loader")

	r.result.State = models.RunStateCountingSource
	expected, err := r.d.reader.Count(ctx, r.def.Table)
	if err != nil {
		return fernerrors.Wrap(fernerrors.KindSource, err).AddLoader(r.def.Name)
	}
	r.result.Counters.Expected = expected
	if r.def.Grouped() {
		distinct, err := r.d.reader.CountDistinct(ctx, r.def.Table, r.def.Node.IDColumn)
		if err != nil {
			r.warn("distinct identifier count unavailable: %v", err)
		} else {
			r.result.Counters.DistinctIDs = &distinct
		}
	}

	r.result.State = models.RunStateCountingBefore
	r.result.Counters.Before = r.countTarget(ctx, "before")

	r.result.State = models.RunStateStreaming
	cursor, err := r.d.reader.Open(ctx, r.def.Query())
	if err != nil {
		return fernerrors.Wrap(fernerrors.KindSource, err).AddLoader(r.def.Name)
	}
	defer func() {
		if err := cursor.Close(context.WithoutCancel(ctx)); err != nil {
			r.log.WithError(err).Warn("Failed to close source cursor")
		}
	}()

	if edgeStmt != nil {
		err = r.streamEdges(ctx, cursor, edgeStmt)
	} else {
		err = r.streamNodes(ctx, cursor, nodeStmt)
	}
	if err != nil {
		return err
	}

	r.result.State = models.RunStateCountingAfter
	r.result.Counters.After = r.countTarget(ctx, "after")
	return nil
}

func (r *run) streamEdges(ctx context.Context, cursor source.Cursor, stmt *graph.EdgeStatement) error {
	for {
		rows, err := r.fetch(ctx, cursor)
		if err != nil || len(rows) == 0 {
			return err
		}

		started := r.d.now()
		batchNo := r.result.Counters.Batches
		batch := r.ledger.NewBatch()

		edges := make([]models.EdgeRow, 0, len(rows))
		for _, row := range rows {
			edge, rej := r.sanitiser.edge(row)
			if rej != nil {
				record(batch, rej)
				continue
			}
			edges = append(edges, edge)
		}

		unresolved, err := r.d.store.MergeRelationships(ctx, stmt, edges)
		if err != nil {
			batch.Discard()
			return r.batchFailed(ctx, batchNo, len(rows), started, err)
		}
		for _, u := range unresolved {
			batch.RecordUnresolved(u)
		}

		if err := r.commit(ctx, batch, batchNo, len(rows), int64(len(edges)-len(unresolved)), started); err != nil {
			return err
		}
	}
}

func (r *run) streamNodes(ctx context.Context, cursor source.Cursor, stmt *graph.NodeStatement) error {
	for {
		rows, err := r.fetch(ctx, cursor)
		if err != nil {
			return err
		}
		final := len(rows) == 0

		started := r.d.now()
		batchNo := r.result.Counters.Batches
		batch := r.ledger.NewBatch()

		nodes := make([]models.NodeRow, 0, len(rows))
		for _, row := range rows {
			node, rej := r.sanitiser.node(row)
			if rej != nil {
				record(batch, rej)
				continue
			}
			if r.grouper != nil {
				nodes = append(nodes, r.grouper.add(node)...)
			} else {
				nodes = append(nodes, node)
			}
		}
		if final && r.grouper != nil {
			nodes = append(nodes, r.grouper.flush()...)
		}
		if final && len(nodes) == 0 {
			return nil
		}

		merged, err := r.d.store.MergeNodes(ctx, stmt, nodes)
		if err != nil {
			batch.Discard()
			return r.batchFailed(ctx, batchNo, len(rows), started, err)
		}

		var successful int64
		for _, n := range nodes {
			successful += int64(n.Rows)
		}
		r.log.WithFields(map[string]any{
			"batch":  batchNo,
			"nodes":  len(nodes),
			"merged": merged,
		}).Debug("Merged node batch")

		if err := r.commit(ctx, batch, batchNo, len(rows), successful, started); err != nil {
			return err
		}
		if final {
			return nil
		}
	}
}

// fetch reads the next batch, stopping first if the run was interrupted
func (r *run) fetch(ctx context.Context, cursor source.Cursor) ([]models.SourceRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fernerrors.NewLoadErrorf(fernerrors.KindInterrupted, "run interrupted: %w", err).AddLoader(r.def.Name)
	}
	rows, err := cursor.Next(ctx, r.batchSize)
	if err != nil {
		return nil, fernerrors.Wrap(fernerrors.KindSource, err).AddLoader(r.def.Name)
	}
	if len(rows) > 0 {
		r.result.Counters.Read += int64(len(rows))
		r.result.Counters.Batches++
	}
	return rows, nil
}

func record(batch *ledger.Batch, rej *rejection) {
	if rej.reason == models.ReasonNullType {
		batch.RecordNullType(rej.record, rej.field)
		return
	}
	batch.RecordNullID(rej.record, rej.field)
}

// commit makes the outcome of one merged batch visible: skips reach the detail log, then counters move
func (r *run) commit(ctx context.Context, batch *ledger.Batch, batchNo, rows int, successful int64, started time.Time) error {
	c := &r.result.Counters
	c.Successful += successful

	nullBefore, unresolvedBefore := c.SkippedNull, c.SkippedUnresolved
	if err := batch.Commit(); err != nil {
		r.log.WithError(err).Error("Failed to write skip detail log")
		return fernerrors.NewLoadErrorf(fernerrors.KindBatch, "failed to record skips: %w", err).AddLoader(r.def.Name).AddBatch(batchNo)
	}
	c.SkippedNull = r.ledger.NullSkips()
	c.SkippedUnresolved = r.ledger.UnresolvedSkips()

	stats := models.BatchStats{
		Batch:             batchNo,
		Rows:              rows,
		Successful:        int(successful),
		SkippedNull:       int(c.SkippedNull - nullBefore),
		SkippedUnresolved: int(c.SkippedUnresolved - unresolvedBefore),
		Seconds:           r.d.now().Sub(started).Seconds(),
	}
	for _, o := range r.d.observers {
		o.BatchCompleted(ctx, r.def.Name, stats)
	}

	fields := map[string]any{
		"batch":              batchNo,
		"read":               c.Read,
		"expected":           c.Expected,
		"successful":         c.Successful,
		"skipped_null":       c.SkippedNull,
		"skipped_unresolved": c.SkippedUnresolved,
	}
	if r.grouper != nil {
		fields["pending_group_rows"] = r.grouper.pending()
	}
	r.log.WithFields(fields).Infof("Processed batch %d (%d/%d rows)", batchNo, c.Read, c.Expected)
	return nil
}

func (r *run) batchFailed(ctx context.Context, batchNo, rows int, started time.Time, err error) error {
	for _, o := range r.d.observers {
		o.BatchCompleted(ctx, r.def.Name, models.BatchStats{
			Batch:   batchNo,
			Rows:    rows,
			Seconds: r.d.now().Sub(started).Seconds(),
			Failed:  true,
		})
	}

	kind := fernerrors.KindBatch
	if ctx.Err() != nil {
		kind = fernerrors.KindInterrupted
	}
	r.log.WithError(err).WithField("batch", batchNo).Error("Failed to merge batch")
	return fernerrors.NewLoadErrorf(kind, "failed to merge batch: %w", err).AddLoader(r.def.Name).AddBatch(batchNo)
}

// countTarget is best effort; nil means the count is unavailable
func (r *run) countTarget(ctx context.Context, phase string) *int64 {
	var (
		n   int64
		err error
	)
	if r.def.Kind() == KindNode {
		n, err = r.d.store.CountNodes(ctx, r.def.Target())
	} else {
		n, err = r.d.store.CountRelationships(ctx, r.def.Target())
	}
	if err != nil {
		r.warn("target count %s unavailable: %v", phase, err)
		return nil
	}
	return &n
}

func (r *run) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.Warnings = append(r.result.Warnings, msg)
	r.log.Warn(msg)
}

// finish settles the terminal state, writes the summary and notifies observers
func (r *run) finish(ctx context.Context, err error) {
	res := r.result
	c := &res.Counters

	if r.grouper != nil && r.grouper.reopened > 0 {
		r.warn("%d identifiers arrived out of order and were merged again with every row read so far", r.grouper.reopened)
	}
	if r.sanitiser != nil {
		for _, col := range r.sanitiser.droppedColumns() {
			r.warn("%d values of column %s could not be converted and were omitted", r.sanitiser.dropped[col], col)
		}
	}

	res.State = models.RunStateReporting
	if err != nil {
		res.Err = err
		if remaining := c.Expected - (c.SkippedNull + c.SkippedUnresolved + c.Successful); remaining > 0 {
			c.Unprocessed = remaining
		}
		if c.After == nil && c.Before != nil && !fernerrors.IsKind(err, fernerrors.KindInterrupted) {
			c.After = r.countTarget(ctx, "after")
		}
	}
	res.Duration = r.d.now().Sub(res.StartedAt)

	res.State = models.RunStateDone
	if err != nil {
		res.State = models.RunStateAborted
	}
	logged := len(res.Warnings)
	if r.ledger != nil {
		if ferr := r.ledger.Finalize(res); ferr != nil {
			r.log.WithError(ferr).Error("Failed to write skip summary")
			res.Warnings = append(res.Warnings, fmt.Sprintf("skip summary not written: %v", ferr))
		}
	} else {
		res.Warnings = append(res.Warnings, ledger.Reconcile(*c)...)
	}

	log := r.log.WithFields(map[string]any{
		"state":              res.State,
		"expected":           c.Expected,
		"successful":         c.Successful,
		"skipped_null":       c.SkippedNull,
		"skipped_unresolved": c.SkippedUnresolved,
		"unprocessed":        c.Unprocessed,
		"duration":           res.Duration.String(),
	})
	for _, w := range res.Warnings[logged:] {
		log.Warn(w)
	}
	if err != nil {
		log.WithError(err).Error("Loader aborted")
	} else {
		log.Info("Loader completed")
	}

	for _, o := range r.d.observers {
		o.LoaderFinished(context.WithoutCancel(ctx), res)
	}
}

// Describe renders a one-line outcome of a run
func Describe(res *models.RunResult) string {
	c := res.Counters
	parts := []string{
		fmt.Sprintf("%s [%s]", res.Loader, res.State),
		fmt.Sprintf("expected=%d", c.Expected),
		fmt.Sprintf("successful=%d", c.Successful),
		fmt.Sprintf("skipped_null=%d", c.SkippedNull),
		fmt.Sprintf("skipped_unresolved=%d", c.SkippedUnresolved),
	}
	if c.Unprocessed > 0 {
		parts = append(parts, fmt.Sprintf("unprocessed=%d", c.Unprocessed))
	}
	if n := c.NetNew(); n != nil {
		parts = append(parts, fmt.Sprintf("net_new=%d", *n))
	}
	return strings.Join(parts, " ")
}
