package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/source"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// memReader serves tables held in memory
type memReader struct {
	tables   map[string][]models.SourceRow
	countErr error
	opened   []source.Query
}

func (m *memReader) Count(_ context.Context, table string) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.tables[table])), nil
}

func (m *memReader) CountDistinct(_ context.Context, table, column string) (int64, error) {
	seen := map[any]bool{}
	for _, row := range m.tables[table] {
		if v := row[column]; v != nil {
			seen[v] = true
		}
	}
	return int64(len(seen)), nil
}

func (m *memReader) Open(_ context.Context, q source.Query) (source.Cursor, error) {
	m.opened = append(m.opened, q)
	return &memCursor{rows: m.tables[q.Table]}, nil
}

type memCursor struct {
	rows   []models.SourceRow
	pos    int
	closed bool
}

func (c *memCursor) Next(_ context.Context, n int) ([]models.SourceRow, error) {
	end := c.pos + n
	if end > len(c.rows) {
		end = len(c.rows)
	}
	out := c.rows[c.pos:end]
	c.pos = end
	return out, nil
}

func (c *memCursor) Close(_ context.Context) error {
	c.closed = true
	return nil
}

// memGraph resolves and merges the way the compiled Cypher does
type memGraph struct {
	mu sync.Mutex
	// nodes by label then id
	nodes map[string]map[string]map[string]any
	rels  map[string]map[string]any
	calls int
	// failOn makes the nth merge call fail
	failOn int
}

func newMemGraph() *memGraph {
	return &memGraph{nodes: map[string]map[string]map[string]any{}, rels: map[string]map[string]any{}}
}

func (g *memGraph) addNode(v graph.NodeVariant, id string) {
	if g.nodes[v.Label] == nil {
		g.nodes[v.Label] = map[string]map[string]any{}
	}
	g.nodes[v.Label][id] = map[string]any{v.IDProperty: id}
}

func (g *memGraph) resolve(families []models.Family, family models.Family, id string) string {
	for _, f := range families {
		if len(families) > 1 && f != family {
			continue
		}
		for _, v := range graph.VariantsOf(f) {
			if _, ok := g.nodes[v.Label][id]; ok {
				return v.Label + ":" + id
			}
		}
	}
	return ""
}

func (g *memGraph) fail() error {
	g.calls++
	if g.failOn > 0 && g.calls == g.failOn {
		return fmt.Errorf("backend unavailable")
	}
	return nil
}

func (g *memGraph) MergeRelationships(_ context.Context, stmt *graph.EdgeStatement, rows []models.EdgeRow) ([]models.UnresolvedRow, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return nil, err
	}

	var unresolved []models.UnresolvedRow
	for _, row := range rows {
		s := g.resolve(stmt.Spec.SourceFamilies, row.SourceFamily, row.SourceID)
		t := g.resolve(stmt.Spec.TargetFamilies, row.TargetFamily, row.TargetID)
		if s == "" || t == "" {
			sm, tm := s == "", t == ""
			unresolved = append(unresolved, models.UnresolvedRow{
				SourceID: row.SourceID, TargetID: row.TargetID,
				SourceFamily: row.SourceFamily, TargetFamily: row.TargetFamily,
				SourceMissing: &sm, TargetMissing: &tm,
			})
			continue
		}
		key := fmt.Sprintf("%s|%s|%s|%v", stmt.Spec.Type, s, t, row.MergeKey)
		g.rels[key] = row.Props
	}
	return unresolved, nil
}

func (g *memGraph) MergeNodes(_ context.Context, stmt *graph.NodeStatement, rows []models.NodeRow) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.fail(); err != nil {
		return 0, err
	}

	label := stmt.Variant.Label
	if g.nodes[label] == nil {
		g.nodes[label] = map[string]map[string]any{}
	}
	for _, row := range rows {
		props := map[string]any{}
		for k, v := range row.Props {
			props[k] = v
		}
		props[stmt.Variant.IDProperty] = row.ID
		g.nodes[label][row.ID] = props
	}
	return int64(len(rows)), nil
}

func (g *memGraph) CountNodes(_ context.Context, label string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int64(len(g.nodes[label])), nil
}

func (g *memGraph) CountRelationships(_ context.Context, relType string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for key := range g.rels {
		if len(key) > len(relType) && key[:len(relType)+1] == relType+"|" {
			n++
		}
	}
	return n, nil
}

// recordingObserver keeps every notification
type recordingObserver struct {
	started  int
	batches  []models.BatchStats
	finished []*models.RunResult
	onBatch  func(models.BatchStats)
}

func (o *recordingObserver) LoaderStarted(_ context.Context, _ *models.RunResult) {
	o.started++
}

func (o *recordingObserver) BatchCompleted(_ context.Context, _ string, stats models.BatchStats) {
	o.batches = append(o.batches, stats)
	if o.onBatch != nil {
		o.onBatch(stats)
	}
}

func (o *recordingObserver) LoaderFinished(_ context.Context, result *models.RunResult) {
	o.finished = append(o.finished, result)
}
