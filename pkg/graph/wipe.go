package graph

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Wipe detaches and deletes every node carrying a managed label, limit nodes per transaction.
// Returns the number deleted per label.
func (s *Store) Wipe(ctx context.Context, limit int) (map[string]int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.Wipe")
	defer span.End()

	if limit <= 0 {
		limit = 10000
	}

	deleted := map[string]int64{}
	for _, v := range AllVariants() {
		log := s.logger.WithContext(ctx).WithField("label", v.Label)
		for {
			if err := ctx.Err(); err != nil {
				return deleted, err
			}

			records, err := s.querier.Write(ctx, wipeCypher(v.Label), map[string]any{"limit": limit})
			if err != nil {
				log.WithError(err).Error("Failed to delete node batch")
				return deleted, fmt.Errorf("failed to wipe %s: %w", v.Label, err)
			}

			var n int64
			if len(records) > 0 {
				n = asInt64(records[0]["deleted"])
			}
			deleted[v.Label] += n
			if n == 0 {
				break
			}
			log.WithField("deleted", deleted[v.Label]).Debug("Deleted node batch")
		}
		log.WithField("deleted", deleted[v.Label]).Info("Wiped label")
	}
	return deleted, nil
}

// DropSchema removes the uniqueness constraints and indexes left by earlier loads. On Neo4j every
// constraint and every non-lookup index is dropped; on Memgraph the managed constraints are.
// Returns the dropped names and the failures by name, which are logged and never fatal.
func (s *Store) DropSchema(ctx context.Context) ([]string, map[string]error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.DropSchema")
	defer span.End()

	dropped := []string{}
	failures := map[string]error{}
	log := s.logger.WithContext(ctx).WithField("dialect", s.dialect)

	if s.dialect == DialectMemgraph {
		for _, v := range AllVariants() {
			if _, err := s.querier.Exec(ctx, dropConstraintMemgraphCypher(v), nil); err != nil {
				log.WithError(err).WithField("label", v.Label).Warn("Failed to drop uniqueness constraint")
				failures[v.Label] = err
				continue
			}
			dropped = append(dropped, v.Label)
		}
		return dropped, failures
	}

	for _, kind := range []string{"constraint", "index"} {
		records, err := s.querier.Exec(ctx, showSchemaCypher(kind), nil)
		if err != nil {
			log.WithError(err).WithField("kind", kind).Warn("Failed to list schema")
			failures[kind] = err
			continue
		}
		for _, rec := range records {
			name := asString(rec["name"])
			if name == "" {
				continue
			}
			if _, err := s.querier.Exec(ctx, dropSchemaCypher(kind, name), nil); err != nil {
				log.WithError(err).WithFields(map[string]any{"kind": kind, "name": name}).Warn("Failed to drop schema")
				failures[name] = err
				continue
			}
			dropped = append(dropped, name)
		}
	}
	log.WithField("dropped", len(dropped)).Info("Dropped schema")
	return dropped, failures
}
