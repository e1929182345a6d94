package graph

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/tracing"
)

// CountNodes counts nodes carrying a managed label
func (s *Store) CountNodes(ctx context.Context, label string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.CountNodes")
	defer span.End()

	if err := checkLabel(label); err != nil {
		return 0, err
	}
	return s.count(ctx, countNodesCypher(label))
}

// CountRelationships counts relationships of an allowed type
func (s *Store) CountRelationships(ctx context.Context, relType string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.CountRelationships")
	defer span.End()

	if err := checkRelationshipType(relType); err != nil {
		return 0, err
	}
	return s.count(ctx, countRelationshipsCypher(relType))
}

func (s *Store) count(ctx context.Context, cypher string) (int64, error) {
	records, err := s.querier.Read(ctx, cypher, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return asInt64(records[0]["count"]), nil
}

// EnsureConstraints declares a uniqueness constraint on every given variant's identifying property.
// Safe to repeat. Failures are logged and returned per label, never fatal to loading.
func (s *Store) EnsureConstraints(ctx context.Context, nodeVariants ...NodeVariant) map[string]error {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.EnsureConstraints")
	defer span.End()

	if len(nodeVariants) == 0 {
		nodeVariants = AllVariants()
	}

	failures := map[string]error{}
	for _, v := range nodeVariants {
		log := s.logger.WithContext(ctx).WithFields(map[string]any{
			"label":    v.Label,
			"property": v.IDProperty,
			"dialect":  s.dialect,
		})
		if err := checkLabel(v.Label); err != nil {
			failures[v.Label] = err
			continue
		}
		if _, err := s.querier.Exec(ctx, constraintCypher(s.dialect, v), nil); err != nil {
			log.WithError(err).Warn("Failed to create uniqueness constraint")
			failures[v.Label] = err
			continue
		}
		log.Debug("Uniqueness constraint ensured")
	}
	return failures
}
