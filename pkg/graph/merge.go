package graph

import (
	"context"
	"fmt"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// MergeRelationships merges a batch of relationships in one write transaction and returns
// the rows whose endpoints did not both resolve. Rows absent from the result were merged.
// A failed query is returned as an error, never as unresolved rows.
func (s *Store) MergeRelationships(ctx context.Context, stmt *EdgeStatement, rows []models.EdgeRow) ([]models.UnresolvedRow, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.MergeRelationships")
	defer span.End()

	if len(rows) == 0 {
		return nil, nil
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"relationship_type": stmt.Spec.Type,
		"batch_size":        len(rows),
	})

	batch := make([]map[string]any, len(rows))
	for i, row := range rows {
		batch[i] = edgeParams(i, stmt.Spec, row)
	}

	records, err := s.querier.Write(ctx, stmt.Cypher, map[string]any{"batch": batch})
	if err != nil {
		log.WithError(err).Error("Failed to merge relationship batch")
		return nil, fmt.Errorf("failed to merge %s relationships: %w", stmt.Spec.Type, err)
	}

	unresolved := make([]models.UnresolvedRow, 0, len(records))
	for _, rec := range records {
		unresolved = append(unresolved, models.UnresolvedRow{
			SourceID:      asString(rec["source_id"]),
			TargetID:      asString(rec["target_id"]),
			SourceFamily:  models.Family(asString(rec["source_family"])),
			TargetFamily:  models.Family(asString(rec["target_family"])),
			SourceMissing: asBool(rec, "source_missing"),
			TargetMissing: asBool(rec, "target_missing"),
		})
	}

	log.WithField("unresolved", len(unresolved)).Debug("Merged relationship batch")
	return unresolved, nil
}

// MergeNodes upserts a batch of nodes of one variant and returns the number merged
func (s *Store) MergeNodes(ctx context.Context, stmt *NodeStatement, rows []models.NodeRow) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Store.MergeNodes")
	defer span.End()

	if len(rows) == 0 {
		return 0, nil
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"label":      stmt.Variant.Label,
		"batch_size": len(rows),
	})

	batch := make([]map[string]any, len(rows))
	for i, row := range rows {
		props := make(map[string]any, len(row.Props)+1)
		for k, v := range row.Props {
			if v != nil {
				props[k] = v
			}
		}
		props[stmt.Variant.IDProperty] = row.ID
		batch[i] = map[string]any{"id": row.ID, "props": props}
	}

	records, err := s.querier.Write(ctx, stmt.Cypher, map[string]any{"batch": batch})
	if err != nil {
		log.WithError(err).Error("Failed to merge node batch")
		return 0, fmt.Errorf("failed to merge %s nodes: %w", stmt.Variant.Label, err)
	}

	var merged int64
	if len(records) > 0 {
		merged = asInt64(records[0]["merged"])
	}
	return merged, nil
}

func edgeParams(idx int, spec EdgeSpec, row models.EdgeRow) map[string]any {
	props := make(map[string]any, len(row.Props)+1)
	for k, v := range row.Props {
		if v != nil {
			props[k] = v
		}
	}
	if spec.MergeKey != "" {
		props[spec.MergeKey] = row.MergeKey
	}

	params := map[string]any{
		// _row keeps identical rows from collapsing when the query aggregates per row
		"_row":          idx,
		"source_id":     row.SourceID,
		"target_id":     row.TargetID,
		"source_family": string(row.SourceFamily),
		"target_family": string(row.TargetFamily),
		"props":         props,
	}
	if spec.MergeKey != "" {
		params["merge_key"] = row.MergeKey
	}
	return params
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func asBool(rec map[string]any, key string) *bool {
	v, ok := rec[key]
	if !ok || v == nil {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}
