package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Resolution is the outcome of resolving one identifier within a family
type Resolution struct {
	ID string
	// Variant is empty when the identifier is unresolved
	Variant models.Variant
	// Ambiguous is set when both published and phantom nodes carry the identifier.
	// Published still wins; the flag is informational.
	Ambiguous bool
}

// Resolved reports whether the identifier bound to a node
func (r Resolution) Resolved() bool {
	return r.Variant != ""
}

// Resolver maps identifiers to node variants without creating nodes
type Resolver struct {
	querier Querier
	logger  ectologger.Logger
}

// NewResolver creates a new entity resolver
func NewResolver(querier Querier, logger ectologger.Logger) *Resolver {
	return &Resolver{
		querier: querier,
		logger:  logger,
	}
}

// ResolveMany resolves the distinct non-empty identifiers in ids with a single query.
// Misses are returned as unresolved entries; query failures are returned as errors.
func (r *Resolver) ResolveMany(ctx context.Context, family models.Family, ids []string) (map[string]Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Resolver.ResolveMany")
	defer span.End()

	if err := checkFamilies([]models.Family{family}); err != nil {
		return nil, err
	}

	distinct := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		distinct = append(distinct, id)
	}

	out := make(map[string]Resolution, len(distinct))
	if len(distinct) == 0 {
		return out, nil
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"family": family,
		"ids":    len(distinct),
	})

	records, err := r.querier.Read(ctx, resolveCypher(family), map[string]any{"ids": distinct})
	if err != nil {
		log.WithError(err).Error("Failed to resolve identifiers")
		return nil, fmt.Errorf("failed to resolve %s identifiers: %w", family, err)
	}

	for _, id := range distinct {
		out[id] = Resolution{ID: id}
	}
	for _, rec := range records {
		id := asString(rec["id"])
		res := Resolution{ID: id}
		published := asBool(rec, "published")
		phantom := asBool(rec, "phantom")
		switch {
		case published != nil && *published:
			res.Variant = models.VariantPublished
			res.Ambiguous = phantom != nil && *phantom
		case phantom != nil && *phantom:
			res.Variant = models.VariantPhantom
		}
		out[id] = res
	}

	return out, nil
}

// Resolve resolves a single identifier
func (r *Resolver) Resolve(ctx context.Context, family models.Family, id string) (Resolution, error) {
	res, err := r.ResolveMany(ctx, family, []string{id})
	if err != nil {
		return Resolution{}, err
	}
	return res[id], nil
}

func resolveCypher(family models.Family) string {
	var b strings.Builder
	b.WriteString("UNWIND $ids AS id\n")
	names := writeVariantMatches(&b, "found", "id", "", []models.Family{family}, []string{"id"}, existsAggregate)
	fmt.Fprintf(&b, "RETURN id, %s AS published, %s AS phantom", names[0], names[1])
	return b.String()
}
