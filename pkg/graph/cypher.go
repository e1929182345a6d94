package graph

import (
	"fmt"
	"strings"

	"github.com/Ramsey-B/fern/pkg/models"
)

// EdgeSpec describes one relationship type and how its endpoints resolve
type EdgeSpec struct {
	Type string
	// More than one family means the family is carried per row
	SourceFamilies []models.Family
	TargetFamilies []models.Family
	// MergeKey is a relationship property that is part of the relationship identity
	MergeKey string
}

// Polymorphic reports whether either endpoint resolves by a per-row family
func (s EdgeSpec) Polymorphic() bool {
	return len(s.SourceFamilies) > 1 || len(s.TargetFamilies) > 1
}

// EdgeStatement is a validated, pre-built relationship merge
type EdgeStatement struct {
	Spec   EdgeSpec
	Cypher string
}

// NodeStatement is a validated, pre-built node upsert
type NodeStatement struct {
	Variant NodeVariant
	Cypher  string
}

// CompileEdgeMerge validates spec against the allow-list and builds its merge statement
func CompileEdgeMerge(spec EdgeSpec) (*EdgeStatement, error) {
	if err := checkRelationshipType(spec.Type); err != nil {
		return nil, err
	}
	if err := checkFamilies(spec.SourceFamilies); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := checkFamilies(spec.TargetFamilies); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	if spec.MergeKey != "" && !ValidIdentifier(spec.MergeKey) {
		return nil, fmt.Errorf("invalid merge key %q", spec.MergeKey)
	}

	var b strings.Builder
	b.WriteString("UNWIND $batch AS row\n")
	writeEndpoint(&b, "s", "row.source_id", "row.source_family", spec.SourceFamilies, []string{"row"}, nodeAggregate)
	writeEndpoint(&b, "t", "row.target_id", "row.target_family", spec.TargetFamilies, []string{"row", "s"}, nodeAggregate)

	key := ""
	if spec.MergeKey != "" {
		key = fmt.Sprintf(" {%s: row.merge_key}", spec.MergeKey)
	}
	b.WriteString("FOREACH (_ IN CASE WHEN s IS NOT NULL AND t IS NOT NULL THEN [1] ELSE [] END |\n")
	fmt.Fprintf(&b, "  MERGE (s)-[r:%s%s]->(t)\n", spec.Type, key)
	b.WriteString("  SET r = row.props\n")
	b.WriteString(")\n")
	b.WriteString("WITH row, s, t\n")
	b.WriteString("WHERE s IS NULL OR t IS NULL\n")
	b.WriteString("RETURN row.source_id AS source_id, row.target_id AS target_id, ")
	b.WriteString("row.source_family AS source_family, row.target_family AS target_family, ")
	b.WriteString("s IS NULL AS source_missing, t IS NULL AS target_missing")

	return &EdgeStatement{Spec: spec, Cypher: b.String()}, nil
}

// CompileNodeMerge builds the upsert for one node variant. Properties are replaced wholesale.
func CompileNodeMerge(v NodeVariant) (*NodeStatement, error) {
	if err := checkLabel(v.Label); err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf("UNWIND $batch AS row\nMERGE (n:%s {%s: row.id})\nSET n = row.props\nRETURN count(n) AS merged",
		v.Label, v.IDProperty)
	return &NodeStatement{Variant: v, Cypher: cypher}, nil
}

func nodeAggregate(v string) string {
	return fmt.Sprintf("head(collect(%s))", v)
}

func existsAggregate(v string) string {
	return fmt.Sprintf("count(%s) > 0", v)
}

// writeEndpoint emits one OPTIONAL MATCH per candidate variant, published before phantom,
// and binds alias to the first that matched. Every step aggregates per row so each input
// row yields exactly one output row.
func writeEndpoint(b *strings.Builder, alias, idExpr, familyExpr string, families []models.Family, carry []string, aggregate func(string) string) {
	names := writeVariantMatches(b, alias, idExpr, familyExpr, families, carry, aggregate)
	fmt.Fprintf(b, "WITH %s, coalesce(%s) AS %s\n", strings.Join(carry, ", "), strings.Join(names, ", "), alias)
}

func writeVariantMatches(b *strings.Builder, prefix, idExpr, familyExpr string, families []models.Family, carry []string, aggregate func(string) string) []string {
	names := make([]string, 0, 2*len(families))
	for _, family := range families {
		for _, v := range VariantsOf(family) {
			name := fmt.Sprintf("%s%d", prefix, len(names))
			fmt.Fprintf(b, "OPTIONAL MATCH (%s_n:%s {%s: %s})", name, v.Label, v.IDProperty, idExpr)
			if len(families) > 1 {
				fmt.Fprintf(b, " WHERE %s = '%s'", familyExpr, family)
			}
			b.WriteString("\n")

			bound := make([]string, 0, len(carry)+len(names))
			bound = append(bound, carry...)
			bound = append(bound, names...)
			fmt.Fprintf(b, "WITH %s, %s AS %s\n", strings.Join(bound, ", "), aggregate(name+"_n"), name)
			names = append(names, name)
		}
	}
	return names
}

func countNodesCypher(label string) string {
	return fmt.Sprintf("MATCH (n:%s) RETURN count(n) AS count", label)
}

func countRelationshipsCypher(relType string) string {
	return fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r) AS count", relType)
}

// Dialect selects the constraint DDL syntax
type Dialect string

const (
	DialectNeo4j    Dialect = "neo4j"
	DialectMemgraph Dialect = "memgraph"
)

func constraintCypher(dialect Dialect, v NodeVariant) string {
	if dialect == DialectMemgraph {
		return fmt.Sprintf("CREATE CONSTRAINT ON (n:%s) ASSERT n.%s IS UNIQUE", v.Label, v.IDProperty)
	}
	return fmt.Sprintf("CREATE CONSTRAINT %s_%s_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		strings.ToLower(v.Label), v.IDProperty, v.Label, v.IDProperty)
}

func dropConstraintMemgraphCypher(v NodeVariant) string {
	return fmt.Sprintf("DROP CONSTRAINT ON (n:%s) ASSERT n.%s IS UNIQUE", v.Label, v.IDProperty)
}

// showSchemaCypher lists constraint or index names; lookup indexes belong to the server
func showSchemaCypher(kind string) string {
	if kind == "index" {
		return "SHOW INDEXES YIELD name, type WHERE type <> 'LOOKUP' RETURN name"
	}
	return "SHOW CONSTRAINTS YIELD name RETURN name"
}

// dropSchemaCypher quotes a server supplied schema name
func dropSchemaCypher(kind, name string) string {
	keyword := "CONSTRAINT"
	if kind == "index" {
		keyword = "INDEX"
	}
	return fmt.Sprintf("DROP %s `%s` IF EXISTS", keyword, strings.ReplaceAll(name, "`", "``"))
}

func wipeCypher(label string) string {
	return fmt.Sprintf("MATCH (n:%s) WITH n LIMIT $limit DETACH DELETE n RETURN count(*) AS deleted", label)
}
