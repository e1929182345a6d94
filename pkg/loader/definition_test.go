package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/models"
)

func TestCatalogue_Validates(t *testing.T) {
	for _, def := range Catalogue() {
		t.Run(def.Name, func(t *testing.T) {
			require.NoError(t, def.Validate())
		})
	}
}

func TestCatalogue_Order(t *testing.T) {
	names := Names()
	require.Len(t, names, 10)
	assert.Equal(t, []string{
		"published_activities", "published_organisations", "phantom_activities", "phantom_organisations",
		"publication", "hierarchy", "participation", "activity_participation", "funds", "financial",
	}, names)

	seenEdge := false
	for _, def := range Catalogue() {
		if def.Kind() == KindEdge {
			seenEdge = true
			continue
		}
		assert.False(t, seenEdge, "node loader %s after an edge loader", def.Name)
	}
}

func TestDefinition_Query(t *testing.T) {
	fin := mustLookup(t, "financial")
	q := fin.Query()
	assert.Equal(t, "financial_links", q.Table)
	assert.Equal(t, []string{
		"source_node_id", "source_node_type", "target_node_id", "target_node_type", "transactiontype_code",
		"transaction_type_name", "currency", "total_value_usd",
	}, q.Columns)
	assert.Empty(t, q.OrderBy)

	ph := mustLookup(t, "phantom_activities")
	q = ph.Query()
	assert.Equal(t, []string{"phantom_activity_identifier", "source_column", "source_activity_id"}, q.Columns)
	assert.Equal(t, []string{"phantom_activity_identifier"}, q.OrderBy)
}

func TestDefinition_Variants(t *testing.T) {
	fin := mustLookup(t, "financial")
	assert.ElementsMatch(t, graph.AllVariants(), fin.Variants())

	pub := mustLookup(t, "publication")
	assert.Equal(t, []graph.NodeVariant{
		graph.PublishedOrganisation, graph.PhantomOrganisation, graph.PublishedActivity, graph.PhantomActivity,
	}, pub.Variants())

	node := mustLookup(t, "phantom_organisations")
	assert.Equal(t, []graph.NodeVariant{graph.PhantomOrganisation}, node.Variants())
	assert.Equal(t, "PhantomOrganisation", node.Target())
}

func TestDefinition_ProbeTargets(t *testing.T) {
	fin := mustLookup(t, "financial")
	targets := fin.ProbeTargets()
	require.Len(t, targets, 2)
	assert.Equal(t, "source_node_id", targets[0].Column)
	assert.Equal(t, models.Families, targets[0].Families)

	part := mustLookup(t, "participation")
	targets = part.ProbeTargets()
	assert.Equal(t, []models.Family{models.FamilyOrganisation}, targets[0].Families)
	assert.Equal(t, []models.Family{models.FamilyActivity}, targets[1].Families)

	node := mustLookup(t, "phantom_organisations")
	assert.Equal(t, []ProbeTarget{{Column: "reference", Families: []models.Family{models.FamilyOrganisation}}}, node.ProbeTargets())
}

func TestDefinition_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
	}{
		{"bad table", func(d *Definition) { d.Table = "links; drop" }},
		{"zero batch", func(d *Definition) { d.BatchSize = 0 }},
		{"both kinds", func(d *Definition) { d.Node = &NodeDefinition{Variant: graph.PublishedActivity, IDColumn: "x"} }},
		{"bad property", func(d *Definition) { d.Edge.Properties = []Column{{Name: "currency", Property: "cur rency"}} }},
		{"unknown family", func(d *Definition) { d.Edge.Source.Family = "country" }},
		{"aggregate without grouping", func(d *Definition) { d.Edge.Properties = []Column{{Name: "currency", Aggregate: AggregateAny}} }},
		{"unknown normalizer", func(d *Definition) { d.IDNormalizers = []string{"soundex"} }},
		{"bad relationship type", func(d *Definition) { d.Edge.Type = "FUNDED_BY" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := mustLookup(t, "funds")
			tt.mutate(&def)
			assert.Error(t, def.Validate())
		})
	}
}

func TestDefinition_LedgerColumns(t *testing.T) {
	part := mustLookup(t, "participation")
	cols := part.LedgerColumns()
	assert.Equal(t, "organisation_id", cols.Source)
	assert.Equal(t, "activity_id", cols.Target)

	node := mustLookup(t, "published_activities")
	assert.Equal(t, "iatiidentifier", node.LedgerColumns().Source)
	assert.Equal(t, []string{"iatiidentifier"}, node.IDColumns())
	assert.Equal(t, models.ColumnString, node.Node.Properties[0].Kind)
}
