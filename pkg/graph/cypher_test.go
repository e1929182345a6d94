package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
)

func TestCompileEdgeMerge_FixedFamilies(t *testing.T) {
	stmt, err := CompileEdgeMerge(EdgeSpec{
		Type:           "PARTICIPATES_IN",
		SourceFamilies: []models.Family{models.FamilyOrganisation},
		TargetFamilies: []models.Family{models.FamilyActivity},
		MergeKey:       "role_code",
	})
	require.NoError(t, err)

	cypher := stmt.Cypher
	assert.True(t, strings.HasPrefix(cypher, "UNWIND $batch AS row\n"))
	assert.Contains(t, cypher, "OPTIONAL MATCH (s0_n:PublishedOrganisation {organisationidentifier: row.source_id})")
	assert.Contains(t, cypher, "OPTIONAL MATCH (s1_n:PhantomOrganisation {reference: row.source_id})")
	assert.Contains(t, cypher, "WITH row, coalesce(s0, s1) AS s")
	assert.Contains(t, cypher, "OPTIONAL MATCH (t0_n:PublishedActivity {iatiidentifier: row.target_id})")
	assert.Contains(t, cypher, "OPTIONAL MATCH (t1_n:PhantomActivity {phantom_activity_identifier: row.target_id})")
	assert.Contains(t, cypher, "WITH row, s, coalesce(t0, t1) AS t")
	assert.Contains(t, cypher, "MERGE (s)-[r:PARTICIPATES_IN {role_code: row.merge_key}]->(t)")
	assert.Contains(t, cypher, "SET r = row.props")
	assert.Contains(t, cypher, "WHERE s IS NULL OR t IS NULL")
	assert.NotContains(t, cypher, "row.source_family =")

	// published is matched before phantom
	assert.Less(t, strings.Index(cypher, "PublishedOrganisation"), strings.Index(cypher, "PhantomOrganisation"))
	assert.Less(t, strings.Index(cypher, "PublishedActivity"), strings.Index(cypher, "PhantomActivity"))
	// resolution never creates endpoint nodes
	assert.NotContains(t, cypher, "MERGE (s:")
	assert.NotContains(t, cypher, "CREATE")
}

func TestCompileEdgeMerge_NoMergeKey(t *testing.T) {
	stmt, err := CompileEdgeMerge(EdgeSpec{
		Type:           "FUNDS",
		SourceFamilies: []models.Family{models.FamilyActivity},
		TargetFamilies: []models.Family{models.FamilyActivity},
	})
	require.NoError(t, err)
	assert.Contains(t, stmt.Cypher, "MERGE (s)-[r:FUNDS]->(t)")
}

func TestCompileEdgeMerge_Polymorphic(t *testing.T) {
	both := []models.Family{models.FamilyActivity, models.FamilyOrganisation}
	stmt, err := CompileEdgeMerge(EdgeSpec{
		Type:           "FINANCIAL_TRANSACTION",
		SourceFamilies: both,
		TargetFamilies: both,
		MergeKey:       "transactiontype_code",
	})
	require.NoError(t, err)
	assert.True(t, stmt.Spec.Polymorphic())

	cypher := stmt.Cypher
	assert.Contains(t, cypher, "OPTIONAL MATCH (s2_n:PublishedOrganisation {organisationidentifier: row.source_id}) WHERE row.source_family = 'organisation'")
	assert.Contains(t, cypher, "OPTIONAL MATCH (s0_n:PublishedActivity {iatiidentifier: row.source_id}) WHERE row.source_family = 'activity'")
	assert.Contains(t, cypher, "WITH row, coalesce(s0, s1, s2, s3) AS s")
	assert.Contains(t, cypher, "WITH row, s, coalesce(t0, t1, t2, t3) AS t")
	assert.Contains(t, cypher, "MERGE (s)-[r:FINANCIAL_TRANSACTION {transactiontype_code: row.merge_key}]->(t)")
}

func TestCompileEdgeMerge_Rejects(t *testing.T) {
	activity := []models.Family{models.FamilyActivity}
	tests := []struct {
		name string
		spec EdgeSpec
	}{
		{name: "unknown type", spec: EdgeSpec{Type: "KNOWS", SourceFamilies: activity, TargetFamilies: activity}},
		{name: "injected type", spec: EdgeSpec{Type: "FUNDS]->() DETACH DELETE (x", SourceFamilies: activity, TargetFamilies: activity}},
		{name: "no source family", spec: EdgeSpec{Type: "FUNDS", TargetFamilies: activity}},
		{name: "unknown family", spec: EdgeSpec{Type: "FUNDS", SourceFamilies: []models.Family{"person"}, TargetFamilies: activity}},
		{name: "bad merge key", spec: EdgeSpec{Type: "FUNDS", SourceFamilies: activity, TargetFamilies: activity, MergeKey: "a b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileEdgeMerge(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestCompileNodeMerge(t *testing.T) {
	stmt, err := CompileNodeMerge(PhantomActivity)
	require.NoError(t, err)
	assert.Equal(t, "UNWIND $batch AS row\nMERGE (n:PhantomActivity {phantom_activity_identifier: row.id})\nSET n = row.props\nRETURN count(n) AS merged", stmt.Cypher)

	_, err = CompileNodeMerge(NodeVariant{Label: "Person", IDProperty: "id"})
	assert.Error(t, err)
}

func TestConstraintCypher(t *testing.T) {
	assert.Equal(t,
		"CREATE CONSTRAINT publishedactivity_iatiidentifier_unique IF NOT EXISTS FOR (n:PublishedActivity) REQUIRE n.iatiidentifier IS UNIQUE",
		constraintCypher(DialectNeo4j, PublishedActivity))
	assert.Equal(t,
		"CREATE CONSTRAINT ON (n:PhantomOrganisation) ASSERT n.reference IS UNIQUE",
		constraintCypher(DialectMemgraph, PhantomOrganisation))
}

func TestResolveCypher(t *testing.T) {
	cypher := resolveCypher(models.FamilyOrganisation)
	assert.Equal(t, "UNWIND $ids AS id\n"+
		"OPTIONAL MATCH (found0_n:PublishedOrganisation {organisationidentifier: id})\n"+
		"WITH id, count(found0_n) > 0 AS found0\n"+
		"OPTIONAL MATCH (found1_n:PhantomOrganisation {reference: id})\n"+
		"WITH id, found0, count(found1_n) > 0 AS found1\n"+
		"RETURN id, found0 AS published, found1 AS phantom", cypher)
}
