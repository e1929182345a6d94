package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/source"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/loader"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/orchestrator"
)

// testContext holds the stores shared by one pipeline test
type testContext struct {
	ctx    context.Context
	store  *graph.Store
	orch   *orchestrator.Orchestrator
	logDir string
}

// setupTestContext builds a SQLite warehouse and connects to the graph named by FERN_TEST_NEO4J_URI,
// or to a Memgraph container when none is set. The graph is wiped first, so never point it at a
// shared database.
func setupTestContext(t *testing.T) *testContext {
	target := graphForTest(t)

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	ctx := context.Background()

	db, err := sqlx.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "warehouse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	seedWarehouse(t, db)

	client, err := graph.NewClient(graph.Config{
		URI:      target.uri,
		Username: target.username,
		Password: target.password,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close(context.Background()) })
	require.NoError(t, client.VerifyConnectivity(ctx))

	store := graph.NewStore(client, target.dialect, logger)
	_, err = store.Wipe(ctx, 1000)
	require.NoError(t, err)

	logDir := t.TempDir()
	reader := source.NewReader(database.NewDatabaseInstance(db, logger), "", logger)
	driver := loader.NewDriver(reader, store, logDir, logger)

	return &testContext{
		ctx:    ctx,
		store:  store,
		orch:   orchestrator.New(driver, store, logger),
		logDir: logDir,
	}
}

func seedWarehouse(t *testing.T, db *sqlx.DB) {
	t.Helper()
	db.MustExec(`CREATE TABLE published_activities (iatiidentifier TEXT, title_narrative TEXT, reportingorg_ref TEXT)`)
	db.MustExec(`CREATE TABLE published_organisations (
		organisationidentifier TEXT, name_narrative TEXT, hierarchy INTEGER, reportingorg_ref TEXT, dportal_link TEXT)`)
	db.MustExec(`CREATE TABLE phantom_organisations (
		reference TEXT, distinct_narratives TEXT, phantom_in_participatingorg INTEGER,
		phantom_in_transaction_provider INTEGER, phantom_in_transaction_receiver INTEGER, phantom_in_orgbudget_recipient INTEGER)`)
	db.MustExec(`CREATE TABLE participation_links (organisation_id TEXT, activity_id TEXT, role_code TEXT, role_name TEXT)`)

	db.MustExec(`INSERT INTO published_activities VALUES
		('XM-1', 'Clean water', 'GB-1'),
		('XM-2', 'School meals', 'GB-2'),
		('XM-3', 'Anonymous', NULL)`)
	db.MustExec(`INSERT INTO published_organisations VALUES ('GB-1', 'Org one', 1, 'GB-1', NULL)`)
	db.MustExec(`INSERT INTO phantom_organisations VALUES
		('GB-2', '["Org two"]', 1, 0, 0, 0),
		('GB-2', '["Org 2"]', 0, 1, 0, 0)`)
	db.MustExec(`INSERT INTO participation_links VALUES
		('GB-1', 'XM-1', '1', 'Funding'),
		('GB-1', 'XM-1', '4', 'Implementing'),
		('GB-2', 'XM-2', '1', 'Funding'),
		('GB-9', 'XM-2', '1', 'Funding'),
		(NULL, 'XM-3', '1', 'Funding')`)
}

func result(t *testing.T, report *orchestrator.Report, name string) *models.RunResult {
	t.Helper()
	for _, res := range report.Results {
		if res.Loader == name {
			return res
		}
	}
	require.Failf(t, "missing result", "loader %s did not run", name)
	return nil
}

func TestPipeline_LoadIsIdempotent(t *testing.T) {
	tc := setupTestContext(t)
	only := []string{"published_activities", "published_organisations", "phantom_organisations", "publication", "participation"}

	report := tc.orch.Run(tc.ctx, orchestrator.Options{RunID: uuid.NewString(), Only: only})
	require.NoError(t, report.Err)
	require.Len(t, report.Results, len(only))

	pub := result(t, report, "publication")
	assert.Equal(t, int64(3), pub.Counters.Expected)
	assert.Equal(t, int64(2), pub.Counters.Successful)
	assert.Equal(t, int64(1), pub.Counters.SkippedNull)

	part := result(t, report, "participation")
	assert.Equal(t, int64(5), part.Counters.Expected)
	assert.Equal(t, int64(3), part.Counters.Successful)
	assert.Equal(t, int64(1), part.Counters.SkippedNull)
	assert.Equal(t, int64(1), part.Counters.SkippedUnresolved)

	n, err := tc.store.CountRelationships(tc.ctx, "PARTICIPATES_IN")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n, "both GB-1 roles on XM-1 share one relationship")

	n, err = tc.store.CountNodes(tc.ctx, graph.PhantomOrganisation.Label)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	details, err := os.ReadFile(filepath.Join(tc.logDir, "participation_skipped_details.log"))
	require.NoError(t, err)
	assert.Contains(t, string(details), "GB-9\tXM-2\tORGANISATION\tACTIVITY\tSOURCE_MISSING")

	again := tc.orch.Run(tc.ctx, orchestrator.Options{RunID: uuid.NewString(), Only: only})
	require.NoError(t, again.Err)
	for _, res := range again.Results {
		require.NotNil(t, res.Counters.Before, res.Loader)
		require.NotNil(t, res.Counters.After, res.Loader)
		assert.Equal(t, *res.Counters.Before, *res.Counters.After, "%s created new entities on rerun", res.Loader)
	}

	lines := strings.Count(string(details), "\n")
	details, err = os.ReadFile(filepath.Join(tc.logDir, "participation_skipped_details.log"))
	require.NoError(t, err)
	assert.Equal(t, 2*lines-1, strings.Count(string(details), "\n"), "header is written once")
}
