package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/fern/pkg/graph"
)

// graphTarget is the graph database a test runs against
type graphTarget struct {
	uri      string
	username string
	password string
	dialect  graph.Dialect
}

// graphFromEnv reads FERN_TEST_NEO4J_URI and friends; ok is false when no graph is configured
func graphFromEnv() (graphTarget, bool) {
	uri := os.Getenv("FERN_TEST_NEO4J_URI")
	if uri == "" {
		return graphTarget{}, false
	}
	dialect := graph.DialectNeo4j
	if os.Getenv("FERN_TEST_GRAPH_DIALECT") == string(graph.DialectMemgraph) {
		dialect = graph.DialectMemgraph
	}
	return graphTarget{
		uri:      uri,
		username: os.Getenv("FERN_TEST_NEO4J_USER"),
		password: os.Getenv("FERN_TEST_NEO4J_PASSWORD"),
		dialect:  dialect,
	}, true
}

// startMemgraph runs a throwaway Memgraph container for the test. The test is skipped when no
// container runtime is available.
func startMemgraph(t *testing.T) graphTarget {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "memgraph/memgraph:latest",
		ExposedPorts: []string{"7687/tcp"},
		WaitingFor: wait.ForLog("Server is fully armed and operational").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Skipping: failed to start Memgraph: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate Memgraph: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to read Memgraph host: %v", err)
	}
	port, err := container.MappedPort(ctx, "7687")
	if err != nil {
		t.Fatalf("failed to read Memgraph port: %v", err)
	}

	return graphTarget{uri: fmt.Sprintf("bolt://%s:%s", host, port.Port()), dialect: graph.DialectMemgraph}
}

// graphForTest prefers the configured graph and falls back to a Memgraph container
func graphForTest(t *testing.T) graphTarget {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if target, ok := graphFromEnv(); ok {
		return target
	}
	return startMemgraph(t)
}
