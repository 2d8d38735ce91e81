//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupNeo4jContainer starts a Neo4j container for testing
func setupNeo4jContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "neo4j:5-community",
		ExposedPorts: []string{"7687/tcp"},
		Env: map[string]string{
			"NEO4J_AUTH": "neo4j/integration",
		},
		WaitingFor: wait.ForLog("Started.").
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start Neo4j container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	uri := fmt.Sprintf("bolt://%s:%s", host, port.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return uri, cleanup
}

func TestNeo4jClientRoundTrip(t *testing.T) {
	uri, cleanup := setupNeo4jContainer(t)
	defer cleanup()

	ctx := context.Background()
	client, err := NewNeo4jClient(ctx, Neo4jConfig{
		URI:      uri,
		Username: "neo4j",
		Password: "integration",
	})
	require.NoError(t, err)
	defer client.Close(ctx)

	t.Run("create returns the assigned identity", func(t *testing.T) {
		res, err := client.Run(ctx, &Statement{
			Text:   "CREATE (n:Person) SET n = $props RETURN id(n) AS n_id",
			Params: map[string]interface{}{"props": map[string]interface{}{"name": "Alice", "age": 30}},
		})
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())

		row, _ := res.First()
		id, ok := row.Int("n_id")
		require.True(t, ok)
		assert.GreaterOrEqual(t, id, int64(0))
	})

	t.Run("match returns node columns as bags", func(t *testing.T) {
		res, err := client.Run(ctx, &Statement{
			Text:   "MATCH (n:Person) WHERE n.name = $p0 RETURN n AS n_value",
			Params: map[string]interface{}{"p0": "Alice"},
		})
		require.NoError(t, err)
		require.Equal(t, 1, res.Len())

		row, _ := res.First()
		bag, ok := row.Bag("n_value")
		require.True(t, ok)
		assert.Equal(t, "Alice", bag["name"])
		assert.Equal(t, int64(30), bag["age"])
	})

	t.Run("detach delete reports a counter", func(t *testing.T) {
		res, err := client.Run(ctx, &Statement{
			Text:   "MATCH (n:Person) WHERE n.name = $p0 DETACH DELETE n RETURN count(n) AS deleted",
			Params: map[string]interface{}{"p0": "Alice"},
		})
		require.NoError(t, err)

		row, ok := res.First()
		require.True(t, ok)
		deleted, ok := row.Int("deleted")
		require.True(t, ok)
		assert.Equal(t, int64(1), deleted)
	})

	t.Run("no matches yields an empty result, not an error", func(t *testing.T) {
		res, err := client.Run(ctx, &Statement{
			Text:   "MATCH (n:Person) WHERE n.name = $p0 RETURN n AS n_value",
			Params: map[string]interface{}{"p0": "Nobody"},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Len())
	})
}
