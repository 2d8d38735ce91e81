package store

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Neo4jClient implements Client on the official Bolt driver. Every Run opens
// a short-lived session, executes the statement and materializes the full
// row set before returning, so results never outlive the session.
type Neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jConfig carries the connection settings for NewNeo4jClient.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string

	// Database selects a named database; empty uses the server default.
	Database string
}

// NewNeo4jClient connects to a Neo4j-compatible server and verifies
// connectivity before returning.
func NewNeo4jClient(ctx context.Context, cfg Neo4jConfig) (*Neo4jClient, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	return &Neo4jClient{driver: driver, database: cfg.Database}, nil
}

// Run executes the statement in a write session and converts every record
// into a Row. Node columns become bag values carrying the node's property
// map; everything else passes through as a scalar.
func (c *Neo4jClient) Run(ctx context.Context, stmt *Statement) (*Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer session.Close(ctx)

	result, err := session.Run(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to run statement: %w", err)
	}

	out := &Result{}
	for result.Next(ctx) {
		record := result.Record()
		row := make(Row, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = convertValue(record.Values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to consume result: %w", err)
	}

	return out, nil
}

// Close shuts down the underlying driver.
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func convertValue(v interface{}) Value {
	switch val := v.(type) {
	case nil:
		return Absent()
	case dbtype.Node:
		return Bag(val.Props)
	case dbtype.Relationship:
		return Bag(val.Props)
	case map[string]interface{}:
		return Bag(val)
	default:
		return Scalar(v)
	}
}
