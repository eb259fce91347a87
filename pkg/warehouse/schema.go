package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// EnsureDatabase creates a database if it does not already exist
func EnsureDatabase(ctx context.Context, client ClientInterface, database string) error {
	query := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)

	if _, err := client.Execute(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure database %s: %w", database, err)
	}

	return nil
}

// TableExists checks whether a table or view exists in the warehouse
func TableExists(ctx context.Context, client ClientInterface, database, table string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT count() AS cnt FROM system.tables WHERE database = '%s' AND name = '%s'",
		database, table,
	)

	var result struct {
		Count uint64 `json:"cnt,string"`
	}

	if err := client.QueryOne(ctx, query, &result); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}

	return result.Count > 0, nil
}

// TruncateTable removes all rows from a table ahead of a full refresh
func TruncateTable(ctx context.Context, client ClientInterface, database, table string) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s.%s", database, table)

	if _, err := client.Execute(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate %s.%s: %w", database, table, err)
	}

	return nil
}

// CountRows returns the number of rows in a table
func CountRows(ctx context.Context, client ClientInterface, database, table string) (uint64, error) {
	query := fmt.Sprintf("SELECT count() AS cnt FROM %s.%s", database, table)

	var result struct {
		Count uint64 `json:"cnt,string"`
	}

	if err := client.QueryOne(ctx, query, &result); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s.%s: %w", database, table, err)
	}

	return result.Count, nil
}

// SplitStatements splits a SQL script into individual statements.
// Empty fragments between semicolons are dropped.
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))

	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}

	return statements
}
