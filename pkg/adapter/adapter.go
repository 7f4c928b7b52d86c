// Package adapter defines the executor contract for running authorized
// query text against a backing database.
//
// Adapters only read. The pipeline guarantees the SQL it hands over is a
// restricted SELECT, and the executor surface offers no statement
// execution beyond Query. Concrete implementations live in pkg/adapters/
// subdirectories and register themselves at init time.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
)

// Config describes the executor target.
type Config struct {
	// Type selects the registered adapter (postgres, sqlite, duckdb).
	Type     string `koanf:"type"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	// Path is the database file for file-backed engines; ":memory:"
	// selects an in-memory database.
	Path    string            `koanf:"path"`
	Options map[string]string `koanf:"options"`
}

// Adapter is the interface all executor adapters implement.
type Adapter interface {
	// Connect establishes the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Query runs one authorized SELECT and returns its rows.
	Query(ctx context.Context, sql string) (*Rows, error)
}

// Rows wraps the standard result set.
type Rows struct {
	*sql.Rows
}

// ReadAll drains the result set into column names and value records,
// closing it afterwards.
func (r *Rows) ReadAll() ([]string, [][]any, error) {
	defer func() { _ = r.Close() }()

	columns, err := r.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var records [][]any
	for r.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := r.Scan(targets...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			// Drivers hand back []byte for text columns; normalize for
			// rendering and JSON encoding.
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		records = append(records, values)
	}
	if err := r.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return columns, records, nil
}
