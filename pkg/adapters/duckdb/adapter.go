// Package duckdb provides the DuckDB executor adapter.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb" // duckdb database/sql driver

	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

// Adapter implements adapter.Adapter for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a DuckDB adapter. A nil logger uses a discard logger.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger}}
}

// Connect opens the database file. An empty path selects an in-memory
// database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	} else if !filepath.IsAbs(path) && path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve duckdb path %s: %w", path, err)
		}
		path = abs
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}
