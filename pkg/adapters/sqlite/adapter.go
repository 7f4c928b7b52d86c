// Package sqlite provides the SQLite executor adapter, backed by a pure
// Go driver so no cgo toolchain is needed.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // sqlite database/sql driver

	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

// Adapter implements adapter.Adapter for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a SQLite adapter. A nil logger uses a discard logger.
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
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}
