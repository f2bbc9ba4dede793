// Package journal is the local record of what this client has submitted:
// every job submission and its terminal outcome, plus the recurring
// submission schedules. It exists so history and schedules survive restarts
// and are readable without the backend being up.
package journal

import (
	"context"
	"fmt"

	"github.com/cybersectk/cstk/internal/config"
)

// DB is the storage interface backing the journal.
// Implementations exist for SQLite (default) and MySQL.
type DB interface {
	// Select executes a query and scans rows into dest (slice pointer).
	Select(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Get executes a query expected to return a single row and scans into dest.
	Get(ctx context.Context, dest interface{}, query string, args ...interface{}) error

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, query string, args ...interface{}) error

	// Insert inserts a struct-tagged record into table and returns the new row ID.
	Insert(ctx context.Context, table string, record interface{}) (int64, error)

	// Migrate applies pending schema migrations in order.
	Migrate(ctx context.Context) error

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close releases the database connection.
	Close() error

	// Driver returns the backend name: "sqlite" or "mysql".
	Driver() string
}

// Open returns a DB implementation matching cfg.Driver.
// SQLite is the default when driver is empty or unrecognised.
func Open(cfg config.JournalConfig) (DB, error) {
	switch cfg.Driver {
	case "mysql":
		return NewMySQL(cfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported journal driver %q (supported: sqlite, mysql)", cfg.Driver)
	}
}
