package migrations

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS results (
	roll_no          TEXT PRIMARY KEY,
	seq              INTEGER NOT NULL,
	gender           TEXT NOT NULL DEFAULT '',
	caste_category   TEXT NOT NULL,
	marks            DOUBLE PRECISION NOT NULL DEFAULT 0,
	is_ph            BOOLEAN NOT NULL DEFAULT FALSE,
	is_ex_serviceman BOOLEAN NOT NULL DEFAULT FALSE,
	batch_id         TEXT NOT NULL,
	imported_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_seq ON results (seq);`

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS results (
	roll_no          TEXT PRIMARY KEY,
	seq              INTEGER NOT NULL,
	gender           TEXT NOT NULL DEFAULT '',
	caste_category   TEXT NOT NULL,
	marks            REAL NOT NULL DEFAULT 0,
	is_ph            BOOLEAN NOT NULL DEFAULT 0,
	is_ex_serviceman BOOLEAN NOT NULL DEFAULT 0,
	batch_id         TEXT NOT NULL,
	imported_at      DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_results_seq ON results (seq);`

// requiredTables must exist after InitSchema
var requiredTables = []string{"results"}

// InitSchema creates the results table if needed and verifies that all
// required tables exist. driver is "postgres" or "sqlite".
func InitSchema(ctx context.Context, db *sql.DB, driver string) error {
	var schema, existsQuery string
	switch driver {
	case "postgres":
		schema = schemaPostgres
		existsQuery = `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = $1
			)`
	case "sqlite":
		schema = schemaSQLite
		existsQuery = `SELECT EXISTS (SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = $1)`
	default:
		return errors.Errorf("unsupported driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "error creating schema")
	}

	for _, table := range requiredTables {
		var exists bool
		if err := db.QueryRowContext(ctx, existsQuery, table).Scan(&exists); err != nil {
			return errors.Wrapf(err, "error checking table %s", table)
		}
		if !exists {
			return errors.Errorf("required table %s does not exist", table)
		}
	}

	return nil
}
