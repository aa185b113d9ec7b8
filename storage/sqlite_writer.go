package storage

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteWriter persists run reports to a local SQLite file.
type SQLiteWriter struct {
	sqlWriter
}

// NewSQLiteWriter opens (or creates) the database at path and runs schema
// migrations. ":memory:" gives a throwaway database.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, eris.Wrap(err, "sqlite: create output dir")
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: open %q", path)
	}
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{sqlWriter{db: db, name: "sqlite", placeholder: questionPlaceholder}}
	if err := sw.migrate(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sw, nil
}

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS resolver_runs (
		run_id              TEXT PRIMARY KEY,
		batch               TEXT    NOT NULL,
		created_at          TIMESTAMP NOT NULL,
		num_listings        INTEGER NOT NULL,
		num_hash_functions  INTEGER NOT NULL,
		num_bands           INTEGER NOT NULL,
		num_rows            INTEGER NOT NULL,
		decision_threshold  REAL    NOT NULL,
		num_candidates      INTEGER NOT NULL,
		comparison_ratio    REAL    NOT NULL,
		pair_quality        REAL    NOT NULL,
		pair_completeness   REAL    NOT NULL,
		f1_star             REAL    NOT NULL,
		final_precision     REAL    NOT NULL,
		final_recall        REAL    NOT NULL,
		final_f1            REAL    NOT NULL,
		verified            BOOLEAN NOT NULL
	);

	CREATE TABLE IF NOT EXISTS duplicate_pairs (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id         TEXT    NOT NULL REFERENCES resolver_runs(run_id),
		shop_a         TEXT    NOT NULL,
		title_a        TEXT    NOT NULL,
		url_a          TEXT    NOT NULL DEFAULT '',
		shop_b         TEXT    NOT NULL,
		title_b        TEXT    NOT NULL,
		url_b          TEXT    NOT NULL DEFAULT '',
		probability    REAL    NOT NULL,
		true_duplicate BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_run ON duplicate_pairs(run_id);
`
