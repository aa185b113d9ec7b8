package storage

import (
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"

	"listing-resolver/utils"
)

// PostgresWriter persists run reports to PostgreSQL.
type PostgresWriter struct {
	sqlWriter
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it with the
// given retry policy, runs schema migrations and returns a ready writer.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, err
	}

	pw := &PostgresWriter{sqlWriter{db: db, name: "postgres", placeholder: dollarPlaceholder}}
	if err := pw.migrate(postgresSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pw, nil
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS resolver_runs (
		run_id              UUID PRIMARY KEY,
		batch               VARCHAR(50)  NOT NULL,
		created_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		num_listings        INTEGER      NOT NULL,
		num_hash_functions  INTEGER      NOT NULL,
		num_bands           INTEGER      NOT NULL,
		num_rows            INTEGER      NOT NULL,
		decision_threshold  NUMERIC(6,4) NOT NULL,
		num_candidates      INTEGER      NOT NULL,
		comparison_ratio    DOUBLE PRECISION NOT NULL,
		pair_quality        DOUBLE PRECISION NOT NULL,
		pair_completeness   DOUBLE PRECISION NOT NULL,
		f1_star             DOUBLE PRECISION NOT NULL,
		final_precision     DOUBLE PRECISION NOT NULL,
		final_recall        DOUBLE PRECISION NOT NULL,
		final_f1            DOUBLE PRECISION NOT NULL,
		verified            BOOLEAN      NOT NULL
	);

	CREATE TABLE IF NOT EXISTS duplicate_pairs (
		id             SERIAL PRIMARY KEY,
		run_id         UUID    NOT NULL REFERENCES resolver_runs(run_id) ON DELETE CASCADE,
		shop_a         TEXT    NOT NULL,
		title_a        TEXT    NOT NULL,
		url_a          TEXT    NOT NULL DEFAULT '',
		shop_b         TEXT    NOT NULL,
		title_b        TEXT    NOT NULL,
		url_b          TEXT    NOT NULL DEFAULT '',
		probability    DOUBLE PRECISION NOT NULL,
		true_duplicate BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_duplicate_pairs_run ON duplicate_pairs(run_id);
`
