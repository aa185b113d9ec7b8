package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"listing-resolver/models"
)

const pairBatchSize = 50

// sqlWriter holds the insert logic shared by the PostgreSQL and SQLite
// backends. Only the DDL and the placeholder syntax differ.
type sqlWriter struct {
	db          *sql.DB
	name        string
	placeholder func(n int) string
}

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

func (w *sqlWriter) migrate(ddl string) error {
	if _, err := w.db.Exec(ddl); err != nil {
		return eris.Wrapf(err, "%s: migrate", w.name)
	}
	return nil
}

func (w *sqlWriter) placeholders(start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = w.placeholder(start + i)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// WriteReport stores the run row and its accepted pairs in one transaction.
func (w *sqlWriter) WriteReport(r *models.RunReport) error {
	tx, err := w.db.Begin()
	if err != nil {
		return eris.Wrapf(err, "%s: begin", w.name)
	}
	defer tx.Rollback()

	runQuery := `
		INSERT INTO resolver_runs (
			run_id, batch, created_at, num_listings, num_hash_functions, num_bands, num_rows,
			decision_threshold, num_candidates, comparison_ratio,
			pair_quality, pair_completeness, f1_star, final_precision, final_recall, final_f1, verified
		) VALUES ` + w.placeholders(1, 17)
	_, err = tx.Exec(runQuery,
		r.RunID.String(), r.Batch, r.CreatedAt, r.NumListings, r.NumHashFunctions, r.NumBands, r.NumRows,
		r.Threshold, r.NumCandidates, r.ComparisonRatio,
		r.Candidates.Precision, r.Candidates.Recall, r.Candidates.F1,
		r.Final.Precision, r.Final.Recall, r.Final.F1, r.Verified,
	)
	if err != nil {
		return eris.Wrapf(err, "%s: insert run", w.name)
	}

	for i := 0; i < len(r.Duplicates); i += pairBatchSize {
		end := i + pairBatchSize
		if end > len(r.Duplicates) {
			end = len(r.Duplicates)
		}
		if err := w.insertPairs(tx, r.RunID.String(), r.Duplicates[i:end]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "%s: commit", w.name)
	}
	return nil
}

func (w *sqlWriter) insertPairs(tx *sql.Tx, runID string, batch []models.DuplicatePair) error {
	const cols = 9
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, d := range batch {
		valueStrings = append(valueStrings, w.placeholders(idx*cols+1, cols))
		valueArgs = append(valueArgs,
			runID, d.ShopA, d.TitleA, d.URLA, d.ShopB, d.TitleB, d.URLB, d.Probability, d.TrueDuplicate)
	}

	query := fmt.Sprintf(`
		INSERT INTO duplicate_pairs (run_id, shop_a, title_a, url_a, shop_b, title_b, url_b, probability, true_duplicate)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	if _, err := tx.Exec(query, valueArgs...); err != nil {
		return eris.Wrapf(err, "%s: insert pairs", w.name)
	}
	return nil
}

// CountPairs returns the number of stored pairs of a run.
func (w *sqlWriter) CountPairs(runID string) (int, error) {
	var n int
	err := w.db.QueryRow("SELECT COUNT(*) FROM duplicate_pairs WHERE run_id = "+w.placeholder(1), runID).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: count pairs", w.name)
	}
	return n, nil
}

func (w *sqlWriter) Close() error {
	return w.db.Close()
}
