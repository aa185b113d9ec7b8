package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"

	"listing-resolver/models"
)

// CSVWriter writes accepted duplicate pairs to a CSV file, one row per pair.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrap(err, "csv: create output dir")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: create file %q", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"run_id", "batch", "shop_a", "title_a", "url_a", "shop_b", "title_b", "url_b",
		"probability", "true_duplicate",
	}); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "csv: write header")
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteReport appends the report's accepted pairs.
func (c *CSVWriter) WriteReport(r *models.RunReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range r.Duplicates {
		row := []string{
			r.RunID.String(),
			r.Batch,
			d.ShopA, d.TitleA, d.URLA,
			d.ShopB, d.TitleB, d.URLB,
			strconv.FormatFloat(d.Probability, 'f', 6, 64),
			strconv.FormatBool(d.TrueDuplicate),
		}
		if err := c.writer.Write(row); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
