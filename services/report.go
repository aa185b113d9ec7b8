package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"listing-resolver/models"
	"listing-resolver/utils"
)

// ReportService prints run reports to the console.
type ReportService struct {
	logger *utils.Logger
	out    io.Writer
}

// NewReportService creates a ReportService writing to stdout.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger, out: os.Stdout}
}

// SweepRow is one num_rows setting of a banding sweep.
type SweepRow struct {
	NumBands        int
	NumRows         int
	Threshold       float64
	NumCandidates   int
	ComparisonRatio float64
	Metrics         models.Metrics
}

// Print writes a boxed summary of r.
func (s *ReportService) Print(r *models.RunReport) {
	sep := strings.Repeat("═", 58)
	thin := strings.Repeat("─", 58)
	w := s.out
	s.logger.Debug("[report] Printing run %s (%s batch)", r.RunID, r.Batch)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  DUPLICATE RESOLUTION: %s batch\033[0m\n", r.Batch)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run id            : %s\n", r.RunID)
	fmt.Fprintf(w, "  Listings          : \033[1m%d\033[0m\n", r.NumListings)
	fmt.Fprintf(w, "  Hash functions    : %d (%d bands x %d rows, threshold %.2f)\n",
		r.NumHashFunctions, r.NumBands, r.NumRows, AcceptanceThreshold(r.NumBands, r.NumRows))
	fmt.Fprintf(w, "  Candidate pairs   : \033[1m%d\033[0m\n", r.NumCandidates)
	fmt.Fprintf(w, "  Comparison ratio  : %.2f%%\n", r.ComparisonRatio*100)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Candidate stage (LSH)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	printMetrics(w, r.Candidates, "Pair quality", "Pair completeness", "F1*")
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Final duplicates\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if !r.Verified {
		fmt.Fprintf(w, "  Verification skipped: classifier could not be fitted\n")
	} else {
		printMetrics(w, r.Final, "Precision", "Recall", "F1")
		fmt.Fprintf(w, "  Accepted pairs    : %d (decision threshold %.2f)\n", len(r.Duplicates), r.Threshold)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintSweep writes one line per banding setting.
func (s *ReportService) PrintSweep(rows []SweepRow) {
	w := s.out
	fmt.Fprintf(w, "\n\033[1;33m  Banding sweep\033[0m\n")
	fmt.Fprintf(w, "  %6s %6s %9s %11s %8s %8s %8s\n", "bands", "rows", "threshold", "candidates", "ratio", "PC", "F1*")
	for _, r := range rows {
		fmt.Fprintf(w, "  %6d %6d %9.2f %11d %7.2f%% %7.2f%% %7.2f%%\n",
			r.NumBands, r.NumRows, r.Threshold, r.NumCandidates,
			r.ComparisonRatio*100, r.Metrics.Recall*100, r.Metrics.F1*100)
	}
	fmt.Fprintln(w)
}

func printMetrics(w io.Writer, m models.Metrics, precision, recall, f1 string) {
	fmt.Fprintf(w, "  TP %d | FP %d | FN %d | TN %d\n", m.TP, m.FP, m.FN, m.TN)
	fmt.Fprintf(w, "  %-18s: \033[1;32m%.2f%%\033[0m\n", precision, m.Precision*100)
	fmt.Fprintf(w, "  %-18s: \033[1;32m%.2f%%\033[0m\n", recall, m.Recall*100)
	fmt.Fprintf(w, "  %-18s: \033[1;32m%.2f%%\033[0m\n", f1, m.F1*100)
}
