package services

import (
	"listing-resolver/config"
	"listing-resolver/models"
)

// SameModel is the evaluation labeler: two listings are duplicates when they
// share a model id.
func SameModel(a, b *models.Listing) bool {
	return a.ModelID != "" && a.ModelID == b.ModelID
}

// GroundTruth returns every pair of listings sharing a model id.
func GroundTruth(listings []*models.Listing) *models.PairSet {
	byModel := make(map[string][]int)
	for i, l := range listings {
		if l.ModelID == "" {
			continue
		}
		byModel[l.ModelID] = append(byModel[l.ModelID], i)
	}

	truth := models.NewPairSet()
	for _, members := range byModel {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				truth.Add(models.NewPair(members[x], members[y]))
			}
		}
	}
	return truth
}

// Evaluate compares found pairs against the ground truth over a population
// of numListings. For the candidate set, precision is the pair quality and
// recall the pair completeness.
func Evaluate(found, truth *models.PairSet, numListings int) models.Metrics {
	var m models.Metrics
	for _, p := range found.Sorted() {
		if truth.Contains(p) {
			m.TP++
		} else {
			m.FP++
		}
	}
	m.FN = truth.Size() - m.TP
	m.TN = TotalPairs(numListings) - m.TP - m.FP - m.FN

	m.Precision = safeDiv(float64(m.TP), float64(m.TP+m.FP))
	m.Recall = safeDiv(float64(m.TP), float64(m.TP+m.FN))
	m.F1 = safeDiv(2*m.Precision*m.Recall, m.Precision+m.Recall)
	return m
}

// BuildReport summarizes a result for the writers and the console.
func BuildReport(batch string, cfg config.Pipeline, res *Result) *models.RunReport {
	report := models.NewRunReport(batch)
	report.NumListings = len(res.Listings)
	report.NumHashFunctions = cfg.NumHashFunctions
	report.NumBands = cfg.NumBands
	report.NumRows = cfg.NumRows
	report.Threshold = cfg.DecisionThreshold
	report.NumCandidates = res.Candidates.Size()
	report.ComparisonRatio = ComparisonRatio(res.Candidates.Size(), len(res.Listings))
	report.Verified = res.Verified

	truth := GroundTruth(res.Listings)
	report.Candidates = Evaluate(res.Candidates, truth, len(res.Listings))
	if res.Verified {
		report.Final = Evaluate(res.Duplicates, truth, len(res.Listings))
	}

	prob := make(map[models.Pair]float64, len(res.Scored))
	for _, sp := range res.Scored {
		prob[sp.Pair] = sp.Probability
	}
	for _, p := range res.Duplicates.Sorted() {
		a, b := res.Listings[p.A], res.Listings[p.B]
		report.Duplicates = append(report.Duplicates, models.DuplicatePair{
			ShopA: a.Shop, ShopB: b.Shop,
			TitleA: a.Title, TitleB: b.Title,
			URLA: a.URL, URLB: b.URL,
			Probability:   prob[p],
			TrueDuplicate: truth.Contains(p),
		})
	}
	return report
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// SweepRows re-bands one set of signatures for every rows-per-band value,
// reusing the same hash draws, and evaluates each candidate set. Values that
// do not divide the signature length are configuration errors.
func SweepRows(res *Result, cfg config.Pipeline, rows []int) ([]SweepRow, error) {
	truth := GroundTruth(res.Listings)
	out := make([]SweepRow, 0, len(rows))
	for _, r := range rows {
		p := cfg.WithRows(r)
		bander, err := NewBander(p.NumBands, p.NumRows, p.NumHashFunctions, p.MaxConcurrency)
		if err != nil {
			return nil, err
		}
		cands, err := bander.Candidates(res.Signatures)
		if err != nil {
			return nil, err
		}
		out = append(out, SweepRow{
			NumBands:        p.NumBands,
			NumRows:         p.NumRows,
			Threshold:       bander.Threshold(),
			NumCandidates:   cands.Size(),
			ComparisonRatio: ComparisonRatio(cands.Size(), len(res.Listings)),
			Metrics:         Evaluate(cands, truth, len(res.Listings)),
		})
	}
	return out, nil
}
