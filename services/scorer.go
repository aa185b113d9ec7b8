package services

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/pmezard/go-difflib/difflib"

	"listing-resolver/models"
	"listing-resolver/utils"
)

// PairScorer computes the verification features of candidate pairs.
type PairScorer struct {
	workers     int
	jaroWinkler *metrics.JaroWinkler
}

// NewPairScorer creates a scorer that scores batches on workers goroutines.
func NewPairScorer(workers int) *PairScorer {
	jw := metrics.NewJaroWinkler()
	jw.CaseSensitive = false
	return &PairScorer{workers: workers, jaroWinkler: jw}
}

// Score returns the feature vector of a pair. ok is false when a structural
// rule rejected the pair: same shop, or two known brands that differ. The
// features are then zero.
func (s *PairScorer) Score(a, b *models.Listing) (f models.Features, ok bool) {
	if a.Shop == b.Shop {
		return models.Features{}, false
	}
	if a.HasBrand() && b.HasBrand() && a.Brand != b.Brand {
		return models.Features{}, false
	}

	f[0] = TokenSequenceRatio(a.SortedTokens(), b.SortedTokens())
	f[1] = strutil.Similarity(compactTitle(a.Title), compactTitle(b.Title), s.jaroWinkler)
	return f, true
}

// ScoreAll scores pairs over listings in parallel. The output is in the
// order of pairs.
func (s *PairScorer) ScoreAll(listings []*models.Listing, pairs []models.Pair) []models.ScoredPair {
	out := make([]models.ScoredPair, len(pairs))
	utils.ParallelRange(s.workers, len(pairs), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := pairs[i]
			f, ok := s.Score(listings[p.A], listings[p.B])
			out[i] = models.ScoredPair{Pair: p, Features: f, Rejected: !ok}
		}
	})
	return out
}

// TokenSequenceRatio treats two sorted token lists as sequences and returns
// the longest-matching-block ratio 2*M/T.
func TokenSequenceRatio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}

func compactTitle(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", ""))
}
