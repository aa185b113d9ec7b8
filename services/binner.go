package services

import (
	"math"
	"sort"

	"listing-resolver/models"
)

// QuantileEdges are the bin edges of one batch. They are computed once over
// the whole population and then applied to every listing of that batch.
type QuantileEdges struct {
	Weight   []float64
	Diagonal []float64
}

// FitQuantiles computes the weight and diagonal edges at the given levels
// over the non-missing values of the batch. An empty batch is a
// configuration error.
func FitQuantiles(listings []*models.Listing, levels []float64) (QuantileEdges, error) {
	if len(listings) == 0 {
		return QuantileEdges{}, models.NewConfigError("listings", "quantile binning needs a non-empty population")
	}

	var weights, diagonals []float64
	for _, l := range listings {
		if l.Weight != nil {
			weights = append(weights, *l.Weight)
		}
		if l.Diagonal != nil {
			diagonals = append(diagonals, *l.Diagonal)
		}
	}
	return QuantileEdges{
		Weight:   Quantiles(weights, levels),
		Diagonal: Quantiles(diagonals, levels),
	}, nil
}

// Apply assigns WeightBin and DiagonalBin. Absent scalars leave the bin nil.
func (e QuantileEdges) Apply(listings []*models.Listing) {
	for _, l := range listings {
		l.WeightBin = binOf(e.Weight, l.Weight)
		l.DiagonalBin = binOf(e.Diagonal, l.Diagonal)
	}
}

func binOf(edges []float64, v *float64) *int {
	if v == nil {
		return nil
	}
	b := BinIndex(edges, *v)
	return &b
}

// BinIndex returns the number of edges <= v.
func BinIndex(edges []float64, v float64) int {
	return sort.Search(len(edges), func(i int) bool { return edges[i] > v })
}

// Quantiles returns the empirical quantiles of values at levels, linearly
// interpolating between order statistics. No values gives no edges.
func Quantiles(values []float64, levels []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	edges := make([]float64, len(levels))
	last := float64(len(sorted) - 1)
	for i, q := range levels {
		pos := q * last
		lo := math.Floor(pos)
		hi := math.Ceil(pos)
		frac := pos - lo
		edges[i] = sorted[int(lo)] + frac*(sorted[int(hi)]-sorted[int(lo)])
	}
	return edges
}
