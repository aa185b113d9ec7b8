package services

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"listing-resolver/models"
	"listing-resolver/utils"
)

// Bander groups signatures into LSH buckets. All bands share one bucket
// table: two listings become candidates when any band of one hashes to the
// same key as any band of the other.
type Bander struct {
	numBands int
	numRows  int
	workers  int
}

// NewBander checks that numBands*numRows == numHashes.
func NewBander(numBands, numRows, numHashes, workers int) (*Bander, error) {
	if numBands <= 0 {
		return nil, models.NewConfigError("num_bands", "must be positive, got %d", numBands)
	}
	if numRows <= 0 {
		return nil, models.NewConfigError("num_rows", "must be positive, got %d", numRows)
	}
	if numBands*numRows != numHashes {
		return nil, models.NewConfigError("num_bands", "num_bands*num_rows = %d*%d = %d, want num_hash_functions = %d",
			numBands, numRows, numBands*numRows, numHashes)
	}
	return &Bander{numBands: numBands, numRows: numRows, workers: workers}, nil
}

// Threshold is the approximate Jaccard similarity above which two listings
// are likely to share a bucket.
func (b *Bander) Threshold() float64 {
	return AcceptanceThreshold(b.numBands, b.numRows)
}

// AcceptanceThreshold returns (1/bands)^(1/rows).
func AcceptanceThreshold(numBands, numRows int) float64 {
	return math.Pow(1/float64(numBands), 1/float64(numRows))
}

// BucketKey hashes one band. It depends only on the band's values.
func BucketKey(band []uint64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range band {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Buckets maps bucket keys to the listings (signature indices) hashed there.
// Listings with an empty signature are left out. A listing appears at most
// once per bucket. A non-empty signature whose length is not
// num_bands*num_rows is a ConfigError.
func (b *Bander) Buckets(sigs []models.Signature) (map[uint64][]int, error) {
	want := b.numBands * b.numRows
	for i, sig := range sigs {
		if !sig.Empty() && len(sig) != want {
			return nil, models.NewConfigError("num_hash_functions",
				"signature %d has length %d, want num_bands*num_rows = %d", i, len(sig), want)
		}
	}

	keys := make([][]uint64, len(sigs))
	utils.ParallelRange(b.workers, len(sigs), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			sig := sigs[i]
			if sig.Empty() {
				continue
			}
			k := make([]uint64, b.numBands)
			for band := 0; band < b.numBands; band++ {
				k[band] = BucketKey(sig.Band(band, b.numRows))
			}
			keys[i] = k
		}
	})

	buckets := make(map[uint64][]int)
	for i, ks := range keys {
		for _, k := range ks {
			members := buckets[k]
			if n := len(members); n > 0 && members[n-1] == i {
				continue
			}
			buckets[k] = append(members, i)
		}
	}
	return buckets, nil
}

// Candidates returns every pair of listings sharing at least one bucket.
func (b *Bander) Candidates(sigs []models.Signature) (*models.PairSet, error) {
	buckets, err := b.Buckets(sigs)
	if err != nil {
		return nil, err
	}
	pairs := models.NewPairSet()
	for _, members := range buckets {
		for x := 0; x < len(members); x++ {
			for y := x + 1; y < len(members); y++ {
				pairs.Add(models.NewPair(members[x], members[y]))
			}
		}
	}
	return pairs, nil
}

// TotalPairs is n choose 2.
func TotalPairs(n int) int {
	return n * (n - 1) / 2
}

// ComparisonRatio is the fraction of all listing pairs that are candidates.
func ComparisonRatio(numCandidates, numListings int) float64 {
	total := TotalPairs(numListings)
	if total == 0 {
		return 0
	}
	return float64(numCandidates) / float64(total)
}
