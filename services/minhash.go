package services

import (
	"math/bits"
	"math/rand"

	"listing-resolver/models"
	"listing-resolver/utils"
)

// MinHashPrime is the Mersenne prime 2^61-1 used as the hash modulus.
const MinHashPrime uint64 = 1<<61 - 1

// MembershipMatrix is the sparse token-by-listing matrix: for every listing
// column, the vocabulary rows of its tokens.
type MembershipMatrix struct {
	NumRows int
	Columns [][]int
}

// BuildMembershipMatrix maps each listing's tokens to vocabulary rows. Tokens
// missing from the vocabulary are ignored. Columns are built in parallel.
func BuildMembershipMatrix(vocab *Vocabulary, listings []*models.Listing, workers int) *MembershipMatrix {
	cols := make([][]int, len(listings))
	utils.ParallelRange(workers, len(listings), func(lo, hi int) {
		for c := lo; c < hi; c++ {
			rows := make([]int, 0, len(listings[c].Tokens))
			for t := range listings[c].Tokens {
				if r, ok := vocab.Row(t); ok {
					rows = append(rows, r)
				}
			}
			cols[c] = rows
		}
	})
	return &MembershipMatrix{NumRows: vocab.Size(), Columns: cols}
}

// HashCoefficients are the (a, b) of h(row) = (a + b*row) mod MinHashPrime.
type HashCoefficients struct {
	A uint64
	B uint64
}

// Apply hashes a row index.
func (h HashCoefficients) Apply(row uint64) uint64 {
	hi, lo := bits.Mul64(h.B, row)
	return (h.A + bits.Rem64(hi, lo, MinHashPrime)) % MinHashPrime
}

// MinHasher computes MinHash signatures. Coefficients come from the injected
// random source, so a seeded source gives reproducible signatures.
type MinHasher struct {
	numHashes int
	rng       *rand.Rand
	workers   int
}

// NewMinHasher creates a MinHasher with numHashes hash functions.
func NewMinHasher(numHashes int, rng *rand.Rand, workers int) *MinHasher {
	return &MinHasher{numHashes: numHashes, rng: rng, workers: workers}
}

// DrawCoefficients draws one (a, b) per hash function, b non-zero.
func (m *MinHasher) DrawCoefficients() []HashCoefficients {
	coeffs := make([]HashCoefficients, m.numHashes)
	for i := range coeffs {
		coeffs[i] = HashCoefficients{
			A: uint64(m.rng.Int63n(int64(MinHashPrime))),
			B: uint64(m.rng.Int63n(int64(MinHashPrime-1))) + 1,
		}
	}
	return coeffs
}

// Signatures draws fresh coefficients and returns one signature per matrix
// column.
func (m *MinHasher) Signatures(matrix *MembershipMatrix) []models.Signature {
	return SignaturesWith(m.DrawCoefficients(), matrix, m.workers)
}

// SignaturesWith computes signatures for fixed coefficients. Hash functions
// are processed in parallel; each signature position is written by exactly
// one worker. Empty columns keep the sentinel everywhere.
func SignaturesWith(coeffs []HashCoefficients, matrix *MembershipMatrix, workers int) []models.Signature {
	sigs := make([]models.Signature, len(matrix.Columns))
	for c := range sigs {
		sigs[c] = models.NewSignature(len(coeffs))
	}

	utils.ParallelRange(workers, len(coeffs), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			h := coeffs[i]
			for c, rows := range matrix.Columns {
				sig := sigs[c]
				for _, r := range rows {
					if v := h.Apply(uint64(r)); v < sig[i] {
						sig[i] = v
					}
				}
			}
		}
	})
	return sigs
}
