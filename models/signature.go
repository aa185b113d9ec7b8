package models

import "math"

// SignatureSentinel is the running-minimum start value. A signature made only
// of sentinels belongs to a listing with an empty set representation.
const SignatureSentinel = math.MaxUint64

// Signature is a MinHash signature: one minimum per hash function.
type Signature []uint64

// NewSignature returns a signature of length n filled with the sentinel.
func NewSignature(n int) Signature {
	sig := make(Signature, n)
	for i := range sig {
		sig[i] = SignatureSentinel
	}
	return sig
}

// Equal reports structural equality.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Empty reports whether no token ever updated the signature.
func (s Signature) Empty() bool {
	for _, v := range s {
		if v != SignatureSentinel {
			return false
		}
	}
	return true
}

// Band returns the i-th contiguous slice of rows entries.
func (s Signature) Band(i, rows int) []uint64 {
	return s[i*rows : (i+1)*rows]
}

// Agreement is the fraction of positions where both signatures hold the same
// value, the MinHash estimate of the Jaccard similarity of the two sets.
func (s Signature) Agreement(other Signature) float64 {
	if len(s) == 0 || len(s) != len(other) {
		return 0
	}
	matches := 0
	for i := range s {
		if s[i] == other[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(s))
}
