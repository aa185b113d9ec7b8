package models

import (
	"sort"
	"sync"
)

// Pair is an unordered pair of listing indices, stored with A < B so that
// structural equality is pair identity.
type Pair struct {
	A int
	B int
}

// NewPair orders the two indices. Callers must not pass i == j.
func NewPair(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{A: i, B: j}
}

// PairSet is a deduplicated set of pairs. It is safe for concurrent use.
type PairSet struct {
	mu    sync.RWMutex
	pairs map[Pair]struct{}
}

// NewPairSet creates an empty PairSet.
func NewPairSet() *PairSet {
	return &PairSet{pairs: make(map[Pair]struct{})}
}

// Add returns true if the pair was newly added, false if already present.
func (s *PairSet) Add(p Pair) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pairs[p]; exists {
		return false
	}
	s.pairs[p] = struct{}{}
	return true
}

// Contains returns true if the pair is in the set.
func (s *PairSet) Contains(p Pair) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.pairs[p]
	return exists
}

// Size returns the number of distinct pairs.
func (s *PairSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

// Sorted returns the pairs ordered by (A, B).
func (s *PairSet) Sorted() []Pair {
	s.mu.RLock()
	out := make([]Pair, 0, len(s.pairs))
	for p := range s.pairs {
		out = append(out, p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// Features is the verification feature vector of a candidate pair:
// [0] sequence ratio of the sorted token lists, [1] title similarity.
type Features [2]float64

// ScoredPair is a candidate pair with its features. Rejected marks pairs the
// structural rules short-circuited to the zero vector.
type ScoredPair struct {
	Pair        Pair
	Features    Features
	Rejected    bool
	Probability float64
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
