package models

import (
	"time"

	"github.com/google/uuid"
)

// Metrics holds a confusion matrix over listing pairs and the scores derived
// from it. Undefined ratios are reported as 0.
type Metrics struct {
	TP, FP, FN, TN int
	Precision      float64
	Recall         float64
	F1             float64
}

// RunReport is everything a run hands to the result writers and the console
// report. Signatures and buckets are not part of it.
type RunReport struct {
	RunID     uuid.UUID
	Batch     string
	CreatedAt time.Time

	NumListings      int
	NumHashFunctions int
	NumBands         int
	NumRows          int
	Threshold        float64

	NumCandidates   int
	ComparisonRatio float64
	Candidates      Metrics // LSH stage: pair quality / completeness / F1*
	Final           Metrics // after verification

	Verified   bool
	Duplicates []DuplicatePair
}

// DuplicatePair is an accepted duplicate as written to storage.
type DuplicatePair struct {
	ShopA, ShopB   string
	TitleA, TitleB string
	URLA, URLB     string
	Probability    float64
	TrueDuplicate  bool
}

// NewRunReport stamps a fresh run id.
func NewRunReport(batch string) *RunReport {
	return &RunReport{
		RunID:     uuid.New(),
		Batch:     batch,
		CreatedAt: time.Now(),
	}
}
