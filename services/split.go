package services

import (
	"crypto/sha256"
	"encoding/binary"

	"listing-resolver/models"
)

// SplitByModel deterministically partitions raw listings into train and test
// batches by a stable hash of the model id, so all listings of one product
// land in the same batch. A fraction outside (0,1) puts everything in train.
func SplitByModel(raw []*models.RawListing, testFraction float64) (train, test []*models.RawListing) {
	if testFraction <= 0 || testFraction >= 1 {
		return raw, nil
	}

	threshold := uint64(float64(^uint64(0)) * testFraction)
	train = make([]*models.RawListing, 0, len(raw))
	test = make([]*models.RawListing, 0, len(raw))
	for _, r := range raw {
		if stableUint64(r.ModelID) <= threshold {
			test = append(test, r)
			continue
		}
		train = append(train, r)
	}
	return train, test
}

func stableUint64(input string) uint64 {
	sum := sha256.Sum256([]byte(input))
	return binary.BigEndian.Uint64(sum[:8])
}
