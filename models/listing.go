package models

// RawListing holds one catalog entry exactly as the ingestion layer read it.
// Nothing here has been normalized yet.
type RawListing struct {
	ModelID  string
	Shop     string
	Title    string
	URL      string
	Features map[string]string
}

// Listing is a normalized catalog entry together with everything the
// resolver derives for it. ModelID is carried for evaluation only; no
// pipeline stage reads it.
type Listing struct {
	Index    int
	ModelID  string
	Shop     string
	Title    string
	URL      string
	Features map[string]string

	// Derived scalars. nil means the attribute was not found.
	Weight      *float64
	Diagonal    *float64
	RefreshRate *float64
	Brand       string

	// Quantile bins relative to the batch the listing was binned in.
	WeightBin   *int
	DiagonalBin *int

	// Tokens is the set representation, pruned in place by the popularity pass.
	Tokens map[string]struct{}
}

// HasBrand reports whether a brand was derived for the listing.
func (l *Listing) HasBrand() bool {
	return l.Brand != ""
}

// SortedTokens returns the set representation as a sorted slice.
func (l *Listing) SortedTokens() []string {
	return sortedKeys(l.Tokens)
}
