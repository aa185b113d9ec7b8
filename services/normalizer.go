package services

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"listing-resolver/models"
	"listing-resolver/utils"
)

var (
	// inchRegexp folds `55"`, `55 inch`, `55-Inch`, `55 inches` into "55inch".
	inchRegexp = regexp.MustCompile(`(\d)\s*-?\s*(?:inches|inch|["”″]|''|′′)`)
	// hertzRegexp folds `120 Hz`, `120-hertz` into "120hz".
	hertzRegexp = regexp.MustCompile(`(\d)\s*-?\s*(?:hertz|hz)\b`)
)

// Normalizer turns RawListings into Listings with canonical text.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize converts every raw listing. Index is the listing's position in
// the returned slice; nil entries are skipped.
func (n *Normalizer) Normalize(raw []*models.RawListing) []*models.Listing {
	result := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		if r == nil {
			continue
		}
		result = append(result, &models.Listing{
			Index:    len(result),
			ModelID:  r.ModelID,
			Shop:     normaliseShop(r.Shop),
			Title:    NormalizeTitle(r.Title),
			URL:      strings.TrimSpace(r.URL),
			Features: NormalizeAttributes(r.Features),
		})
	}

	n.logger.Info("[normalizer] Normalized %d listings", len(result))
	return result
}

// NormalizeTitle lower-cases s, folds compatibility characters and
// diacritics, collapses whitespace and canonicalizes inch and hertz units.
// It is idempotent.
func NormalizeTitle(s string) string {
	s = foldUnicode(s)
	s = strings.ToLower(s)
	s = foldUnicode(s)
	s = normaliseText(s)
	s = inchRegexp.ReplaceAllString(s, "${1}inch")
	s = hertzRegexp.ReplaceAllString(s, "${1}hz")
	return s
}

// NormalizeAttributes normalizes keys (trailing colons stripped) and values.
// When two raw keys collide, the one sorting first wins.
func NormalizeAttributes(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := NormalizeKey(k)
		if key == "" {
			continue
		}
		if _, taken := out[key]; taken {
			continue
		}
		out[key] = NormalizeTitle(m[k])
	}
	return out
}

// NormalizeKey canonicalizes a feature name.
func NormalizeKey(k string) string {
	return strings.TrimRight(NormalizeTitle(k), ": ")
}

// foldUnicode applies NFKD, drops combining marks and recomposes with NFKC,
// so "”" stays a quote but "é" becomes "e".
func foldUnicode(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normaliseShop(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
