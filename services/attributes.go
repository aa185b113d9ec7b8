package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"listing-resolver/models"
	"listing-resolver/utils"
)

var (
	numberRegexp  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	refreshRegexp = regexp.MustCompile(`(\d+)hz`)
)

// AttributeSchema lists, per derived attribute, the normalized feature names
// a shop uses for it. Earlier names win.
type AttributeSchema struct {
	Weight   []string
	Diagonal []string
	Brand    []string
}

// DefaultSchemas covers the shops of the TV catalog. Shops not listed here
// use FallbackSchema.
var DefaultSchemas = map[string]AttributeSchema{
	"amazon.com": {
		Weight:   []string{"item weight", "product weight", "weight"},
		Diagonal: []string{"screen size", "display size"},
		Brand:    []string{"brand", "brand name", "manufacturer"},
	},
	"newegg.com": {
		Weight:   []string{"weight without stand", "weight", "weight with stand"},
		Diagonal: []string{"screen size", "display size"},
		Brand:    []string{"brand"},
	},
	"bestbuy.com": {
		Weight:   []string{"product weight (without stand)", "product weight", "product weight (with stand)"},
		Diagonal: []string{"screen size class", "screen size (measured diagonally)"},
		Brand:    []string{"brand"},
	},
	"thenerds.net": {
		Weight:   []string{"product weight", "weight (approximate)", "weight"},
		Diagonal: []string{"screen size", "display screen size", "viewable size"},
		Brand:    []string{"brand", "manufacturer"},
	},
}

// FallbackSchema is used for shops without an entry in the schema table.
var FallbackSchema = AttributeSchema{
	Weight:   []string{"weight", "weight without stand", "product weight", "item weight", "weight with stand"},
	Diagonal: []string{"screen size", "diagonal size", "display size", "screen size class"},
	Brand:    []string{"brand", "brand name", "manufacturer"},
}

// knownBrands seeds the brand vocabulary so a brand can be found in a title
// even when no listing in the batch carries it as a feature.
var knownBrands = []string{
	"affinity", "avue", "azend", "coby", "compaq", "contex", "craig", "curtisyoung",
	"dynex", "elite", "elo", "epson", "gpx", "haier", "hannspree", "hisense",
	"hiteker", "hp", "insignia", "jvc", "lg", "magnavox", "mitsubishi", "naxa",
	"nec", "optoma", "panasonic", "philips", "proscan", "pyle", "rca", "samsung",
	"sanyo", "sceptre", "seiki", "sharp", "sigmac", "sony", "sunbritetv",
	"supersonic", "tcl", "toshiba", "upstar", "venturer", "viewsonic", "viore",
	"vizio", "westinghouse",
}

// BrandVocabulary is the population-wide set of brand names, ordered longest
// first so multi-word brands win over their prefixes.
type BrandVocabulary struct {
	brands []string
}

// NewBrandVocabulary builds a vocabulary from the given names plus the
// built-in list.
func NewBrandVocabulary(names []string) *BrandVocabulary {
	seen := make(map[string]struct{}, len(names)+len(knownBrands))
	var brands []string
	for _, name := range append(append([]string{}, knownBrands...), names...) {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		brands = append(brands, name)
	}
	sort.Slice(brands, func(i, j int) bool {
		if len(brands[i]) != len(brands[j]) {
			return len(brands[i]) > len(brands[j])
		}
		return brands[i] < brands[j]
	})
	return &BrandVocabulary{brands: brands}
}

// Size returns the number of brands.
func (v *BrandVocabulary) Size() int { return len(v.brands) }

// Find returns the first brand occurring as a whole word in text, or "".
func (v *BrandVocabulary) Find(text string) string {
	for _, b := range v.brands {
		if containsWord(text, b) {
			return b
		}
	}
	return ""
}

// AttributeDeriver fills the derived scalar attributes of a batch.
type AttributeDeriver struct {
	schemas map[string]AttributeSchema
	logger  *utils.Logger
}

// NewAttributeDeriver creates a deriver. A nil schema table means DefaultSchemas.
func NewAttributeDeriver(schemas map[string]AttributeSchema, logger *utils.Logger) *AttributeDeriver {
	if schemas == nil {
		schemas = DefaultSchemas
	}
	return &AttributeDeriver{schemas: schemas, logger: logger}
}

// Derive sets weight, diagonal, refresh rate and brand on every listing.
// Feature lookups run per listing first; the brand vocabulary is then built
// from the whole batch and used for the title fallback.
func (d *AttributeDeriver) Derive(listings []*models.Listing) *BrandVocabulary {
	var featureBrands []string
	for _, l := range listings {
		schema := d.schemaFor(l.Shop)
		l.Weight = parseMinNumber(lookup(l.Features, schema.Weight))
		l.Diagonal = parseMinNumber(lookup(l.Features, schema.Diagonal))
		l.RefreshRate = refreshRate(l.Features)
		l.Brand = canonicalBrand(lookup(l.Features, schema.Brand))
		if l.Brand != "" {
			featureBrands = append(featureBrands, l.Brand)
		}
	}

	vocab := NewBrandVocabulary(featureBrands)
	fromTitle := 0
	for _, l := range listings {
		if l.Brand != "" {
			continue
		}
		if b := vocab.Find(l.Title); b != "" {
			l.Brand = b
			fromTitle++
		}
	}

	d.logger.Info("[attributes] Brand vocabulary: %d brands, %d brands taken from titles",
		vocab.Size(), fromTitle)
	return vocab
}

func (d *AttributeDeriver) schemaFor(shop string) AttributeSchema {
	if s, ok := d.schemas[shop]; ok {
		return s
	}
	return FallbackSchema
}

func lookup(features map[string]string, names []string) string {
	for _, name := range names {
		if v, ok := features[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// parseMinNumber returns the smallest decimal number in s, or nil.
// Multi-valued fields such as "30 x 20 x 5 lb" must not inflate the value.
func parseMinNumber(s string) *float64 {
	var best *float64
	for _, m := range numberRegexp.FindAllString(s, -1) {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		if best == nil || f < *best {
			v := f
			best = &v
		}
	}
	return best
}

// refreshRate scans all feature values in key order for "<digits>hz".
// Best effort: unrelated fields mentioning hertz can match.
func refreshRate(features map[string]string) *float64 {
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		m := refreshRegexp.FindStringSubmatch(features[k])
		if len(m) < 2 {
			continue
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return &f
		}
	}
	return nil
}

var knownBrandVocabulary = NewBrandVocabulary(nil)

// canonicalBrand maps feature values like "lg electronics" onto a known brand,
// matching in the same order as BrandVocabulary.Find.
func canonicalBrand(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if b := knownBrandVocabulary.Find(value); b != "" {
		return b
	}
	return value
}

func containsWord(text, word string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		if (i == 0 || !isWordByte(text[i-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = i + 1
	}
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z'
}
