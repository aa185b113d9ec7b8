package services

import (
	"fmt"
	"regexp"
	"sort"

	"listing-resolver/models"
	"listing-resolver/utils"
)

var (
	// wordRunRegexp finds alphanumeric runs, allowing inner '.', '-' and '/'.
	wordRunRegexp = regexp.MustCompile(`[a-z0-9]+(?:[./-][a-z0-9]+)*`)
	// unitRegexp finds number+unit fragments such as "30 lb" or "120hz".
	unitRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s?([a-z]+)`)
)

// Synthetic token prefixes.
const (
	weightBinToken   = "weight_bin:"
	diagonalBinToken = "diagonal_bin:"
	brandToken       = "brand:"
)

// Vocabulary is the order-stable list of tokens that survived pruning. A
// token's position is its row in the membership matrix.
type Vocabulary struct {
	Tokens []string
	rows   map[string]int
}

// NewVocabulary sorts tokens and indexes them.
func NewVocabulary(tokens []string) *Vocabulary {
	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)
	rows := make(map[string]int, len(sorted))
	for i, t := range sorted {
		rows[t] = i
	}
	return &Vocabulary{Tokens: sorted, rows: rows}
}

// Row returns the row index of token.
func (v *Vocabulary) Row(token string) (int, bool) {
	i, ok := v.rows[token]
	return i, ok
}

// Size returns the number of tokens.
func (v *Vocabulary) Size() int { return len(v.Tokens) }

// RepresentationBuilder builds set representations and prunes them against
// the batch-wide token popularity.
type RepresentationBuilder struct {
	ceiling int
	logger  *utils.Logger
}

// NewRepresentationBuilder creates a builder removing tokens present in more
// than ceiling listings.
func NewRepresentationBuilder(ceiling int, logger *utils.Logger) *RepresentationBuilder {
	return &RepresentationBuilder{ceiling: ceiling, logger: logger}
}

// Build sets every listing's token set, then prunes popular tokens in a
// second pass and returns the surviving vocabulary.
func (b *RepresentationBuilder) Build(listings []*models.Listing) *Vocabulary {
	for _, l := range listings {
		l.Tokens = Tokenize(l)
	}

	counts := CountPopularity(listings)
	vocab := PrunePopular(listings, counts, b.ceiling)

	b.logger.Info("[representation] Vocabulary: %d tokens, %d kept under ceiling %d",
		len(counts), vocab.Size(), b.ceiling)
	return vocab
}

// Tokenize returns the raw set representation of a single listing: model
// words of the title, number+unit fragments of the feature values and the
// synthetic bin and brand tokens.
func Tokenize(l *models.Listing) map[string]struct{} {
	tokens := make(map[string]struct{})

	for _, w := range ModelWords(l.Title) {
		tokens[w] = struct{}{}
	}
	for _, v := range l.Features {
		for _, m := range unitRegexp.FindAllStringSubmatch(v, -1) {
			tokens[m[1]+m[2]] = struct{}{}
		}
	}

	if l.WeightBin != nil {
		tokens[fmt.Sprintf("%s%d", weightBinToken, *l.WeightBin)] = struct{}{}
	}
	if l.DiagonalBin != nil {
		tokens[fmt.Sprintf("%s%d", diagonalBinToken, *l.DiagonalBin)] = struct{}{}
	}
	if l.Brand != "" {
		tokens[brandToken+l.Brand] = struct{}{}
	}
	return tokens
}

// ModelWords returns the runs of a normalized title that mix letters and
// digits, such as "55inch" or "un55es6500".
func ModelWords(title string) []string {
	var out []string
	for _, w := range wordRunRegexp.FindAllString(title, -1) {
		if hasLetterAndDigit(w) {
			out = append(out, w)
		}
	}
	return out
}

func hasLetterAndDigit(s string) bool {
	var letter, digit bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			letter = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	return letter && digit
}

// CountPopularity counts, for every token, the number of listings holding it.
// It must finish before PrunePopular reads the counts.
func CountPopularity(listings []*models.Listing) map[string]int {
	counts := make(map[string]int)
	for _, l := range listings {
		for t := range l.Tokens {
			counts[t]++
		}
	}
	return counts
}

// PrunePopular deletes every token with a count above ceiling from every
// listing and returns the vocabulary of the remaining tokens.
func PrunePopular(listings []*models.Listing, counts map[string]int, ceiling int) *Vocabulary {
	for _, l := range listings {
		for t := range l.Tokens {
			if counts[t] > ceiling {
				delete(l.Tokens, t)
			}
		}
	}

	kept := make([]string, 0, len(counts))
	for t, c := range counts {
		if c <= ceiling {
			kept = append(kept, t)
		}
	}
	return NewVocabulary(kept)
}
