package services

import (
	"math"
	"testing"

	"listing-resolver/models"
)

func scoredListing(shop, brand, title string, tokens ...string) *models.Listing {
	l := &models.Listing{Shop: shop, Brand: brand, Title: title, Tokens: map[string]struct{}{}}
	for _, t := range tokens {
		l.Tokens[t] = struct{}{}
	}
	return l
}

func TestScoreRejectsSameShop(t *testing.T) {
	s := NewPairScorer(1)
	a := scoredListing("amazon.com", "sony", "sony 55inch tv", "55inch")
	b := scoredListing("amazon.com", "sony", "sony 55inch tv", "55inch")

	f, ok := s.Score(a, b)
	if ok {
		t.Error("same-shop pair should be rejected")
	}
	if f != (models.Features{}) {
		t.Errorf("features = %v; want zero", f)
	}
}

func TestScoreRejectsBrandMismatch(t *testing.T) {
	s := NewPairScorer(1)
	a := scoredListing("amazon.com", "sony", "sony 55inch tv")
	b := scoredListing("newegg.com", "lg", "lg 55inch tv")
	if _, ok := s.Score(a, b); ok {
		t.Error("pair with two different known brands should be rejected")
	}

	c := scoredListing("newegg.com", "", "55inch tv")
	if _, ok := s.Score(a, c); !ok {
		t.Error("a missing brand must not reject the pair")
	}
}

func TestScoreTitleSimilarity(t *testing.T) {
	s := NewPairScorer(1)
	a := scoredListing("amazon.com", "sony", "sony 55inch class led tv", "55inch", "brand:sony")
	b := scoredListing("newegg.com", "sony", "sony 55inch led tv", "55inch", "brand:sony")

	f, ok := s.Score(a, b)
	if !ok {
		t.Fatal("pair unexpectedly rejected")
	}
	if f[0] != 1 {
		t.Errorf("sequence ratio = %v; want 1 for equal token sets", f[0])
	}
	if f[1] <= 0.9 || f[1] > 1 {
		t.Errorf("title similarity = %v; want in (0.9, 1]", f[1])
	}

	same := scoredListing("bestbuy.com", "sony", "Sony 55inch Class LED TV")
	if f, _ := s.Score(a, same); f[1] != 1 {
		t.Errorf("title similarity ignoring case and spaces = %v; want 1", f[1])
	}
}

func TestTokenSequenceRatio(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{[]string{"a", "b", "c"}, []string{"a", "b", "c"}, 1},
		{[]string{"a", "b"}, []string{"c", "d"}, 0},
		{[]string{"a", "b", "c", "d"}, []string{"a", "b", "x", "d"}, 0.75},
	}
	for _, tt := range tests {
		if got := TokenSequenceRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TokenSequenceRatio(%v, %v) = %v; want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScoreAllKeepsPairOrder(t *testing.T) {
	s := NewPairScorer(4)
	listings := []*models.Listing{
		scoredListing("amazon.com", "sony", "sony 55inch"),
		scoredListing("amazon.com", "sony", "sony 55inch"),
		scoredListing("newegg.com", "sony", "sony 55inch"),
	}
	pairs := []models.Pair{models.NewPair(0, 1), models.NewPair(0, 2), models.NewPair(1, 2)}

	got := s.ScoreAll(listings, pairs)
	if len(got) != 3 {
		t.Fatalf("got %d scored pairs, want 3", len(got))
	}
	for i, sp := range got {
		if sp.Pair != pairs[i] {
			t.Errorf("scored[%d] = %v; want %v", i, sp.Pair, pairs[i])
		}
	}
	if !got[0].Rejected || got[1].Rejected || got[2].Rejected {
		t.Errorf("rejected flags = %v %v %v; want true false false", got[0].Rejected, got[1].Rejected, got[2].Rejected)
	}
}
