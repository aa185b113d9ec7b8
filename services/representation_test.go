package services

import (
	"fmt"
	"reflect"
	"testing"

	"listing-resolver/models"
)

func TestModelWords(t *testing.T) {
	got := ModelWords("sony kdl-55w900a 55inch 1080p tv 3d led 4k/uhd")
	want := []string{"kdl-55w900a", "55inch", "1080p", "3d", "4k/uhd"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ModelWords = %v; want %v", got, want)
	}
	if got := ModelWords("smart led tv 55"); got != nil {
		t.Errorf("ModelWords = %v; want none", got)
	}
}

func TestTokenize(t *testing.T) {
	bin := 2
	l := &models.Listing{
		Title:     "sony 55inch tv",
		Features:  map[string]string{"weight": "30 lb", "power": "120 w", "color": "black"},
		WeightBin: &bin,
		Brand:     "sony",
	}
	got := Tokenize(l)

	for _, want := range []string{"55inch", "30lb", "120w", "weight_bin:2", "brand:sony"} {
		if _, ok := got[want]; !ok {
			t.Errorf("token %q missing from %v", want, got)
		}
	}
	if len(got) != 5 {
		t.Errorf("got %d tokens, want 5: %v", len(got), got)
	}
}

func TestTokenizeEmptyListing(t *testing.T) {
	if got := Tokenize(&models.Listing{Title: "tv"}); len(got) != 0 {
		t.Errorf("Tokenize = %v; want empty", got)
	}
}

func popularBatch(n int) []*models.Listing {
	listings := make([]*models.Listing, n)
	for i := range listings {
		listings[i] = &models.Listing{
			Index:    i,
			Title:    fmt.Sprintf("hdtv1 m%dx", i),
			Features: map[string]string{},
		}
	}
	return listings
}

func TestBuildPrunesPopularTokens(t *testing.T) {
	b := NewRepresentationBuilder(400, newTestLogger())

	listings := popularBatch(401)
	vocab := b.Build(listings)
	if _, ok := vocab.Row("hdtv1"); ok {
		t.Error("token in 401 listings should be pruned from the vocabulary")
	}
	for _, l := range listings {
		if _, ok := l.Tokens["hdtv1"]; ok {
			t.Fatalf("listing %d still holds the pruned token", l.Index)
		}
	}
	if vocab.Size() != 401 {
		t.Errorf("vocabulary size = %d; want 401", vocab.Size())
	}

	listings = popularBatch(400)
	vocab = b.Build(listings)
	if _, ok := vocab.Row("hdtv1"); !ok {
		t.Error("token in exactly 400 listings should be kept")
	}
	if _, ok := listings[0].Tokens["hdtv1"]; !ok {
		t.Error("kept token should stay in the set")
	}
}

func TestVocabularyRowsAreSorted(t *testing.T) {
	v := NewVocabulary([]string{"c", "a", "b"})
	for i, tok := range []string{"a", "b", "c"} {
		if r, ok := v.Row(tok); !ok || r != i {
			t.Errorf("Row(%q) = %d, %v; want %d", tok, r, ok, i)
		}
	}
	if _, ok := v.Row("z"); ok {
		t.Error("unknown token should have no row")
	}
}
