package services

import (
	"testing"

	"listing-resolver/models"
	"listing-resolver/utils"
)

func newTestLogger() *utils.Logger { return utils.NewNopLogger() }

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`Sony 55" Class  LED TV 120 Hz`, "sony 55inch class led tv 120hz"},
		{"Samsung 46-Inch 240Hz", "samsung 46inch 240hz"},
		{"LG 32 inches", "lg 32inch"},
		{"Café TV 40”", "cafe tv 40inch"},
		{"Vizio 42'' 60-Hertz", "vizio 42inch 60hz"},
		{"  \tTCL   ROKU\n", "tcl roku"},
		{"ＴＣＬ ５５", "tcl 55"},
		{"", ""},
	}

	for _, tt := range tests {
		got := NormalizeTitle(tt.raw)
		if got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{
		`Sony 55" Class LED TV 120 Hz`,
		"SAMSUNG 46 - INCH",
		"Ångström 19” HDTV",
		"ＴＶ １２０ｈｚ",
		"weight: :",
		"1080p 60 hertz 32 inches",
	}
	for _, in := range inputs {
		once := NormalizeTitle(in)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent on %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeKeyIdempotent(t *testing.T) {
	for _, in := range []string{"Brand:", "Screen Size :", "weight: :", " Item Weight "} {
		once := NormalizeKey(in)
		if twice := NormalizeKey(once); once != twice {
			t.Errorf("NormalizeKey(%q) = %q, again %q", in, once, twice)
		}
	}
	if got := NormalizeKey("Brand Name:"); got != "brand name" {
		t.Errorf("NormalizeKey(%q) = %q; want %q", "Brand Name:", got, "brand name")
	}
}

func TestNormalizeAttributes(t *testing.T) {
	got := NormalizeAttributes(map[string]string{
		"Brand:":      "Sony",
		"Screen Size": `55"`,
		":":           "dropped",
	})
	want := map[string]string{"brand": "sony", "screen size": "55inch"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeAttributes = %v; want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("NormalizeAttributes[%q] = %q; want %q", k, got[k], v)
		}
	}
}

func TestNormalizeAttributesCollisionFirstKeyWins(t *testing.T) {
	got := NormalizeAttributes(map[string]string{"Brand": "LG", "brand:": "Sony"})
	if got["brand"] != "lg" {
		t.Errorf("brand = %q; want %q", got["brand"], "lg")
	}
}

func TestNormalizerSkipsNilAndIndexes(t *testing.T) {
	n := NewNormalizer(newTestLogger())
	raw := []*models.RawListing{
		{ModelID: "a", Shop: " Amazon.com ", Title: "Sony TV"},
		nil,
		{ModelID: "b", Shop: "newegg.com", Title: "LG TV", URL: " http://x "},
	}

	got := n.Normalize(raw)
	if len(got) != 2 {
		t.Fatalf("got %d listings, want 2", len(got))
	}
	for i, l := range got {
		if l.Index != i {
			t.Errorf("listing %d has Index %d", i, l.Index)
		}
	}
	if got[0].Shop != "amazon.com" {
		t.Errorf("shop = %q; want %q", got[0].Shop, "amazon.com")
	}
	if got[1].URL != "http://x" {
		t.Errorf("url = %q", got[1].URL)
	}
	if got[0].Features == nil {
		t.Error("features map should be non-nil")
	}
}
