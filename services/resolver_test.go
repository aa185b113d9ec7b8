package services

import (
	"errors"
	"math/rand"
	"testing"

	"listing-resolver/config"
	"listing-resolver/models"
)

func testPipeline() config.Pipeline {
	cfg := config.DefaultPipeline()
	cfg.MaxConcurrency = 2
	return cfg
}

// sonyPair is two listings of one TV whose titles only differ in how the
// units are written, plus two unrelated listings.
func sonyPair() []*models.RawListing {
	return []*models.RawListing{
		{ModelID: "kdl55", Shop: "amazon.com", Title: `Sony 55" LED TV 120Hz`,
			Features: map[string]string{"Item Weight": "30 lb", "Brand": "Sony"}},
		{ModelID: "kdl55", Shop: "newegg.com", Title: "SONY 55 Inch LED TV 120 Hz",
			Features: map[string]string{"Weight Without Stand": "28.5 lb", "Brand": "Sony"}},
		{ModelID: "lg42", Shop: "bestbuy.com", Title: "LG 42inch Plasma 60Hz",
			Features: map[string]string{"Product Weight": "40 lb", "Brand": "LG"}},
		{ModelID: "un32", Shop: "thenerds.net", Title: "Samsung 32 inch 720p",
			Features: map[string]string{"Product Weight": "12 lb", "Brand": "Samsung"}},
	}
}

func TestResolveFindsUnitVariantDuplicates(t *testing.T) {
	found := 0
	const runs = 20
	for seed := int64(0); seed < runs; seed++ {
		r, err := NewResolver(testPipeline(), NewTitleSimilarityRule(), rand.New(rand.NewSource(seed)), newTestLogger())
		if err != nil {
			t.Fatalf("NewResolver: %v", err)
		}
		res, err := r.Resolve(sonyPair())
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if res.Listings[0].Title != res.Listings[1].Title {
			t.Fatalf("titles normalized differently: %q vs %q", res.Listings[0].Title, res.Listings[1].Title)
		}
		if !res.Verified {
			t.Error("fixed rule should always verify")
		}
		if res.Candidates.Contains(models.NewPair(0, 1)) {
			found++
			if !res.Duplicates.Contains(models.NewPair(0, 1)) {
				t.Errorf("seed %d: candidate pair not accepted", seed)
			}
		}
		for _, p := range res.Duplicates.Sorted() {
			if p != models.NewPair(0, 1) {
				t.Errorf("seed %d: unexpected duplicate %v", seed, p)
			}
		}
	}
	if float64(found)/runs < 0.95 {
		t.Errorf("pair was a candidate in %d of %d runs", found, runs)
	}
}

func TestResolveNeverAcceptsSameShop(t *testing.T) {
	cfg := testPipeline()
	cfg.DecisionThreshold = 0
	always := &LinearThreshold{Bias: 1}
	r, err := NewResolver(cfg, always, rand.New(rand.NewSource(1)), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}

	raw := []*models.RawListing{
		{ModelID: "x", Shop: "amazon.com", Title: "Sony KDL-55W900A 55inch", Features: map[string]string{}},
		{ModelID: "x", Shop: "amazon.com", Title: "Sony KDL-55W900A 55inch", Features: map[string]string{}},
	}
	res, err := r.Resolve(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Candidates.Contains(models.NewPair(0, 1)) {
		t.Fatal("identical listings should always be candidates")
	}
	if res.Duplicates.Size() != 0 {
		t.Errorf("same-shop pair accepted: %v", res.Duplicates.Sorted())
	}
	if len(res.Scored) != 1 || !res.Scored[0].Rejected {
		t.Errorf("scored = %+v; want one rejected pair", res.Scored)
	}
}

func TestResolveEmptyListingsNeverCandidates(t *testing.T) {
	r, err := NewResolver(testPipeline(), NewTitleSimilarityRule(), rand.New(rand.NewSource(2)), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	raw := []*models.RawListing{
		{Shop: "amazon.com", Title: "television"},
		{Shop: "newegg.com", Title: "television"},
	}
	res, err := r.Resolve(raw)
	if err != nil {
		t.Fatal(err)
	}
	if res.Candidates.Size() != 0 {
		t.Errorf("listings with empty sets became candidates: %v", res.Candidates.Sorted())
	}
}

func TestNewResolverRejectsBadBanding(t *testing.T) {
	cfg := testPipeline()
	cfg.NumRows = 4
	_, err := NewResolver(cfg, nil, nil, newTestLogger())
	var cfgErr *models.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("NewResolver error = %v; want ConfigError", err)
	}
}

func TestResolveEmptyBatch(t *testing.T) {
	r, err := NewResolver(testPipeline(), nil, rand.New(rand.NewSource(1)), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(nil); err == nil {
		t.Error("empty batch should fail quantile binning")
	}
}

func TestFitDegenerateKeepsCandidates(t *testing.T) {
	r, err := NewResolver(testPipeline(), nil, rand.New(rand.NewSource(4)), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	never := func(a, b *models.Listing) bool { return false }

	res, err := r.Fit(sonyPair(), never)
	if !errors.Is(err, models.ErrDegenerateTrainingSet) {
		t.Fatalf("Fit error = %v; want ErrDegenerateTrainingSet", err)
	}
	if res == nil {
		t.Fatal("Fit should still return the candidate result")
	}
	if res.Verified {
		t.Error("verification should be skipped")
	}
	if res.Duplicates.Size() != 0 {
		t.Errorf("duplicates accepted without a classifier: %v", res.Duplicates.Sorted())
	}
}

func TestResolveWithoutFittedClassifier(t *testing.T) {
	never := func(a, b *models.Listing) bool { return false }
	tests := []struct {
		name string
		fit  bool
	}{
		{"never fitted", false},
		{"after degenerate fit", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(testPipeline(), nil, rand.New(rand.NewSource(5)), newTestLogger())
			if err != nil {
				t.Fatal(err)
			}
			if tt.fit {
				if _, err := r.Fit(sonyPair(), never); !errors.Is(err, models.ErrDegenerateTrainingSet) {
					t.Fatalf("Fit error = %v; want ErrDegenerateTrainingSet", err)
				}
			}

			res, err := r.Resolve(sonyPair())
			if !errors.Is(err, models.ErrDegenerateTrainingSet) {
				t.Fatalf("Resolve error = %v; want ErrDegenerateTrainingSet", err)
			}
			if res == nil {
				t.Fatal("Resolve should still return the candidate result")
			}
			if res.Verified {
				t.Error("unfitted classifier marked the result verified")
			}
			if res.Duplicates.Size() != 0 {
				t.Errorf("duplicates accepted without a classifier: %v", res.Duplicates.Sorted())
			}
		})
	}
}

func TestFitThenResolve(t *testing.T) {
	raw := append(sonyPair(),
		&models.RawListing{ModelID: "kdl55b", Shop: "bestbuy.com", Title: "Sony 55inch LED TV 240Hz",
			Features: map[string]string{"Product Weight": "30 lb", "Brand": "Sony"}},
		&models.RawListing{ModelID: "tcp50", Shop: "amazon.com", Title: "Panasonic TC-P50S2 50inch Plasma"},
		&models.RawListing{ModelID: "tcp50", Shop: "newegg.com", Title: "Panasonic TC-P50S2 50inch Plasma"},
	)

	r, err := NewResolver(testPipeline(), nil, rand.New(rand.NewSource(8)), newTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	res, err := r.Fit(raw, SameModel)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !res.Verified {
		t.Error("fitted run should be verified")
	}
	if !res.Candidates.Contains(models.NewPair(5, 6)) {
		t.Error("identical listings should always be candidates")
	}

	again, err := r.Resolve(sonyPair())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !again.Verified {
		t.Error("resolve with a fitted classifier should verify")
	}
	for _, sp := range again.Scored {
		if sp.Probability < 0 || sp.Probability > 1 {
			t.Errorf("probability %v out of range", sp.Probability)
		}
	}
}

func TestResolveTwoShopScenario(t *testing.T) {
	raw := []*models.RawListing{
		{ModelID: "m", Shop: "A", Title: "Sony 55 inch TV 120hz",
			Features: map[string]string{"brand": "sony", "weight": "30 lb"}},
		{ModelID: "m", Shop: "B", Title: "Sony 55-Inch TV 120Hz",
			Features: map[string]string{"Brand Name": "Sony", "Weight Without Stand": "28.5 lb"}},
	}

	found := 0
	const runs = 40
	for seed := int64(100); seed < 100+runs; seed++ {
		r, err := NewResolver(testPipeline(), NewTitleSimilarityRule(), rand.New(rand.NewSource(seed)), newTestLogger())
		if err != nil {
			t.Fatal(err)
		}
		res, err := r.Resolve(raw)
		if err != nil {
			t.Fatal(err)
		}
		a, b := res.Listings[0], res.Listings[1]
		if a.Brand != "sony" || b.Brand != "sony" {
			t.Fatalf("brands = %q, %q; want sony", a.Brand, b.Brand)
		}
		if a.Weight == nil || *a.Weight != 30 || b.Weight == nil || *b.Weight != 28.5 {
			t.Fatalf("weights = %v, %v", a.Weight, b.Weight)
		}
		if !res.Candidates.Contains(models.NewPair(0, 1)) {
			continue
		}
		found++
		sp := res.Scored[0]
		if sp.Rejected || sp.Features[1] <= 0.9 {
			t.Errorf("scored = %+v; want title similarity above 0.9", sp)
		}
	}
	if float64(found)/runs < 0.95 {
		t.Errorf("pair was a candidate in %d of %d runs", found, runs)
	}
}
