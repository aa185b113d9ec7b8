package services

import (
	"math/rand"
	"time"

	"github.com/rotisserie/eris"

	"listing-resolver/config"
	"listing-resolver/models"
	"listing-resolver/utils"
)

// Labeler tells whether two listings are true duplicates. Only used to build
// training labels and evaluation ground truth.
type Labeler func(a, b *models.Listing) bool

// Result is the output of one resolver run over one batch.
type Result struct {
	Listings   []*models.Listing
	Edges      QuantileEdges
	Brands     *BrandVocabulary
	Vocabulary *Vocabulary
	Signatures []models.Signature
	Candidates *models.PairSet
	Scored     []models.ScoredPair
	Duplicates *models.PairSet
	// Verified is false when the classifier could not be fitted and the
	// verification stage was skipped.
	Verified bool
}

// Resolver runs the filter-then-verify pipeline: normalize, derive, bin,
// tokenize and prune, MinHash, LSH, score, classify. Every stage consumes the
// complete output of the previous one.
type Resolver struct {
	cfg        config.Pipeline
	classifier Classifier
	minhasher  *MinHasher
	bander     *Bander
	normalizer *Normalizer
	deriver    *AttributeDeriver
	builder    *RepresentationBuilder
	scorer     *PairScorer
	logger     *utils.Logger
}

// NewResolver validates cfg and wires the stages. A nil rng draws hash
// coefficients from a time-seeded source; pass a seeded one for
// reproducible runs.
func NewResolver(cfg config.Pipeline, classifier Classifier, rng *rand.Rand, logger *utils.Logger) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bander, err := NewBander(cfg.NumBands, cfg.NumRows, cfg.NumHashFunctions, cfg.MaxConcurrency)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if classifier == nil {
		classifier = NewLogisticRegression(cfg.ClassifierClassWeight)
	}

	return &Resolver{
		cfg:        cfg,
		classifier: classifier,
		minhasher:  NewMinHasher(cfg.NumHashFunctions, rng, cfg.MaxConcurrency),
		bander:     bander,
		normalizer: NewNormalizer(logger),
		deriver:    NewAttributeDeriver(nil, logger),
		builder:    NewRepresentationBuilder(cfg.TokenPopularityCeiling, logger),
		scorer:     NewPairScorer(cfg.MaxConcurrency),
		logger:     logger,
	}, nil
}

// Classifier returns the classifier, fitted once Fit succeeded.
func (r *Resolver) Classifier() Classifier {
	return r.classifier
}

// Fit runs candidate generation on raw, labels every candidate with truth,
// fits the classifier and accepts duplicates with it. When the labels are
// degenerate the returned error wraps models.ErrDegenerateTrainingSet and the
// Result still carries the candidates, with Verified false.
func (r *Resolver) Fit(raw []*models.RawListing, truth Labeler) (*Result, error) {
	res, err := r.generate(raw)
	if err != nil {
		return nil, err
	}

	samples := make([]models.Features, len(res.Scored))
	labels := make([]bool, len(res.Scored))
	for i, sp := range res.Scored {
		samples[i] = sp.Features
		labels[i] = truth(res.Listings[sp.Pair.A], res.Listings[sp.Pair.B])
	}

	start := time.Now()
	if err := r.classifier.Fit(samples, labels); err != nil {
		r.logger.Warn("[resolver] Classifier not fitted, skipping verification: %v", err)
		return res, eris.Wrap(err, "resolver: fit classifier")
	}
	r.logger.Since("fit", start)

	r.accept(res)
	return res, nil
}

// Resolve runs the pipeline on a batch with the current classifier. The
// binner and the popularity pass are re-run on this batch. When the
// classifier has not been fitted the error wraps
// models.ErrDegenerateTrainingSet and the Result carries the candidates
// only, with Verified false.
func (r *Resolver) Resolve(raw []*models.RawListing) (*Result, error) {
	res, err := r.generate(raw)
	if err != nil {
		return nil, err
	}
	if !classifierReady(r.classifier) {
		r.logger.Warn("[resolver] Classifier not fitted, skipping verification")
		return res, eris.Wrap(models.ErrDegenerateTrainingSet, "resolver: classifier not fitted")
	}
	r.accept(res)
	return res, nil
}

// Prepare normalizes raw listings and builds their set representations.
func (r *Resolver) Prepare(raw []*models.RawListing) (*Result, error) {
	start := time.Now()
	listings := r.normalizer.Normalize(raw)
	brands := r.deriver.Derive(listings)

	edges, err := FitQuantiles(listings, r.cfg.QuantileLevels)
	if err != nil {
		return nil, err
	}
	edges.Apply(listings)
	r.logger.Info("[binner] Weight edges %v, diagonal edges %v", edges.Weight, edges.Diagonal)

	vocab := r.builder.Build(listings)
	r.logger.Since("prepare", start)

	return &Result{
		Listings:   listings,
		Edges:      edges,
		Brands:     brands,
		Vocabulary: vocab,
		Candidates: models.NewPairSet(),
		Duplicates: models.NewPairSet(),
	}, nil
}

func (r *Resolver) generate(raw []*models.RawListing) (*Result, error) {
	res, err := r.Prepare(raw)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	matrix := BuildMembershipMatrix(res.Vocabulary, res.Listings, r.cfg.MaxConcurrency)
	res.Signatures = r.minhasher.Signatures(matrix)
	r.logger.Since("minhash", start)

	start = time.Now()
	res.Candidates, err = r.bander.Candidates(res.Signatures)
	if err != nil {
		return nil, err
	}
	r.logger.Since("lsh", start)
	r.logger.Info("[lsh] %d candidate pairs from %d listings (threshold %.2f, comparison ratio %.4f)",
		res.Candidates.Size(), len(res.Listings), r.bander.Threshold(),
		ComparisonRatio(res.Candidates.Size(), len(res.Listings)))

	res.Scored = r.scorer.ScoreAll(res.Listings, res.Candidates.Sorted())
	return res, nil
}

func (r *Resolver) accept(res *Result) {
	for i := range res.Scored {
		sp := &res.Scored[i]
		sp.Probability = r.classifier.Score(sp.Features)
		if !sp.Rejected && sp.Probability > r.cfg.DecisionThreshold {
			res.Duplicates.Add(sp.Pair)
		}
	}
	res.Verified = true
	r.logger.Info("[resolver] Accepted %d of %d candidate pairs (decision threshold %.2f)",
		res.Duplicates.Size(), len(res.Scored), r.cfg.DecisionThreshold)
}
