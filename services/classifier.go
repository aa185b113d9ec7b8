package services

import (
	"math"

	"github.com/rotisserie/eris"

	"listing-resolver/models"
)

// Classifier turns pair features into a duplicate probability.
type Classifier interface {
	Fit(samples []models.Features, labels []bool) error
	Score(f models.Features) float64
}

// fittable is implemented by classifiers that cannot score before a
// successful Fit. Classifiers without it are always ready.
type fittable interface {
	Fitted() bool
}

func classifierReady(c Classifier) bool {
	if f, ok := c.(fittable); ok {
		return f.Fitted()
	}
	return true
}

// LogisticRegression is an L2-regularized logistic regression fitted by
// Newton's method. ClassWeight scales the loss of negative samples; values
// below 1 trade precision for recall.
type LogisticRegression struct {
	ClassWeight float64
	C           float64 // inverse regularization strength, intercept not penalized
	MaxIter     int
	Tol         float64

	coef   [3]float64 // intercept, sequence ratio, title similarity
	fitted bool
}

// NewLogisticRegression returns a classifier with C=1 and up to 100 Newton steps.
func NewLogisticRegression(classWeight float64) *LogisticRegression {
	return &LogisticRegression{ClassWeight: classWeight, C: 1, MaxIter: 100, Tol: 1e-8}
}

// Fit estimates the coefficients. It returns models.ErrDegenerateTrainingSet
// when the labels contain no positives or no negatives. A failed Fit leaves
// the model unfitted.
func (lr *LogisticRegression) Fit(samples []models.Features, labels []bool) error {
	lr.fitted = false
	if len(samples) != len(labels) {
		return eris.Errorf("logistic regression: %d samples but %d labels", len(samples), len(labels))
	}
	positives := 0
	for _, y := range labels {
		if y {
			positives++
		}
	}
	if positives == 0 || positives == len(labels) {
		return eris.Wrapf(models.ErrDegenerateTrainingSet, "%d positives among %d samples", positives, len(labels))
	}

	negWeight := lr.ClassWeight
	if negWeight <= 0 {
		negWeight = 1
	}
	lambda := 0.0
	if lr.C > 0 {
		lambda = 1 / lr.C
	}

	w := [3]float64{}
	for iter := 0; iter < lr.MaxIter; iter++ {
		var grad [3]float64
		var hess [3][3]float64

		for i, f := range samples {
			x := [3]float64{1, f[0], f[1]}
			p := sigmoid(w[0] + w[1]*x[1] + w[2]*x[2])
			y, s := 0.0, negWeight
			if labels[i] {
				y, s = 1, 1
			}
			r := s * (p - y)
			v := s * p * (1 - p)
			for j := 0; j < 3; j++ {
				grad[j] += r * x[j]
				for k := 0; k < 3; k++ {
					hess[j][k] += v * x[j] * x[k]
				}
			}
		}
		for j := 1; j < 3; j++ {
			grad[j] += lambda * w[j]
			hess[j][j] += lambda
		}
		for j := 0; j < 3; j++ {
			hess[j][j] += 1e-10
		}

		step, ok := solve3(hess, grad)
		if !ok {
			break
		}
		maxStep := 0.0
		for j := range w {
			w[j] -= step[j]
			maxStep = math.Max(maxStep, math.Abs(step[j]))
		}
		if maxStep < lr.Tol {
			break
		}
	}

	lr.coef = w
	lr.fitted = true
	return nil
}

// Score returns the positive-class probability. An unfitted model scores 0.
func (lr *LogisticRegression) Score(f models.Features) float64 {
	if !lr.fitted {
		return 0
	}
	return sigmoid(lr.coef[0] + lr.coef[1]*f[0] + lr.coef[2]*f[1])
}

// Fitted reports whether the last Fit succeeded.
func (lr *LogisticRegression) Fitted() bool {
	return lr.fitted
}

// Coefficients returns intercept and feature weights.
func (lr *LogisticRegression) Coefficients() [3]float64 {
	return lr.coef
}

// LinearThreshold scores with fixed weights and needs no training. The
// zero-value bias with weights {0, 1} scores a pair by its title similarity
// alone.
type LinearThreshold struct {
	Weights models.Features
	Bias    float64
}

// NewTitleSimilarityRule returns the title-similarity-only rule.
func NewTitleSimilarityRule() *LinearThreshold {
	return &LinearThreshold{Weights: models.Features{0, 1}}
}

// Fit is a no-op.
func (t *LinearThreshold) Fit([]models.Features, []bool) error { return nil }

// Score returns the weighted sum clamped to [0,1].
func (t *LinearThreshold) Score(f models.Features) float64 {
	v := t.Bias + t.Weights[0]*f[0] + t.Weights[1]*f[1]
	return math.Min(1, math.Max(0, v))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// solve3 solves m*x = v by Gaussian elimination with partial pivoting.
func solve3(m [3][3]float64, v [3]float64) ([3]float64, bool) {
	for col := 0; col < 3; col++ {
		pivot := col
		for r := col + 1; r < 3; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-300 {
			return [3]float64{}, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		v[col], v[pivot] = v[pivot], v[col]

		for r := col + 1; r < 3; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c < 3; c++ {
				m[r][c] -= factor * m[col][c]
			}
			v[r] -= factor * v[col]
		}
	}

	var x [3]float64
	for r := 2; r >= 0; r-- {
		sum := v[r]
		for c := r + 1; c < 3; c++ {
			sum -= m[r][c] * x[c]
		}
		x[r] = sum / m[r][r]
	}
	return x, true
}
