package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Estimator is a fitted regression model over encoded feature vectors.
type Estimator interface {
	Fit(X *mat.Dense, y []float64) error
	Predict(x []float64) float64
}

// LinearRegression is an ordinary least-squares model with intercept. A tiny
// ridge term keeps the normal equations solvable when one-hot encoding
// produces collinear columns.
type LinearRegression struct {
	Weights   []float64
	Intercept float64
}

// NewLinearRegression returns an unfitted linear model.
func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

const ridgeEpsilon = 1e-8

// Fit solves min ||Xw - y|| over the training partition.
func (lr *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	n, d := X.Dims()
	if n == 0 || n != len(y) {
		return fmt.Errorf("linear fit: %d rows vs %d targets", n, len(y))
	}

	// Augment with a bias column so the intercept is solved jointly.
	aug := mat.NewDense(n, d+1, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			aug.Set(i, j, X.At(i, j))
		}
		aug.Set(i, d, 1)
	}

	var ata mat.Dense
	ata.Mul(aug.T(), aug)
	for i := 0; i <= d; i++ {
		ata.Set(i, i, ata.At(i, i)+ridgeEpsilon)
	}

	var atb mat.VecDense
	atb.MulVec(aug.T(), mat.NewVecDense(n, y))

	var w mat.VecDense
	if err := w.SolveVec(&ata, &atb); err != nil {
		return fmt.Errorf("linear fit: %w", err)
	}

	lr.Weights = make([]float64, d)
	for j := 0; j < d; j++ {
		lr.Weights[j] = w.AtVec(j)
	}
	lr.Intercept = w.AtVec(d)
	return nil
}

// Predict returns the fitted linear combination for one encoded record.
func (lr *LinearRegression) Predict(x []float64) float64 {
	out := lr.Intercept
	for j, wj := range lr.Weights {
		if j < len(x) {
			out += wj * x[j]
		}
	}
	return out
}
