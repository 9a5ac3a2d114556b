// Package model implements the two classifiers used on the wine table:
// a bootstrap random forest of CART trees and a linear SGD classifier.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Classifier is a supervised model over integer class codes 0..k-1.
type Classifier interface {
	Fit(X mat.Matrix, y []int) error
	Predict(X mat.Matrix) ([]int, error)
	Name() string
}

// ErrNotFitted is returned by Predict on an untrained model.
var ErrNotFitted = errors.New("model: not fitted")

// checkXY validates shapes and returns a dense copy of X plus the class count.
func checkXY(X mat.Matrix, y []int) (*mat.Dense, int, error) {
	if X == nil {
		return nil, 0, errors.New("model: nil matrix")
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return nil, 0, errors.New("model: empty matrix")
	}
	if len(y) != r {
		return nil, 0, fmt.Errorf("model: %d rows but %d labels", r, len(y))
	}
	k := 0
	for i, v := range y {
		if v < 0 {
			return nil, 0, fmt.Errorf("model: negative class code %d at row %d", v, i)
		}
		if v+1 > k {
			k = v + 1
		}
	}
	return mat.DenseCopyOf(X), k, nil
}

func checkPredict(X mat.Matrix, features int) (*mat.Dense, error) {
	if X == nil {
		return nil, errors.New("model: nil matrix")
	}
	_, c := X.Dims()
	if c != features {
		return nil, fmt.Errorf("model: trained on %d features, got %d", features, c)
	}
	return mat.DenseCopyOf(X), nil
}

// argmax returns the index of the largest value, preferring the lowest index on ties.
func argmax[T int | float64](v []T) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
