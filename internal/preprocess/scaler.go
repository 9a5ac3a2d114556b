package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Transformer learns parameters on one matrix and applies them to others.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (*mat.Dense, error)
	FitTransform(X mat.Matrix) (*mat.Dense, error)
}

// ErrNotFitted is returned by Transform before Fit.
var ErrNotFitted = errors.New("standardizer: not fitted")

// Standardizer rescales each column to zero mean and unit variance using
// the population standard deviation of the fitted matrix.
type Standardizer struct {
	mean  []float64
	scale []float64
}

var _ Transformer = (*Standardizer)(nil)

// NewStandardizer returns an unfitted Standardizer.
func NewStandardizer() *Standardizer { return &Standardizer{} }

// Fit computes per-column mean and standard deviation. Columns with zero
// variance get a scale of 1 so they map to 0.
func (s *Standardizer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.New("standardizer: empty matrix")
	}
	s.mean = make([]float64, c)
	s.scale = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m := stat.Mean(col, nil)
		sd := stat.PopStdDev(col, nil)
		if math.IsNaN(m) || math.IsNaN(sd) {
			return fmt.Errorf("standardizer: column %d contains NaN", j)
		}
		if sd == 0 {
			sd = 1
		}
		s.mean[j] = m
		s.scale[j] = sd
	}
	return nil
}

// Transform applies the fitted statistics to X and returns a new matrix.
func (s *Standardizer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if s.mean == nil {
		return nil, ErrNotFitted
	}
	r, c := X.Dims()
	if c != len(s.mean) {
		return nil, fmt.Errorf("standardizer: fitted on %d columns, got %d", len(s.mean), c)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(i, j int, v float64) float64 {
		return (v - s.mean[j]) / s.scale[j]
	}, X)
	return out, nil
}

// FitTransform fits on X and returns X standardized by its own statistics.
func (s *Standardizer) FitTransform(X mat.Matrix) (*mat.Dense, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Mean returns a copy of the fitted column means.
func (s *Standardizer) Mean() []float64 { return append([]float64(nil), s.mean...) }

// Scale returns a copy of the fitted column standard deviations.
func (s *Standardizer) Scale() []float64 { return append([]float64(nil), s.scale...) }
