package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Penalty selects the regularization term of the SGD classifier.
type Penalty string

const (
	PenaltyNone Penalty = "none"
	PenaltyL2   Penalty = "l2"
)

// SGD classifier defaults.
const (
	DefaultPenalty       = PenaltyNone
	DefaultAlpha         = 1e-4
	DefaultMaxIter       = 1000
	DefaultTol           = 1e-3
	DefaultNIterNoChange = 5
)

// SGDClassifier is a binary linear classifier trained with plain stochastic
// gradient descent on the hinge loss. The step size follows the "optimal"
// schedule eta = 1/(alpha*(t0+t-1)); Alpha also scales the L2 penalty when
// one is selected.
type SGDClassifier struct {
	Penalty       Penalty
	Alpha         float64
	MaxIter       int
	Tol           float64 // 0 requires strict improvement; negative disables the loss based stop
	NIterNoChange int
	Shuffle       bool
	Seed          int64

	coef      []float64
	intercept float64
	nIter     int
	converged bool
}

// SGDOption configures an SGDClassifier.
type SGDOption func(*SGDClassifier)

func WithPenalty(p Penalty) SGDOption { return func(s *SGDClassifier) { s.Penalty = p } }
func WithAlpha(a float64) SGDOption   { return func(s *SGDClassifier) { s.Alpha = a } }
func WithMaxIter(n int) SGDOption     { return func(s *SGDClassifier) { s.MaxIter = n } }
func WithTol(tol float64) SGDOption   { return func(s *SGDClassifier) { s.Tol = tol } }
func WithSGDSeed(seed int64) SGDOption {
	return func(s *SGDClassifier) { s.Seed = seed }
}
func WithNIterNoChange(n int) SGDOption {
	return func(s *SGDClassifier) { s.NIterNoChange = n }
}

// NewSGDClassifier returns a classifier with no penalty and the default schedule.
func NewSGDClassifier(opts ...SGDOption) *SGDClassifier {
	s := &SGDClassifier{
		Penalty:       DefaultPenalty,
		Alpha:         DefaultAlpha,
		MaxIter:       DefaultMaxIter,
		Tol:           DefaultTol,
		NIterNoChange: DefaultNIterNoChange,
		Shuffle:       true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SGDClassifier) Name() string { return "SGDClassifier" }

// Fit trains on labels 0 and 1, mapped internally to -1 and +1.
func (s *SGDClassifier) Fit(X mat.Matrix, y []int) error {
	d, k, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if k > 2 {
		return fmt.Errorf("sgd: binary only, got %d classes", k)
	}
	if !(s.Alpha > 0) {
		return fmt.Errorf("sgd: alpha must be positive, got %v", s.Alpha)
	}
	if s.MaxIter < 1 {
		return fmt.Errorf("sgd: max iter must be positive, got %d", s.MaxIter)
	}
	switch s.Penalty {
	case PenaltyNone, PenaltyL2:
	case "":
		s.Penalty = DefaultPenalty
	default:
		return fmt.Errorf("sgd: unknown penalty %q", s.Penalty)
	}
	n, p := d.Dims()

	target := make([]float64, n)
	for i, v := range y {
		target[i] = -1
		if v == 1 {
			target[i] = 1
		}
	}

	// initial step size from the typical weight magnitude
	typw := math.Sqrt(1 / math.Sqrt(s.Alpha))
	eta0 := typw / math.Max(1, -hingeGrad(1, -typw))
	t0 := 1 / (eta0 * s.Alpha)

	w := make([]float64, p)
	var b float64
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rnd := rand.New(rand.NewSource(s.Seed))

	bestLoss := math.Inf(1)
	noImprove := 0
	t := 1.0
	s.converged = false
	s.nIter = 0
	for epoch := 0; epoch < s.MaxIter; epoch++ {
		if s.Shuffle {
			rnd.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var sumLoss float64
		for _, i := range order {
			x := d.RawRowView(i)
			yi := target[i]
			score := floats.Dot(w, x) + b
			sumLoss += hinge(yi, score)

			eta := 1 / (s.Alpha * (t0 + t - 1))
			update := -eta * hingeGrad(yi, score)
			if s.Penalty == PenaltyL2 {
				floats.Scale(math.Max(0, 1-eta*s.Alpha), w)
			}
			if update != 0 {
				floats.AddScaled(w, update, x)
				b += update
			}
			t++
		}
		s.nIter = epoch + 1

		if s.Tol >= 0 {
			if sumLoss > bestLoss-s.Tol*float64(n) {
				noImprove++
			} else {
				noImprove = 0
			}
			if sumLoss < bestLoss {
				bestLoss = sumLoss
			}
			if noImprove >= s.NIterNoChange {
				s.converged = true
				break
			}
		}
	}
	s.coef = w
	s.intercept = b
	return nil
}

// Predict returns 1 where the decision function is positive, else 0.
func (s *SGDClassifier) Predict(X mat.Matrix) ([]int, error) {
	scores, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(scores))
	for i, v := range scores {
		if v > 0 {
			out[i] = 1
		}
	}
	return out, nil
}

// DecisionFunction returns w.x + b for each row.
func (s *SGDClassifier) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if s.coef == nil {
		return nil, ErrNotFitted
	}
	d, err := checkPredict(X, len(s.coef))
	if err != nil {
		return nil, err
	}
	n, _ := d.Dims()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = floats.Dot(s.coef, d.RawRowView(i)) + s.intercept
	}
	return out, nil
}

// Coef returns a copy of the fitted weights.
func (s *SGDClassifier) Coef() []float64 { return append([]float64(nil), s.coef...) }

// Intercept returns the fitted bias.
func (s *SGDClassifier) Intercept() float64 { return s.intercept }

// NIter returns the number of epochs run by the last Fit.
func (s *SGDClassifier) NIter() int { return s.nIter }

// Converged reports whether the last Fit stopped before MaxIter.
func (s *SGDClassifier) Converged() bool { return s.converged }

func hinge(y, score float64) float64 {
	if z := y * score; z < 1 {
		return 1 - z
	}
	return 0
}

// hingeGrad is d hinge / d score.
func hingeGrad(y, score float64) float64 {
	if y*score <= 1 {
		return -y
	}
	return 0
}
