package model

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTrees is the forest size used when none is configured.
const DefaultTrees = 200

// RandomForest is a bagged ensemble of CART trees with per-split feature
// subsampling. Predictions average the leaf class distributions of the
// trees and take the most probable class, ties going to the lowest code.
type RandomForest struct {
	NumTrees        int
	MaxDepth        int
	MaxFeatures     int // 0 means floor(sqrt(features))
	MinSamplesSplit int
	Bootstrap       bool
	Seed            int64
	Workers         int // 0 means GOMAXPROCS

	trees       []*DecisionTree
	nClasses    int
	nFeatures   int
	importances []float64
}

// ForestOption configures a RandomForest.
type ForestOption func(*RandomForest)

func WithTrees(n int) ForestOption       { return func(rf *RandomForest) { rf.NumTrees = n } }
func WithMaxDepth(d int) ForestOption    { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithMaxFeatures(k int) ForestOption { return func(rf *RandomForest) { rf.MaxFeatures = k } }
func WithBootstrap(b bool) ForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithSeed(seed int64) ForestOption   { return func(rf *RandomForest) { rf.Seed = seed } }
func WithWorkers(n int) ForestOption     { return func(rf *RandomForest) { rf.Workers = n } }
func WithMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}

// NewRandomForest returns a forest of DefaultTrees bootstrapped trees.
func NewRandomForest(opts ...ForestOption) *RandomForest {
	rf := &RandomForest{
		NumTrees:        DefaultTrees,
		MinSamplesSplit: DefaultMinSamplesSplit,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

func (rf *RandomForest) Name() string { return "RandomForestClassifier" }

// Fit grows the trees concurrently. Tree seeds are drawn up front from Seed,
// so the fitted forest does not depend on goroutine scheduling.
func (rf *RandomForest) Fit(X mat.Matrix, y []int) error {
	d, k, err := checkXY(X, y)
	if err != nil {
		return err
	}
	if rf.NumTrees < 1 {
		return fmt.Errorf("randomforest: need at least one tree, got %d", rf.NumTrees)
	}
	n, p := d.Dims()
	rf.nClasses = k
	rf.nFeatures = p

	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(p)))))
	}

	master := rand.New(rand.NewSource(rf.Seed))
	seeds := make([]int64, rf.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*DecisionTree, rf.NumTrees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, n)
			for j := range idx {
				if rf.Bootstrap {
					idx[j] = rnd.Intn(n)
				} else {
					idx[j] = j
				}
			}
			tree := &DecisionTree{
				MaxDepth:        rf.MaxDepth,
				MinSamplesSplit: rf.MinSamplesSplit,
				MinSamplesLeaf:  DefaultMinSamplesLeaf,
				MaxFeatures:     maxFeatures,
				Seed:            rnd.Int63(),
			}
			tree.fitIndices(d, y, k, idx)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.trees = trees

	rf.importances = make([]float64, p)
	for _, t := range trees {
		for j, v := range t.importances {
			rf.importances[j] += v
		}
	}
	var total float64
	for _, v := range rf.importances {
		total += v
	}
	if total > 0 {
		for j := range rf.importances {
			rf.importances[j] /= total
		}
	}
	return nil
}

// Predict returns the most probable class of each row.
func (rf *RandomForest) Predict(X mat.Matrix) ([]int, error) {
	probs, err := rf.votes(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, v := range probs {
		out[i] = argmax(v)
	}
	return out, nil
}

// PredictProba returns the mean leaf class distribution across trees.
func (rf *RandomForest) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	probs, err := rf.votes(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(probs), rf.nClasses, nil)
	for i, v := range probs {
		out.SetRow(i, v)
	}
	return out, nil
}

// votes sums each tree's leaf distribution in tree order and divides by the
// number of trees, so the result does not depend on the worker count.
func (rf *RandomForest) votes(X mat.Matrix) ([][]float64, error) {
	if len(rf.trees) == 0 {
		return nil, ErrNotFitted
	}
	d, err := checkPredict(X, rf.nFeatures)
	if err != nil {
		return nil, err
	}
	n, _ := d.Dims()
	scale := 1 / float64(len(rf.trees))
	probs := make([][]float64, n)
	for i := 0; i < n; i++ {
		x := d.RawRowView(i)
		row := make([]float64, rf.nClasses)
		for _, t := range rf.trees {
			floats.Add(row, t.leaf(x).probas)
		}
		floats.Scale(scale, row)
		probs[i] = row
	}
	return probs, nil
}

// FeatureImportances returns the mean normalized gini importance across trees.
func (rf *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), rf.importances...)
}

// Trees returns the fitted trees.
func (rf *RandomForest) Trees() []*DecisionTree { return rf.trees }
