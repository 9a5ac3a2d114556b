// Package split partitions a labeled matrix into train and test sets.
package split

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Partition holds the two halves of a split and the source row of each.
type Partition struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest []int
	// TrainIdx and TestIdx index rows of the input matrix.
	TrainIdx, TestIdx []int
}

// TrainTest shuffles row indices with seed and assigns ceil(n*testSize)
// rows to the test set. The same seed and input always give the same split.
func TrainTest(X *mat.Dense, y []int, testSize float64, seed int64) (*Partition, error) {
	if X == nil {
		return nil, fmt.Errorf("split: nil matrix")
	}
	n, _ := X.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("split: %d rows but %d labels", n, len(y))
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, fmt.Errorf("split: test size %v outside (0, 1)", testSize)
	}
	nTest := TestCount(n, testSize)
	if nTest < 1 || n-nTest < 1 {
		return nil, fmt.Errorf("split: %d rows cannot give non-empty train and test sets at test size %v", n, testSize)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	p := &Partition{
		TestIdx:  perm[:nTest],
		TrainIdx: perm[nTest:],
	}
	p.XTest, p.YTest = gather(X, y, p.TestIdx)
	p.XTrain, p.YTrain = gather(X, y, p.TrainIdx)
	return p, nil
}

// TestCount returns the number of test rows for n rows at the given fraction.
func TestCount(n int, testSize float64) int {
	// guard against 0.2*5 landing a hair above 1
	return int(math.Ceil(float64(n)*testSize - 1e-9))
}

func gather(X *mat.Dense, y []int, idx []int) (*mat.Dense, []int) {
	_, p := X.Dims()
	out := mat.NewDense(len(idx), p, nil)
	labels := make([]int, len(idx))
	for k, i := range idx {
		out.SetRow(k, X.RawRowView(i))
		labels[k] = y[i]
	}
	return out, labels
}

// Sorted returns a sorted copy of idx, handy for comparing partitions.
func Sorted(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}
