package model

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Decision tree defaults.
const (
	DefaultMinSamplesSplit = 2
	DefaultMinSamplesLeaf  = 1
)

// DecisionTree is a CART classifier using gini impurity. Numeric splits go
// left when x <= threshold, with thresholds at midpoints between values.
type DecisionTree struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means every feature at every split
	Seed            int64

	nodes       []node
	nClasses    int
	nFeatures   int
	importances []float64
}

// node is a flat tree entry. Leaves have feature -1.
type node struct {
	feature     int
	threshold   float64
	left, right int
	probas      []float64
	samples     int
}

// NewDecisionTree returns a tree with unlimited depth and the CART defaults.
func NewDecisionTree(seed int64) *DecisionTree {
	return &DecisionTree{
		MinSamplesSplit: DefaultMinSamplesSplit,
		MinSamplesLeaf:  DefaultMinSamplesLeaf,
		Seed:            seed,
	}
}

func (t *DecisionTree) Name() string { return "DecisionTreeClassifier" }

// Fit trains on every row of X.
func (t *DecisionTree) Fit(X mat.Matrix, y []int) error {
	d, k, err := checkXY(X, y)
	if err != nil {
		return err
	}
	n, _ := d.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	t.fitIndices(d, y, k, idx)
	return nil
}

// fitIndices trains on the rows listed in idx. Repeated indices weigh a row
// more, which is how bootstrap samples are fed in.
func (t *DecisionTree) fitIndices(X *mat.Dense, y []int, nClasses int, idx []int) {
	_, p := X.Dims()
	t.nClasses = nClasses
	t.nFeatures = p
	t.nodes = t.nodes[:0]
	t.importances = make([]float64, p)
	if t.MinSamplesSplit < 2 {
		t.MinSamplesSplit = DefaultMinSamplesSplit
	}
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = DefaultMinSamplesLeaf
	}
	b := &builder{
		tree: t,
		X:    X,
		y:    y,
		rnd:  rand.New(rand.NewSource(t.Seed)),
	}
	b.build(idx, 0)

	var total float64
	for _, v := range t.importances {
		total += v
	}
	if total > 0 {
		for j := range t.importances {
			t.importances[j] /= total
		}
	}
}

// Predict returns the majority class of the leaf each row lands in.
func (t *DecisionTree) Predict(X mat.Matrix) ([]int, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	d, err := checkPredict(X, t.nFeatures)
	if err != nil {
		return nil, err
	}
	n, _ := d.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = argmax(t.leaf(d.RawRowView(i)).probas)
	}
	return out, nil
}

// PredictProba returns the class distribution of each row's leaf.
func (t *DecisionTree) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	if len(t.nodes) == 0 {
		return nil, ErrNotFitted
	}
	d, err := checkPredict(X, t.nFeatures)
	if err != nil {
		return nil, err
	}
	n, _ := d.Dims()
	out := mat.NewDense(n, t.nClasses, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, t.leaf(d.RawRowView(i)).probas)
	}
	return out, nil
}

// FeatureImportances returns the normalized total gini decrease per feature.
func (t *DecisionTree) FeatureImportances() []float64 {
	return append([]float64(nil), t.importances...)
}

// Depth returns the length of the longest root to leaf path.
func (t *DecisionTree) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(i int) int
	walk = func(i int) int {
		nd := t.nodes[i]
		if nd.feature < 0 {
			return 0
		}
		return 1 + max(walk(nd.left), walk(nd.right))
	}
	return walk(0)
}

func (t *DecisionTree) leaf(x []float64) *node {
	i := 0
	for t.nodes[i].feature >= 0 {
		nd := &t.nodes[i]
		if x[nd.feature] <= nd.threshold {
			i = nd.left
		} else {
			i = nd.right
		}
	}
	return &t.nodes[i]
}

type builder struct {
	tree *DecisionTree
	X    *mat.Dense
	y    []int
	rnd  *rand.Rand
}

type candidate struct {
	feature   int
	threshold float64
	gain      float64
	pos       int // rows order[:pos] go left
	order     []int
}

// build appends the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	t := b.tree
	counts := make([]int, t.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	id := len(t.nodes)
	t.nodes = append(t.nodes, node{feature: -1, probas: probas(counts), samples: len(idx)})

	if isPure(counts) || len(idx) < t.MinSamplesSplit || len(idx) < 2*t.MinSamplesLeaf {
		return id
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return id
	}

	parent := gini(counts, len(idx))
	best, ok := b.bestSplit(idx, counts, parent)
	if !ok {
		return id
	}

	left := append([]int(nil), best.order[:best.pos]...)
	right := append([]int(nil), best.order[best.pos:]...)
	nl, nr := float64(len(left)), float64(len(right))
	t.importances[best.feature] += float64(len(idx))*parent -
		nl*gini(classCounts(b.y, left, t.nClasses), len(left)) -
		nr*gini(classCounts(b.y, right, t.nClasses), len(right))

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	t.nodes[id].feature = best.feature
	t.nodes[id].threshold = best.threshold
	t.nodes[id].left = l
	t.nodes[id].right = r
	return id
}

// bestSplit visits features in random order until MaxFeatures non-constant
// features have been scored, then returns the highest gain split.
func (b *builder) bestSplit(idx []int, counts []int, parent float64) (candidate, bool) {
	t := b.tree
	_, p := b.X.Dims()
	k := t.MaxFeatures
	if k <= 0 || k > p {
		k = p
	}
	var (
		best    candidate
		found   bool
		visited int
	)
	for _, f := range b.rnd.Perm(p) {
		if visited >= k {
			break
		}
		c, scored := b.scanFeature(idx, counts, parent, f)
		if !scored {
			continue
		}
		visited++
		if !found || c.gain > best.gain {
			best, found = c, true
		}
	}
	return best, found
}

// scanFeature sorts idx by feature f and sweeps every boundary between
// distinct values. It reports false when the feature is constant on idx.
func (b *builder) scanFeature(idx []int, counts []int, parent float64, f int) (candidate, bool) {
	t := b.tree
	order := append([]int(nil), idx...)
	sort.SliceStable(order, func(i, j int) bool {
		return b.X.At(order[i], f) < b.X.At(order[j], f)
	})
	n := len(order)
	if b.X.At(order[0], f) == b.X.At(order[n-1], f) {
		return candidate{}, false
	}

	left := make([]int, t.nClasses)
	right := append([]int(nil), counts...)
	res := candidate{feature: f, gain: -1}
	for s := 1; s < n; s++ {
		c := b.y[order[s-1]]
		left[c]++
		right[c]--
		prev, cur := b.X.At(order[s-1], f), b.X.At(order[s], f)
		if prev == cur {
			continue
		}
		if s < t.MinSamplesLeaf || n-s < t.MinSamplesLeaf {
			continue
		}
		w := (float64(s)*gini(left, s) + float64(n-s)*gini(right, n-s)) / float64(n)
		if g := parent - w; g > res.gain {
			res.gain = g
			res.pos = s
			res.threshold = prev + (cur-prev)/2
		}
	}
	if res.pos == 0 {
		return candidate{}, false
	}
	res.order = order
	return res, true
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	s := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		s -= p * p
	}
	return s
}

func classCounts(y []int, idx []int, k int) []int {
	out := make([]int, k)
	for _, i := range idx {
		out[y[i]]++
	}
	return out
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func probas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(n)
	}
	return out
}
