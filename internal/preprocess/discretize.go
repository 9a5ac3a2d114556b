package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// BinningError reports a quality score that falls outside every bin.
type BinningError struct {
	Row   int
	Value float64
	Edges []float64
}

func (e *BinningError) Error() string {
	return fmt.Sprintf("row %d: quality %g outside bins %v", e.Row, e.Value, e.Edges)
}

// Unclassified is the label assigned to out-of-range rows under the drop policy.
const Unclassified = ""

// Default quality bins: (2, 6.5] is bad, (6.5, 8] is good.
var (
	DefaultEdges  = []float64{2, 6.5, 8}
	DefaultLabels = []string{"bad", "good"}
)

// Discretizer maps scores into named half-open intervals (lo, hi].
type Discretizer struct {
	edges  []float64
	labels []string
}

// NewDiscretizer validates that edges strictly increase and that there is
// one label per interval.
func NewDiscretizer(edges []float64, labels []string) (*Discretizer, error) {
	if len(edges) < 2 {
		return nil, errors.New("discretizer: need at least two edges")
	}
	if len(labels) != len(edges)-1 {
		return nil, fmt.Errorf("discretizer: %d edges need %d labels, got %d", len(edges), len(edges)-1, len(labels))
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("discretizer: edges must increase (%v)", edges)
		}
	}
	seen := map[string]bool{}
	for _, l := range labels {
		if l == Unclassified || seen[l] {
			return nil, fmt.Errorf("discretizer: labels must be unique and non-empty (%v)", labels)
		}
		seen[l] = true
	}
	return &Discretizer{
		edges:  append([]float64(nil), edges...),
		labels: append([]string(nil), labels...),
	}, nil
}

// DefaultDiscretizer returns the bad/good quality bins.
func DefaultDiscretizer() *Discretizer {
	d, _ := NewDiscretizer(DefaultEdges, DefaultLabels)
	return d
}

// Bin returns the label for a single score. The lowest edge is exclusive,
// every upper edge inclusive.
func (d *Discretizer) Bin(v float64) (string, bool) {
	if math.IsNaN(v) || v <= d.edges[0] || v > d.edges[len(d.edges)-1] {
		return Unclassified, false
	}
	// first edge >= v closes the interval containing v
	i := sort.SearchFloat64s(d.edges, v)
	return d.labels[i-1], true
}

// Apply bins every score. When strict, the first out-of-range score returns
// a *BinningError; otherwise those rows get Unclassified and are listed in dropped.
func (d *Discretizer) Apply(scores []float64, strict bool) (labels []string, dropped []int, err error) {
	labels = make([]string, len(scores))
	for i, v := range scores {
		l, ok := d.Bin(v)
		if !ok {
			if strict {
				return nil, nil, &BinningError{Row: i, Value: v, Edges: d.edges}
			}
			dropped = append(dropped, i)
		}
		labels[i] = l
	}
	return labels, dropped, nil
}

// Labels returns the interval names in edge order.
func (d *Discretizer) Labels() []string { return append([]string(nil), d.labels...) }

// LabelEncoder assigns integer codes to labels sorted by name.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// Fit learns the sorted set of distinct labels, ignoring Unclassified.
func (e *LabelEncoder) Fit(labels []string) {
	set := map[string]struct{}{}
	for _, l := range labels {
		if l == Unclassified {
			continue
		}
		set[l] = struct{}{}
	}
	e.classes = make([]string, 0, len(set))
	for l := range set {
		e.classes = append(e.classes, l)
	}
	sort.Strings(e.classes)
	e.index = make(map[string]int, len(e.classes))
	for i, l := range e.classes {
		e.index[l] = i
	}
}

// Transform maps labels to codes.
func (e *LabelEncoder) Transform(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("label encoder: unseen label %q at row %d", l, i)
		}
		out[i] = c
	}
	return out, nil
}

// Classes returns the label for each code.
func (e *LabelEncoder) Classes() []string { return append([]string(nil), e.classes...) }

// Labeled is the modeling view of a dataset: features and an integer target.
// It is a new value; the source dataset is left unchanged.
type Labeled struct {
	Features *mat.Dense
	Target   []int
	Classes  []string
	// Rows maps each labeled row to its index in the source dataset.
	Rows []int
	// Dropped lists source rows whose quality fell outside every bin.
	Dropped []int
	// Quality keeps the raw score of each labeled row.
	Quality []float64
}

// ClassCounts returns the number of rows per class name.
func (l *Labeled) ClassCounts() map[string]int {
	out := make(map[string]int, len(l.Classes))
	for _, c := range l.Classes {
		out[c] = 0
	}
	for _, y := range l.Target {
		out[l.Classes[y]]++
	}
	return out
}

// Label bins ds.Quality, encodes the labels and drops out-of-range rows
// unless strict is set.
func Label(ds *dataset.Dataset, d *Discretizer, strict bool) (*Labeled, error) {
	if d == nil {
		d = DefaultDiscretizer()
	}
	names, dropped, err := d.Apply(ds.Quality, strict)
	if err != nil {
		return nil, err
	}
	skip := make(map[int]bool, len(dropped))
	for _, i := range dropped {
		skip[i] = true
	}
	n, p := ds.Features.Dims()
	keep := make([]int, 0, n-len(dropped))
	kept := make([]string, 0, n-len(dropped))
	for i := 0; i < n; i++ {
		if skip[i] {
			continue
		}
		keep = append(keep, i)
		kept = append(kept, names[i])
	}
	if len(keep) == 0 {
		return nil, errors.New("label: no rows inside the quality bins")
	}

	// Codes come from the full label set so they do not depend on which
	// bins the data happens to fill.
	var enc LabelEncoder
	enc.Fit(d.Labels())
	target, err := enc.Transform(kept)
	if err != nil {
		return nil, err
	}

	X := mat.NewDense(len(keep), p, nil)
	q := make([]float64, len(keep))
	for k, i := range keep {
		X.SetRow(k, ds.Features.RawRowView(i))
		q[k] = ds.Quality[i]
	}
	return &Labeled{
		Features: X,
		Target:   target,
		Classes:  enc.Classes(),
		Rows:     keep,
		Dropped:  dropped,
		Quality:  q,
	}, nil
}
