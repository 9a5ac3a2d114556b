package preprocess

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/testutil"
	"gonum.org/v1/gonum/mat"
)

func TestDiscretizerBoundaries(t *testing.T) {
	d := DefaultDiscretizer()
	cases := []struct {
		v    float64
		want string
		ok   bool
	}{
		{3, "bad", true},
		{6, "bad", true},
		{6.5, "bad", true},
		{6.51, "good", true},
		{7, "good", true},
		{8, "good", true},
		{2, Unclassified, false},
		{8.01, Unclassified, false},
		{9, Unclassified, false},
		{math.NaN(), Unclassified, false},
	}
	for _, tc := range cases {
		got, ok := d.Bin(tc.v)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Bin(%v) = %q,%v want %q,%v", tc.v, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNewDiscretizerValidates(t *testing.T) {
	if _, err := NewDiscretizer([]float64{2}, nil); err == nil {
		t.Fatalf("expected error for a single edge")
	}
	if _, err := NewDiscretizer([]float64{2, 6.5, 8}, []string{"bad"}); err == nil {
		t.Fatalf("expected error for label count")
	}
	if _, err := NewDiscretizer([]float64{2, 8, 6.5}, []string{"a", "b"}); err == nil {
		t.Fatalf("expected error for unsorted edges")
	}
	if _, err := NewDiscretizer([]float64{2, 6.5, 8}, []string{"x", "x"}); err == nil {
		t.Fatalf("expected error for duplicate labels")
	}
}

func TestApplyStrictReportsRow(t *testing.T) {
	_, _, err := DefaultDiscretizer().Apply([]float64{5, 7, 9}, true)
	var be *BinningError
	if !errors.As(err, &be) {
		t.Fatalf("expected BinningError, got %v", err)
	}
	if be.Row != 2 || be.Value != 9 {
		t.Fatalf("error = %+v", be)
	}
}

func TestLabelEncoderSortsClasses(t *testing.T) {
	var enc LabelEncoder
	enc.Fit([]string{"good", "bad", "good", Unclassified})
	if got := enc.Classes(); len(got) != 2 || got[0] != "bad" || got[1] != "good" {
		t.Fatalf("classes = %v", got)
	}
	codes, err := enc.Transform([]string{"good", "bad"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if codes[0] != 1 || codes[1] != 0 {
		t.Fatalf("codes = %v", codes)
	}
	if _, err := enc.Transform([]string{"meh"}); err == nil {
		t.Fatalf("expected error for unseen label")
	}
}

func readRows(t *testing.T, qualities ...string) *dataset.Dataset {
	t.Helper()
	rows := []string{testutil.Header}
	for _, q := range qualities {
		rows = append(rows, testutil.Row(q))
	}
	ds, err := dataset.Read(strings.NewReader(strings.Join(rows, "\n")), "q.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return ds
}

func TestLabel(t *testing.T) {
	ds := readRows(t, "5", "7", "6", "8", "3")
	lab, err := Label(ds, nil, true)
	if err != nil {
		t.Fatalf("Label: %v", err)
	}
	want := []int{0, 1, 0, 1, 0}
	for i, y := range lab.Target {
		if y != want[i] {
			t.Fatalf("target = %v, want %v", lab.Target, want)
		}
	}
	counts := lab.ClassCounts()
	if counts["bad"] != 3 || counts["good"] != 2 {
		t.Fatalf("counts = %v", counts)
	}
	// source quality is untouched
	if ds.Quality[1] != 7 {
		t.Fatalf("dataset mutated: %v", ds.Quality)
	}
}

func TestLabelCodesIndependentOfData(t *testing.T) {
	for name, scores := range map[string][]string{
		"all good": {"7", "8", "7"},
		"all bad":  {"3", "5", "6"},
	} {
		t.Run(name, func(t *testing.T) {
			lab, err := Label(readRows(t, scores...), nil, true)
			if err != nil {
				t.Fatalf("Label: %v", err)
			}
			if len(lab.Classes) != 2 || lab.Classes[0] != "bad" || lab.Classes[1] != "good" {
				t.Fatalf("classes = %v", lab.Classes)
			}
			for i, y := range lab.Target {
				want := 0
				if lab.Quality[i] > 6.5 {
					want = 1
				}
				if y != want {
					t.Fatalf("quality %v encoded as %d, want %d", lab.Quality[i], y, want)
				}
			}
			counts := lab.ClassCounts()
			if counts["bad"]+counts["good"] != len(scores) {
				t.Fatalf("counts = %v", counts)
			}
		})
	}
}

func TestLabelOutOfRange(t *testing.T) {
	ds := readRows(t, "5", "2", "7", "9")
	if _, err := Label(ds, nil, true); err == nil {
		t.Fatalf("expected BinningError under strict policy")
	}
	lab, err := Label(ds, nil, false)
	if err != nil {
		t.Fatalf("Label drop: %v", err)
	}
	if len(lab.Target) != 2 || len(lab.Dropped) != 2 || lab.Dropped[0] != 1 || lab.Dropped[1] != 3 {
		t.Fatalf("target=%v dropped=%v", lab.Target, lab.Dropped)
	}
	if r, _ := lab.Features.Dims(); r != 2 {
		t.Fatalf("features rows = %d", r)
	}
	if lab.Rows[1] != 2 || lab.Quality[1] != 7 {
		t.Fatalf("rows=%v quality=%v", lab.Rows, lab.Quality)
	}
}

func TestStandardizer(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := NewStandardizer()
	Z, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform: %v", err)
	}
	if m := s.Mean(); m[0] != 2.5 || m[1] != 5 {
		t.Fatalf("mean = %v", m)
	}
	// population std of 1..4 is sqrt(1.25); constant column keeps scale 1
	if sc := s.Scale(); math.Abs(sc[0]-math.Sqrt(1.25)) > 1e-12 || sc[1] != 1 {
		t.Fatalf("scale = %v", sc)
	}
	var sum, sq float64
	for i := 0; i < 4; i++ {
		v := Z.At(i, 0)
		sum += v
		sq += v * v
		if Z.At(i, 1) != 0 {
			t.Fatalf("constant column z = %v", Z.At(i, 1))
		}
	}
	if math.Abs(sum) > 1e-12 || math.Abs(sq/4-1) > 1e-12 {
		t.Fatalf("z mean=%v var=%v", sum/4, sq/4)
	}
	// input untouched
	if X.At(0, 0) != 1 {
		t.Fatalf("input mutated")
	}
}

func TestStandardizerErrors(t *testing.T) {
	s := NewStandardizer()
	if _, err := s.Transform(mat.NewDense(1, 1, nil)); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
	if err := s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := s.Transform(mat.NewDense(1, 3, nil)); err == nil {
		t.Fatalf("expected column mismatch error")
	}
	if err := s.Fit(mat.NewDense(2, 1, []float64{1, math.NaN()})); err == nil {
		t.Fatalf("expected NaN error")
	}
}
