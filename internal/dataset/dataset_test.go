package dataset_test

import (
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/testutil"
)

func TestLoad_CommaFile(t *testing.T) {
	p := testutil.WriteCSV(t, "winequality-red.csv", testutil.WineCSV(50, 1))
	ds, err := dataset.Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Name != "winequality-red.csv" {
		t.Fatalf("name = %q", ds.Name)
	}
	if ds.Rows() != 50 {
		t.Fatalf("rows = %d, want 50", ds.Rows())
	}
	r, c := ds.Features.Dims()
	if r != 50 || c != len(dataset.FeatureNames) {
		t.Fatalf("features dims = %dx%d", r, c)
	}
	for _, col := range ds.Columns {
		if ds.Missing[col] != 0 {
			t.Fatalf("missing[%s] = %d, want 0", col, ds.Missing[col])
		}
	}
	if len(ds.Samples) != 5 {
		t.Fatalf("samples = %d, want 5", len(ds.Samples))
	}
	tbl := ds.Table()
	if _, tc := tbl.Dims(); tc != 12 {
		t.Fatalf("table cols = %d, want 12", tc)
	}
	if tbl.At(3, 11) != ds.Quality[3] {
		t.Fatalf("table quality column mismatch")
	}
}

func TestRead_SemicolonAndReorderedColumns(t *testing.T) {
	content := strings.Join([]string{
		`"quality";"fixed acidity";"volatile acidity";"citric acid";"residual sugar";"chlorides";"free sulfur dioxide";"total sulfur dioxide";"density";"pH";"sulphates";"alcohol"`,
		"5;7.4;0.7;0;1.9;0.076;11;34;0.9978;3.51;0.56;9.4",
		"7;7.8;0.88;0;2.6;0.098;25;67;0.9968;3.2;0.68;9.8",
	}, "\n")
	ds, err := dataset.Read(strings.NewReader(content), "uci.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Quality[0] != 5 || ds.Quality[1] != 7 {
		t.Fatalf("quality = %v", ds.Quality)
	}
	alc, err := ds.Column("alcohol")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if alc[0] != 9.4 || alc[1] != 9.8 {
		t.Fatalf("alcohol = %v", alc)
	}
	if ds.Features.At(0, 0) != 7.4 {
		t.Fatalf("fixed acidity = %v", ds.Features.At(0, 0))
	}
}

func TestRead_CountsMissing(t *testing.T) {
	content := testutil.Header + "\n" +
		testutil.Row("5") + "\n" +
		"7.4,,0,1.9,0.076,11,34,0.9978,3.51,0.56,9.4,6\n"
	ds, err := dataset.Read(strings.NewReader(content), "gaps.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Missing["volatile acidity"] != 1 {
		t.Fatalf("missing volatile acidity = %d, want 1", ds.Missing["volatile acidity"])
	}
	if !math.IsNaN(ds.Features.At(1, 1)) {
		t.Fatalf("expected NaN for empty cell, got %v", ds.Features.At(1, 1))
	}
}

func TestRead_NonNumericCellNamesRow(t *testing.T) {
	content := testutil.Header + "\n" +
		testutil.Row("5") + "\n" +
		testutil.Row("six") + "\n"
	_, err := dataset.Read(strings.NewReader(content), "typo.csv")
	var le *dataset.LoadError
	if !errors.As(err, &le) || le.Reason != "parse csv" {
		t.Fatalf("expected parse csv LoadError, got %v", err)
	}
	if !strings.Contains(err.Error(), `row 2 column "quality"`) {
		t.Fatalf("error should name the cell: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		reason  string
	}{
		{"missing column", "fixed acidity,quality\n7.4,5\n", "schema mismatch"},
		{"extra column", testutil.Header + ",color\n" + testutil.Row("5") + ",red\n", "schema mismatch"},
		{"header only", testutil.Header + "\n", "no data rows"},
		{"empty", "", "read header"},
		{"text cell", testutil.Header + "\n" + "7.4,high,0,1.9,0.076,11,34,0.9978,3.51,0.56,9.4,5\n", "parse csv"},
		{"ragged row", testutil.Header + "\n" + "7.4,0.7,0\n", "parse csv"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := dataset.Read(strings.NewReader(tc.content), "bad.csv")
			var le *dataset.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected LoadError, got %v", err)
			}
			if le.Reason != tc.reason && !(tc.name == "header only" && le.Reason == "parse csv") {
				t.Fatalf("reason = %q, want %q (%v)", le.Reason, tc.reason, err)
			}
		})
	}

	_, err := dataset.Load(filepath.Join(t.TempDir(), "absent.csv"))
	var le *dataset.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected LoadError for missing file, got %v", err)
	}
}
