package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/KaramelBytes/winequality-cli/internal/config"
	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/model"
	"github.com/KaramelBytes/winequality-cli/internal/preprocess"
	"github.com/KaramelBytes/winequality-cli/internal/testutil"
)

func quickSettings() Settings {
	s := DefaultSettings()
	s.Trees = 30
	s.PlotsDir = ""
	return s
}

func quickSettingsWithTrees(n int) Settings {
	s := quickSettings()
	s.Trees = n
	return s
}

func TestRunSeparable(t *testing.T) {
	path := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(300, 5))
	res, err := Run(context.Background(), quickSettings(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Raw.Rows() != 300 || res.Summary == nil {
		t.Fatalf("raw/summary stages missing")
	}
	if got := len(res.Partition.TestIdx); got != 60 {
		t.Fatalf("test rows = %d, want 60", got)
	}
	if res.ClassCounts["bad"]+res.ClassCounts["good"] != 300 {
		t.Fatalf("class counts = %v", res.ClassCounts)
	}
	if len(res.Models) != 2 {
		t.Fatalf("models = %d", len(res.Models))
	}
	names := []string{"RandomForestClassifier", "SGDClassifier"}
	for i, m := range res.Models {
		if m.Name != names[i] {
			t.Fatalf("model %d = %s, want %s", i, m.Name, names[i])
		}
		if m.Report.Accuracy < 0.85 {
			t.Fatalf("%s accuracy = %v", m.Name, m.Report.Accuracy)
		}
		if m.Report.Total != 60 {
			t.Fatalf("%s support = %d", m.Name, m.Report.Total)
		}
	}
	if len(res.Models[0].Importances) != 11 {
		t.Fatalf("forest importances missing")
	}
	if res.Models[1].NIter < 1 {
		t.Fatalf("sgd n iter = %d", res.Models[1].NIter)
	}
	if res.Scaled.Mode != config.ScaleIndependent {
		t.Fatalf("scale mode = %s", res.Scaled.Mode)
	}
	var warned bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "own statistics") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected independent scaling warning, got %v", res.Warnings)
	}

	txt := res.Text()
	for _, want := range []string{"Class counts:", "bad:", "== RandomForestClassifier ==", "== SGDClassifier ==", "precision", "Top features:", "⚠ "} {
		if !strings.Contains(txt, want) {
			t.Fatalf("text missing %q:\n%s", want, txt)
		}
	}
}

func TestRunDeterministic(t *testing.T) {
	path := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(150, 9))
	a, err := Run(context.Background(), quickSettings(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(context.Background(), quickSettings(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(a.Partition.TestIdx, b.Partition.TestIdx) {
		t.Fatalf("split differs between runs")
	}
	for i := range a.Models {
		if !reflect.DeepEqual(a.Models[i].Report, b.Models[i].Report) {
			t.Fatalf("%s report differs between runs", a.Models[i].Name)
		}
	}
	if a.Text() != b.Text() {
		t.Fatalf("text differs between runs")
	}
}

func TestRunSharedScaling(t *testing.T) {
	path := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(120, 2))
	s := quickSettings()
	s.ScaleMode = config.ScaleShared
	res, err := Run(context.Background(), s, path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Scaled.Mode != config.ScaleShared {
		t.Fatalf("mode = %s", res.Scaled.Mode)
	}
	for _, w := range res.Warnings {
		if strings.Contains(w, "own statistics") {
			t.Fatalf("unexpected warning %q", w)
		}
	}
}

func TestRunOutOfRange(t *testing.T) {
	content := testutil.WineCSV(80, 4) + testutil.Row("9") + "\n" + testutil.Row("2") + "\n"
	path := testutil.WriteCSV(t, "wine.csv", content)

	_, err := Run(context.Background(), quickSettings(), path)
	var be *preprocess.BinningError
	if !errors.As(err, &be) {
		t.Fatalf("expected BinningError, got %v", err)
	}
	if be.Row != 80 || be.Value != 9 {
		t.Fatalf("error = %+v", be)
	}

	s := quickSettings()
	s.OutOfRange = config.OutOfRangeDrop
	res, err := Run(context.Background(), s, path)
	if err != nil {
		t.Fatalf("Run drop: %v", err)
	}
	if len(res.Labeled.Dropped) != 2 || res.ClassCounts["bad"]+res.ClassCounts["good"] != 80 {
		t.Fatalf("dropped=%v counts=%v", res.Labeled.Dropped, res.ClassCounts)
	}
}

func TestRunOverlappingClasses(t *testing.T) {
	path := testutil.WriteCSV(t, "noisy.csv", testutil.NoisyWineCSV(600, 3))
	s := quickSettings()
	s.Trees = 50
	res, err := Run(context.Background(), s, path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(res.Partition.TestIdx); got != 120 {
		t.Fatalf("test rows = %d, want 120", got)
	}
	for _, m := range res.Models {
		acc := m.Report.Accuracy
		if acc < 0.7 || acc >= 1 {
			t.Fatalf("%s accuracy = %v, want in [0.7, 1)", m.Name, acc)
		}
	}
}

// redWinePath is the public UCI red wine table. The file is not bundled;
// drop it into testdata or point WINEQ_RED_CSV at a copy.
func redWinePath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WINEQ_RED_CSV")
	if p == "" {
		p = filepath.Join("testdata", "winequality-red.csv")
	}
	if _, err := os.Stat(p); err != nil {
		t.Skipf("red wine table not available: %v", err)
	}
	return p
}

func TestRunRedWineBaseline(t *testing.T) {
	if testing.Short() {
		t.Skip("fits 200 trees")
	}
	path := redWinePath(t)
	res, err := Run(context.Background(), quickSettingsWithTrees(200), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Raw.Rows() != 1599 {
		t.Fatalf("rows = %d, want 1599", res.Raw.Rows())
	}
	if got := len(res.Partition.TestIdx); got != 320 {
		t.Fatalf("test rows = %d, want 320", got)
	}
	bands := map[string][2]float64{
		"RandomForestClassifier": {0.85, 0.91},
		"SGDClassifier":          {0.78, 0.88},
	}
	for _, m := range res.Models {
		b := bands[m.Name]
		if acc := m.Report.Accuracy; acc < b[0] || acc > b[1] {
			t.Fatalf("%s accuracy = %.3f, want in [%.2f, %.2f]", m.Name, acc, b[0], b[1])
		}
	}
}

func TestRunSingleClassFails(t *testing.T) {
	content := testutil.Header + "\n" + testutil.Row("7") + "\n" + testutil.Row("8") + "\n" + testutil.Row("7") + "\n"
	ds, err := dataset.Read(strings.NewReader(content), "good.csv")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	res := &Result{Settings: quickSettings(), Raw: ds}
	err = res.Train(context.Background())
	if err == nil || !strings.Contains(err.Error(), "two classes") {
		t.Fatalf("expected two classes error, got %v", err)
	}
}

func TestRunWritesPlots(t *testing.T) {
	path := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(60, 6))
	s := quickSettings()
	s.Trees = 5
	s.PlotsDir = filepath.Join(t.TempDir(), "plots")
	res, err := Run(context.Background(), s, path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Plots) != 3 {
		t.Fatalf("plots = %v", res.Plots)
	}
	for _, p := range res.Plots {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("plot %s: %v", p, err)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	path := testutil.WriteCSV(t, "wine.csv", testutil.WineCSV(40, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, quickSettings(), path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFromConfig(t *testing.T) {
	c := config.Default()
	c.Trees = 7
	c.HistBins = 11
	c.SampleRow = 3
	s := FromConfig(c)
	if s.Trees != 7 || s.Plot.Bins != 11 || s.Describe.SampleRows != 3 {
		t.Fatalf("settings = %+v", s)
	}
	if s.Seed != 42 || s.TestSize != 0.2 || s.ScaleMode != config.ScaleIndependent {
		t.Fatalf("defaults not carried: %+v", s)
	}
}

func TestClassifiersTolAsGiven(t *testing.T) {
	for _, tol := range []float64{0, -1, 1e-3} {
		s := DefaultSettings()
		s.SGDTol = tol
		clfs := Classifiers(s)
		sgd, ok := clfs[1].(*model.SGDClassifier)
		if !ok {
			t.Fatalf("second classifier = %T", clfs[1])
		}
		if sgd.Tol != tol {
			t.Fatalf("tol = %v, want %v", sgd.Tol, tol)
		}
	}
}
