// Package pipeline runs the full wine pipeline: load, describe, plot, label,
// split, standardize, fit both classifiers and score them on the test set.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/KaramelBytes/winequality-cli/internal/analysis"
	"github.com/KaramelBytes/winequality-cli/internal/config"
	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/metrics"
	"github.com/KaramelBytes/winequality-cli/internal/model"
	"github.com/KaramelBytes/winequality-cli/internal/plot"
	"github.com/KaramelBytes/winequality-cli/internal/preprocess"
	"github.com/KaramelBytes/winequality-cli/internal/split"
	"gonum.org/v1/gonum/mat"
)

// Settings carries every knob of a run.
type Settings struct {
	Seed     int64   `json:"seed"`
	TestSize float64 `json:"test_size"`

	Trees       int `json:"trees"`
	MaxDepth    int `json:"max_depth,omitempty"`
	MaxFeatures int `json:"max_features,omitempty"`
	Workers     int `json:"workers,omitempty"`

	SGDAlpha         float64 `json:"sgd_alpha"`
	SGDMaxIter       int     `json:"sgd_max_iter"`
	SGDTol           float64 `json:"sgd_tol"`
	SGDNIterNoChange int     `json:"sgd_n_iter_no_change"`

	ScaleMode  string    `json:"scale_mode"`
	OutOfRange string    `json:"out_of_range"`
	BinEdges   []float64 `json:"bin_edges"`
	BinLabels  []string  `json:"bin_labels"`

	// PlotsDir empty skips the plot stage.
	PlotsDir string           `json:"plots_dir,omitempty"`
	Plot     plot.Options     `json:"-"`
	Describe analysis.Options `json:"-"`
}

// FromConfig maps the persisted configuration onto run settings.
func FromConfig(c *config.Global) Settings {
	d := analysis.DefaultOptions()
	if c.SampleRow > 0 {
		d.SampleRows = c.SampleRow
	}
	return Settings{
		Seed:             c.Seed,
		TestSize:         c.TestSize,
		Trees:            c.Trees,
		MaxDepth:         c.MaxDepth,
		MaxFeatures:      c.MaxFeatures,
		Workers:          c.Workers,
		SGDAlpha:         c.SGDAlpha,
		SGDMaxIter:       c.SGDMaxIter,
		SGDTol:           c.SGDTol,
		SGDNIterNoChange: c.SGDNIterNoChange,
		ScaleMode:        c.ScaleMode,
		OutOfRange:       c.OutOfRange,
		BinEdges:         append([]float64(nil), c.BinEdges...),
		BinLabels:        append([]string(nil), c.BinLabels...),
		PlotsDir:         c.PlotsDir,
		Plot:             plot.Options{Bins: c.HistBins},
		Describe:         d,
	}
}

// DefaultSettings returns the settings of the built-in configuration.
func DefaultSettings() Settings { return FromConfig(config.Default()) }

// Scaled holds the standardized partitions.
type Scaled struct {
	XTrain, XTest *mat.Dense
	Mode          string
}

// ModelResult is the test-set evaluation of one classifier.
type ModelResult struct {
	Name      string
	Report    *metrics.ClassificationReport
	Confusion *mat.Dense
	// Importances is set for the forest, NIter for the SGD classifier.
	Importances []float64
	NIter       int
}

// Result exposes the value produced by every stage.
type Result struct {
	Settings    Settings
	Raw         *dataset.Dataset
	Summary     *analysis.Report
	Plots       []string
	Labeled     *preprocess.Labeled
	Partition   *split.Partition
	Scaled      *Scaled
	Models      []ModelResult
	ClassCounts map[string]int
	Warnings    []string
}

// Run executes every stage in order and stops at the first failure.
func Run(ctx context.Context, s Settings, path string) (*Result, error) {
	res := &Result{Settings: s}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}
	res.Raw = ds
	slog.Debug("loaded dataset", "path", path, "rows", ds.Rows())

	if err := res.Analyze(ctx); err != nil {
		return nil, err
	}
	if err := res.Train(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// Analyze runs the describe and plot stages on res.Raw.
func (res *Result) Analyze(ctx context.Context) error {
	s := res.Settings
	if err := ctx.Err(); err != nil {
		return err
	}
	opt := s.Describe
	if opt == (analysis.Options{}) {
		opt = analysis.DefaultOptions()
	}
	rep, err := analysis.Describe(res.Raw, opt)
	if err != nil {
		return fmt.Errorf("describe: %w", err)
	}
	res.Summary = rep
	res.Warnings = append(res.Warnings, rep.Warnings...)

	if s.PlotsDir == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	paths, err := plot.RenderAll(res.Raw, rep, s.PlotsDir, s.Plot)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	res.Plots = paths
	slog.Debug("wrote plots", "dir", s.PlotsDir, "files", len(paths))
	return nil
}

// Train runs labeling, splitting, scaling, fitting and evaluation on res.Raw.
func (res *Result) Train(ctx context.Context) error {
	s := res.Settings
	if err := ctx.Err(); err != nil {
		return err
	}
	disc, err := preprocess.NewDiscretizer(s.BinEdges, s.BinLabels)
	if err != nil {
		return err
	}
	lab, err := preprocess.Label(res.Raw, disc, s.OutOfRange != config.OutOfRangeDrop)
	if err != nil {
		return fmt.Errorf("label: %w", err)
	}
	res.Labeled = lab
	res.ClassCounts = lab.ClassCounts()
	if n := len(lab.Dropped); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("dropped %d rows with quality outside %v", n, s.BinEdges))
	}
	present := 0
	for _, c := range res.ClassCounts {
		if c > 0 {
			present++
		}
	}
	if present < 2 {
		return fmt.Errorf("label: need rows in at least two classes, got %v", res.ClassCounts)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	part, err := split.TrainTest(lab.Features, lab.Target, s.TestSize, s.Seed)
	if err != nil {
		return err
	}
	res.Partition = part
	slog.Debug("split", "train", len(part.TrainIdx), "test", len(part.TestIdx))

	if err := ctx.Err(); err != nil {
		return err
	}
	scaled, warn, err := scale(part, s.ScaleMode)
	if err != nil {
		return err
	}
	res.Scaled = scaled
	if warn != "" {
		res.Warnings = append(res.Warnings, warn)
	}

	for _, clf := range Classifiers(s) {
		if err := ctx.Err(); err != nil {
			return err
		}
		mr, err := evaluate(clf, scaled, part, lab.Classes)
		if err != nil {
			return err
		}
		slog.Debug("evaluated model", "model", mr.Name, "accuracy", mr.Report.Accuracy)
		res.Models = append(res.Models, mr)
	}
	return nil
}

// Classifiers returns the forest and the SGD classifier configured by s.
func Classifiers(s Settings) []model.Classifier {
	trees := s.Trees
	if trees <= 0 {
		trees = model.DefaultTrees
	}
	rf := model.NewRandomForest(
		model.WithTrees(trees),
		model.WithMaxDepth(s.MaxDepth),
		model.WithMaxFeatures(s.MaxFeatures),
		model.WithWorkers(s.Workers),
		model.WithSeed(s.Seed),
	)
	opts := []model.SGDOption{model.WithSGDSeed(s.Seed)}
	if s.SGDAlpha > 0 {
		opts = append(opts, model.WithAlpha(s.SGDAlpha))
	}
	if s.SGDMaxIter > 0 {
		opts = append(opts, model.WithMaxIter(s.SGDMaxIter))
	}
	// Tol is taken as given: 0 stops once the epoch loss stops falling,
	// negative turns the loss based stop off.
	opts = append(opts, model.WithTol(s.SGDTol))
	if s.SGDNIterNoChange > 0 {
		opts = append(opts, model.WithNIterNoChange(s.SGDNIterNoChange))
	}
	return []model.Classifier{rf, model.NewSGDClassifier(opts...)}
}

func scale(p *split.Partition, mode string) (*Scaled, string, error) {
	train := preprocess.NewStandardizer()
	xTrain, err := train.FitTransform(p.XTrain)
	if err != nil {
		return nil, "", fmt.Errorf("standardize train: %w", err)
	}
	out := &Scaled{XTrain: xTrain, Mode: mode}
	switch mode {
	case config.ScaleShared:
		out.XTest, err = train.Transform(p.XTest)
		if err != nil {
			return nil, "", fmt.Errorf("standardize test: %w", err)
		}
		return out, "", nil
	case config.ScaleIndependent, "":
		out.Mode = config.ScaleIndependent
		out.XTest, err = preprocess.NewStandardizer().FitTransform(p.XTest)
		if err != nil {
			return nil, "", fmt.Errorf("standardize test: %w", err)
		}
		return out, "test partition standardized with its own statistics (scale_mode=independent)", nil
	default:
		return nil, "", fmt.Errorf("unknown scale mode %q", mode)
	}
}

func evaluate(clf model.Classifier, sc *Scaled, p *split.Partition, classes []string) (ModelResult, error) {
	if err := clf.Fit(sc.XTrain, p.YTrain); err != nil {
		return ModelResult{}, fmt.Errorf("fit %s: %w", clf.Name(), err)
	}
	pred, err := clf.Predict(sc.XTest)
	if err != nil {
		return ModelResult{}, fmt.Errorf("predict %s: %w", clf.Name(), err)
	}
	rep, err := metrics.Classification(p.YTest, pred, classes)
	if err != nil {
		return ModelResult{}, fmt.Errorf("score %s: %w", clf.Name(), err)
	}
	cm, err := metrics.ConfusionMatrix(p.YTest, pred, len(classes))
	if err != nil {
		return ModelResult{}, fmt.Errorf("score %s: %w", clf.Name(), err)
	}
	mr := ModelResult{Name: clf.Name(), Report: rep, Confusion: cm}
	switch m := clf.(type) {
	case *model.RandomForest:
		mr.Importances = m.FeatureImportances()
	case *model.SGDClassifier:
		mr.NIter = m.NIter()
	}
	return mr, nil
}

// Text renders class counts, one report per model and any warnings.
func (res *Result) Text() string {
	var b strings.Builder
	if len(res.ClassCounts) > 0 {
		b.WriteString("Class counts:\n")
		names := make([]string, 0, len(res.ClassCounts))
		for k := range res.ClassCounts {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&b, "  %s: %d\n", k, res.ClassCounts[k])
		}
		b.WriteString("\n")
	}
	if res.Partition != nil {
		fmt.Fprintf(&b, "Train rows: %d, test rows: %d\n\n", len(res.Partition.TrainIdx), len(res.Partition.TestIdx))
	}
	for _, m := range res.Models {
		fmt.Fprintf(&b, "== %s ==\n", m.Name)
		b.WriteString(m.Report.String())
		if len(m.Importances) > 0 {
			b.WriteString("\nTop features:\n")
			for _, fi := range topFeatures(m.Importances, 5) {
				fmt.Fprintf(&b, "  %-22s %.3f\n", dataset.FeatureNames[fi], m.Importances[fi])
			}
		}
		b.WriteString("\n")
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "⚠ %s\n", w)
	}
	return b.String()
}

func topFeatures(imp []float64, k int) []int {
	idx := make([]int, len(imp))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return imp[idx[a]] > imp[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
