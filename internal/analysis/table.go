package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/winequality-cli/internal/dataset"
	"github.com/KaramelBytes/winequality-cli/internal/preprocess"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Options controls which sections Describe computes.
type Options struct {
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	// Correlations computes the Pearson matrix across all columns.
	Correlations bool
	// Groups computes per-quality five-number summaries.
	Groups bool
	// Standardized fits a scaler on the full feature matrix and reports the result.
	Standardized bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions enables every section.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		Correlations:     true,
		Groups:           true,
		Standardized:     true,
		Outliers:         true,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly description of the wine table.
type Report struct {
	Name         string
	Rows         int
	Cols         []ColumnSummary
	Samples      [][]string
	Warnings     []string
	Groups       []GroupResult
	Corr         *CorrMatrix
	Standardized []ScaledSummary
}

// ColumnSummary mirrors a describe() row plus the missing-value count.
type ColumnSummary struct {
	Name    string
	Count   int
	Missing int
	Mean    float64
	Std     float64
	Min     float64
	Q25     float64
	Q50     float64
	Q75     float64
	Max     float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
}

// BoxStats is the five-number summary drawn by a boxplot.
type BoxStats struct {
	Count                  int
	Min, Q1, Median, Q3    float64
	Max                    float64
	LowerFence, UpperFence float64
	Outliers               int
}

// GroupResult holds per-feature box statistics for one quality score.
type GroupResult struct {
	Quality float64
	Size    int
	Box     map[string]BoxStats // by column name
}

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// At returns the correlation between columns i and j.
func (c *CorrMatrix) At(i, j int) float64 { return c.Values[i][j] }

// ScaledSummary is the mean and std of one standardized feature column.
type ScaledSummary struct {
	Name string
	Mean float64
	Std  float64
}

// NullCheck reports whether every column is complete.
func (r *Report) NullCheck() bool {
	for _, c := range r.Cols {
		if c.Missing > 0 {
			return false
		}
	}
	return true
}

// Column returns the summary for name, or false if absent.
func (r *Report) Column(name string) (ColumnSummary, bool) {
	for _, c := range r.Cols {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// Describe computes the descriptive statistics of ds. It does not modify ds.
func Describe(ds *dataset.Dataset, opt Options) (*Report, error) {
	if ds == nil || ds.Rows() == 0 {
		return nil, fmt.Errorf("describe: empty dataset")
	}
	rep := &Report{Name: ds.Name, Rows: ds.Rows()}
	tbl := ds.Table()
	_, ncol := tbl.Dims()

	cols := make([][]float64, ncol)
	for j := 0; j < ncol; j++ {
		cols[j] = mat.Col(nil, j, tbl)
	}

	rep.Cols = make([]ColumnSummary, 0, ncol)
	for j, name := range ds.Columns {
		s := summarize(name, cols[j])
		if opt.Outliers {
			thr := opt.OutlierThreshold
			if thr <= 0 {
				thr = 3.5
			}
			s.OutliersCount, s.OutliersMaxAbsZ = robustOutliers(finite(cols[j]), thr)
			s.OutlierThreshold = thr
		}
		rep.Cols = append(rep.Cols, s)
		if s.Missing > 0 {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("column %q has %d missing values", name, s.Missing))
		}
	}

	sampleRows := opt.SampleRows
	if sampleRows > len(ds.Samples) {
		sampleRows = len(ds.Samples)
	}
	if sampleRows > 0 {
		rep.Samples = ds.Samples[:sampleRows]
	}

	if opt.Correlations {
		rep.Corr = correlations(ds.Columns, cols)
	}
	if opt.Groups {
		rep.Groups = groupByQuality(ds.Columns, cols, ds.Quality)
	}
	if opt.Standardized {
		if rep.NullCheck() {
			sc := preprocess.NewStandardizer()
			z, err := sc.FitTransform(ds.Features)
			if err != nil {
				return nil, fmt.Errorf("standardize: %w", err)
			}
			for j, name := range dataset.FeatureNames {
				col := mat.Col(nil, j, z)
				mean := stat.Mean(col, nil)
				rep.Standardized = append(rep.Standardized, ScaledSummary{
					Name: name,
					Mean: mean,
					Std:  stat.PopStdDev(col, nil),
				})
			}
		} else {
			rep.Warnings = append(rep.Warnings, "standardized summary skipped: table has missing values")
		}
	}
	return rep, nil
}

func summarize(name string, col []float64) ColumnSummary {
	vals := finite(col)
	s := ColumnSummary{Name: name, Count: len(vals), Missing: len(col) - len(vals)}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	if len(vals) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	} else {
		s.Mean = vals[0]
		s.Std = math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q25 = quantile(sorted, 0.25)
	s.Q50 = quantile(sorted, 0.5)
	s.Q75 = quantile(sorted, 0.75)
	return s
}

func correlations(names []string, cols [][]float64) *CorrMatrix {
	n := len(cols)
	vals := make([][]float64, n)
	for i := range vals {
		vals[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		vals[a][a] = 1
		for b := 0; b < a; b++ {
			x, y := pairwiseComplete(cols[a], cols[b])
			var r float64
			if len(x) >= 2 {
				r = stat.Correlation(x, y, nil)
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				r = 0
			}
			if r > 1 {
				r = 1
			} else if r < -1 {
				r = -1
			}
			vals[a][b] = r
			vals[b][a] = r
		}
	}
	cn := make([]string, len(names))
	copy(cn, names)
	return &CorrMatrix{Columns: cn, Values: vals}
}

func groupByQuality(names []string, cols [][]float64, quality []float64) []GroupResult {
	byQ := map[float64][]int{}
	for i, q := range quality {
		if math.IsNaN(q) {
			continue
		}
		byQ[q] = append(byQ[q], i)
	}
	keys := make([]float64, 0, len(byQ))
	for q := range byQ {
		keys = append(keys, q)
	}
	sort.Float64s(keys)

	out := make([]GroupResult, 0, len(keys))
	for _, q := range keys {
		rows := byQ[q]
		g := GroupResult{Quality: q, Size: len(rows), Box: make(map[string]BoxStats, len(names))}
		for j, name := range names {
			vals := make([]float64, 0, len(rows))
			for _, i := range rows {
				if v := cols[j][i]; !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
			g.Box[name] = boxStats(vals)
		}
		out = append(out, g)
	}
	return out
}

// boxStats uses Tukey fences at 1.5 IQR.
func boxStats(vals []float64) BoxStats {
	if len(vals) == 0 {
		return BoxStats{}
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	b := BoxStats{
		Count:  len(sorted),
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	iqr := b.Q3 - b.Q1
	b.LowerFence = b.Q1 - 1.5*iqr
	b.UpperFence = b.Q3 + 1.5*iqr
	for _, v := range sorted {
		if v < b.LowerFence || v > b.UpperFence {
			b.Outliers++
		}
	}
	return b
}

// Markdown renders a compact report suitable for terminals or standalone docs.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(r.Cols)))
	if r.NullCheck() {
		b.WriteString("Missing values: none\n")
	}
	b.WriteString("\n[SCHEMA]\n")
	b.WriteString("| column | count | mean | std | min | 25% | 50% | 75% | max | missing |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- | --- | --- | --- |\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("| %s | %d | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %.4g | %d |\n",
			c.Name, c.Count, c.Mean, c.Std, c.Min, c.Q25, c.Q50, c.Q75, c.Max, c.Missing))
	}
	hasOutliers := false
	for _, c := range r.Cols {
		if c.OutliersCount > 0 {
			hasOutliers = true
			break
		}
	}
	if hasOutliers {
		b.WriteString("\n[OUTLIERS]\n")
		for _, c := range r.Cols {
			if c.OutliersCount == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %d above |z|>%.1f (max |z|≈%.2f)\n", c.Name, c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
		}
	}
	if len(r.Standardized) > 0 {
		b.WriteString("\n[STANDARDIZED]\n")
		for _, s := range r.Standardized {
			b.WriteString(fmt.Sprintf("- %s: mean %.3g, std %.3g\n", s.Name, s.Mean, s.Std))
		}
	}
	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: r.Corr.Values[i][j]})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			ai := math.Abs(pairs[i].R)
			aj := math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		maxp := 10
		if len(pairs) < maxp {
			maxp = len(pairs)
		}
		for i := 0; i < maxp; i++ {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", pairs[i].A, pairs[i].B, pairs[i].R))
		}
	}
	if len(r.Groups) > 0 {
		b.WriteString("\n[QUALITY GROUPS]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- quality=%g (n=%d)\n", g.Quality, g.Size))
			for _, name := range []string{"alcohol", "volatile acidity", "sulphates", "citric acid"} {
				bs, ok := g.Box[name]
				if !ok || bs.Count == 0 {
					continue
				}
				b.WriteString(fmt.Sprintf("  • %s: median %.4g (q1 %.4g, q3 %.4g, outliers %d)\n", name, bs.Median, bs.Q1, bs.Q3, bs.Outliers))
			}
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(c.Name)
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				if i < len(row) {
					b.WriteString(row[i])
				}
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func pairwiseComplete(a, b []float64) (x, y []float64) {
	x = make([]float64, 0, len(a))
	y = make([]float64, 0, len(b))
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}

// robustOutliers counts values whose MAD-based z exceeds thr.
func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ float64) {
	if len(vals) < 8 {
		return 0, 0
	}
	median, mad := medianMAD(vals)
	if mad == 0 {
		return 0, 0
	}
	for _, v := range vals {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > thr {
			count++
		}
		if az > maxAbsZ {
			maxAbsZ = az
		}
	}
	return count, maxAbsZ
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
