// Package plot renders the exploratory charts of a wine table to PNG files.
package plot

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/KaramelBytes/winequality-cli/internal/analysis"
	"github.com/KaramelBytes/winequality-cli/internal/dataset"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Output file names written by RenderAll.
const (
	HistogramsFile = "histograms.png"
	HeatmapFile    = "correlation_heatmap.png"
	BoxplotsFile   = "boxplots.png"
)

// Grid layout for the per-column figures.
const (
	gridRows = 4
	gridCols = 3
)

// Options controls the figure size and histogram resolution.
type Options struct {
	Bins   int
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns 20 bins on a 12x16 inch canvas.
func DefaultOptions() Options {
	return Options{Bins: 20, Width: 12 * vg.Inch, Height: 16 * vg.Inch}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Bins <= 0 {
		o.Bins = d.Bins
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// RenderAll writes the histogram grid, the correlation heatmap and the
// boxplot grid into dir and returns the written paths.
func RenderAll(ds *dataset.Dataset, rep *analysis.Report, dir string, opt Options) ([]string, error) {
	opt = opt.withDefaults()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	paths := []string{
		filepath.Join(dir, HistogramsFile),
		filepath.Join(dir, HeatmapFile),
		filepath.Join(dir, BoxplotsFile),
	}
	if err := Histograms(ds, opt, paths[0]); err != nil {
		return nil, err
	}
	if err := Heatmap(rep, opt, paths[1]); err != nil {
		return nil, err
	}
	if err := Boxplots(ds, opt, paths[2]); err != nil {
		return nil, err
	}
	return paths, nil
}

// Histograms draws one histogram per column.
func Histograms(ds *dataset.Dataset, opt Options, path string) error {
	opt = opt.withDefaults()
	plots := make([]*gplot.Plot, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		vals, err := ds.Column(col)
		if err != nil {
			return err
		}
		p := gplot.New()
		p.Title.Text = col
		v := finiteValues(vals)
		if len(v) > 0 {
			h, err := plotter.NewHist(v, opt.Bins)
			if err != nil {
				return fmt.Errorf("histogram %s: %w", col, err)
			}
			p.Add(h)
		}
		plots = append(plots, p)
	}
	return saveGrid(plots, opt, path)
}

// Boxplots draws, for every column, one box per raw quality score.
func Boxplots(ds *dataset.Dataset, opt Options, path string) error {
	opt = opt.withDefaults()
	groups := qualityGroups(ds.Quality)
	scores := make([]float64, 0, len(groups))
	for q := range groups {
		scores = append(scores, q)
	}
	sort.Float64s(scores)
	names := make([]string, len(scores))
	for i, q := range scores {
		names[i] = strconv.FormatFloat(q, 'g', -1, 64)
	}

	plots := make([]*gplot.Plot, 0, len(ds.Columns))
	for _, col := range ds.Columns {
		vals, err := ds.Column(col)
		if err != nil {
			return err
		}
		p := gplot.New()
		p.Title.Text = col
		p.X.Label.Text = dataset.TargetName
		for i, q := range scores {
			var v plotter.Values
			for _, r := range groups[q] {
				if !math.IsNaN(vals[r]) {
					v = append(v, vals[r])
				}
			}
			if len(v) == 0 {
				continue
			}
			b, err := plotter.NewBoxPlot(vg.Points(14), float64(i), v)
			if err != nil {
				return fmt.Errorf("boxplot %s quality=%s: %w", col, names[i], err)
			}
			p.Add(b)
		}
		p.NominalX(names...)
		plots = append(plots, p)
	}
	return saveGrid(plots, opt, path)
}

// Heatmap draws the correlation matrix on a blue to red scale over [-1, 1].
func Heatmap(rep *analysis.Report, opt Options, path string) error {
	opt = opt.withDefaults()
	if rep == nil || rep.Corr == nil {
		return fmt.Errorf("heatmap: report has no correlation matrix")
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	h := plotter.NewHeatMap(corrGrid{rep.Corr}, cm.Palette(255))
	h.Min, h.Max = -1, 1

	p := gplot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(h)
	n := len(rep.Corr.Columns)
	rows := make([]string, n)
	for i, c := range rep.Corr.Columns {
		rows[n-1-i] = c
	}
	p.NominalX(rep.Corr.Columns...)
	p.NominalY(rows...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	side := opt.Width
	if opt.Height < side {
		side = opt.Height
	}
	if err := p.Save(side, side, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// corrGrid exposes a correlation matrix as a plotter.GridXYZ with row 0 on top.
type corrGrid struct{ m *analysis.CorrMatrix }

func (g corrGrid) Dims() (c, r int)   { return len(g.m.Columns), len(g.m.Columns) }
func (g corrGrid) Z(c, r int) float64 { return g.m.At(len(g.m.Columns)-1-r, c) }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

func saveGrid(plots []*gplot.Plot, opt Options, path string) error {
	grid := make([][]*gplot.Plot, gridRows)
	for i := range grid {
		grid[i] = make([]*gplot.Plot, gridCols)
		for j := range grid[i] {
			if k := i*gridCols + j; k < len(plots) {
				grid[i][j] = plots[k]
			}
		}
	}

	img := vgimg.New(opt.Width, opt.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: gridRows,
		Cols: gridCols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	canvases := gplot.Align(grid, tiles, dc)
	for i := range grid {
		for j := range grid[i] {
			if grid[i][j] != nil {
				grid[i][j].Draw(canvases[i][j])
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func finiteValues(vals []float64) plotter.Values {
	out := make(plotter.Values, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

func qualityGroups(q []float64) map[float64][]int {
	out := map[float64][]int{}
	for i, v := range q {
		if math.IsNaN(v) {
			continue
		}
		out[v] = append(out[v], i)
	}
	return out
}
