package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// TargetName is the label column of the wine quality table.
const TargetName = "quality"

// FeatureNames lists the physicochemical columns in file order.
var FeatureNames = []string{
	"fixed acidity",
	"volatile acidity",
	"citric acid",
	"residual sugar",
	"chlorides",
	"free sulfur dioxide",
	"total sulfur dioxide",
	"density",
	"pH",
	"sulphates",
	"alcohol",
}

// Columns returns the full schema: the features followed by the target.
func Columns() []string {
	out := make([]string, 0, len(FeatureNames)+1)
	out = append(out, FeatureNames...)
	return append(out, TargetName)
}

// Dataset is the loaded wine table. It is not modified after Load.
type Dataset struct {
	Name     string
	Columns  []string
	Features *mat.Dense // rows x len(FeatureNames)
	Quality  []float64
	Missing  map[string]int
	// Samples keeps the first raw records for display.
	Samples [][]string
}

// Rows returns the number of records.
func (d *Dataset) Rows() int { return len(d.Quality) }

// Column returns a copy of the named column (feature or target).
func (d *Dataset) Column(name string) ([]float64, error) {
	if strings.EqualFold(name, TargetName) {
		out := make([]float64, len(d.Quality))
		copy(out, d.Quality)
		return out, nil
	}
	for j, f := range FeatureNames {
		if strings.EqualFold(f, name) {
			return mat.Col(nil, j, d.Features), nil
		}
	}
	return nil, fmt.Errorf("unknown column %q", name)
}

// Table returns all columns, quality last, as one matrix.
func (d *Dataset) Table() *mat.Dense {
	n, p := d.Features.Dims()
	t := mat.NewDense(n, p+1, nil)
	t.Slice(0, n, 0, p).(*mat.Dense).Copy(d.Features)
	t.SetCol(p, d.Quality)
	return t
}

// Load reads a wine quality CSV from disk.
func Load(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Reason: "read file", Err: err}
	}
	return Read(bytes.NewReader(b), path)
}

// Read parses a wine quality CSV from r. name is used in errors and reports.
func Read(r io.Reader, name string) (*Dataset, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Path: name, Reason: "read", Err: err}
	}
	delim := sniffDelimiter(b)

	header, err := readHeader(b, delim)
	if err != nil {
		return nil, &LoadError{Path: name, Reason: "read header", Err: err}
	}
	index, err := matchSchema(header)
	if err != nil {
		return nil, &LoadError{Path: name, Reason: "schema mismatch", Err: err}
	}

	if err := checkCells(b, delim, header); err != nil {
		return nil, &LoadError{Path: name, Reason: "parse csv", Err: err}
	}

	types := make(map[string]series.Type, len(header))
	for _, h := range header {
		types[h] = series.Float
	}
	df := dataframe.ReadCSV(bytes.NewReader(b),
		dataframe.HasHeader(true),
		dataframe.WithDelimiter(delim),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return nil, &LoadError{Path: name, Reason: "parse csv", Err: df.Err}
	}
	if df.Nrow() == 0 {
		return nil, &LoadError{Path: name, Reason: "no data rows"}
	}

	n := df.Nrow()
	ds := &Dataset{
		Name:     filepath.Base(name),
		Columns:  Columns(),
		Features: mat.NewDense(n, len(FeatureNames), nil),
		Missing:  make(map[string]int, len(FeatureNames)+1),
	}
	names := df.Names()
	for j, col := range ds.Columns {
		vals := df.Col(names[index[col]]).Float()
		misses := 0
		for _, v := range vals {
			if math.IsNaN(v) {
				misses++
			}
		}
		ds.Missing[col] = misses
		if col == TargetName {
			ds.Quality = vals
			continue
		}
		ds.Features.SetCol(j, vals)
	}
	ds.Samples = headRecords(df, index, 5)
	return ds, nil
}

// matchSchema maps each schema column to its position in header.
// Names are compared after trimming spaces and quotes, case-insensitively.
func matchSchema(header []string) (map[string]int, error) {
	want := Columns()
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		k := normalizeName(h)
		if _, dup := byKey[k]; dup {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		byKey[k] = i
	}
	index := make(map[string]int, len(want))
	var missing []string
	for _, c := range want {
		i, ok := byKey[normalizeName(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		index[c] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	if len(header) != len(want) {
		var extra []string
		for _, h := range header {
			known := false
			for _, c := range want {
				if normalizeName(c) == normalizeName(h) {
					known = true
					break
				}
			}
			if !known {
				extra = append(extra, h)
			}
		}
		return nil, fmt.Errorf("unexpected columns: %s", strings.Join(extra, ", "))
	}
	return index, nil
}

// missingTokens are read as NaN; gota treats the same tokens as missing.
var missingTokens = map[string]bool{"": true, "NA": true, "NaN": true}

// checkCells rejects any cell that is neither numeric nor a missing marker.
// Row numbers in errors count data rows from 1.
func checkCells(b []byte, delim rune, header []string) error {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = delim
	if _, err := r.Read(); err != nil {
		return err
	}
	for row := 1; ; row++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for j, cell := range rec {
			v := strings.TrimSpace(cell)
			if missingTokens[v] {
				continue
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return fmt.Errorf("row %d column %q: %q is not numeric", row, strings.TrimSpace(header[j]), cell)
			}
		}
	}
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), `"'`))
}

func headRecords(df dataframe.DataFrame, index map[string]int, limit int) [][]string {
	n := df.Nrow()
	if n > limit {
		n = limit
	}
	cols := Columns()
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = df.Elem(i, index[c]).String()
		}
		out[i] = row
	}
	return out
}

func readHeader(b []byte, delim rune) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(b))
	r.Comma = delim
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	return header, nil
}

// sniffDelimiter inspects the header line. The UCI distribution uses ';',
// the common mirror uses ','.
func sniffDelimiter(b []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(b))
	if !sc.Scan() {
		return ','
	}
	line := sc.Text()
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}
