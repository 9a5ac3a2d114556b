// Package testutil builds synthetic wine tables for tests.
package testutil

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Header is the comma-separated schema line of the red wine file.
const Header = "fixed acidity,volatile acidity,citric acid,residual sugar,chlorides,free sulfur dioxide,total sulfur dioxide,density,pH,sulphates,alcohol,quality"

// WineCSV returns n synthetic rows. Wines scored 7 or 8 have alcohol above
// 11.7 and all others below 10.8, so the two classes are linearly separable
// on that column. Roughly a third of the rows are good.
func WineCSV(n int, seed int64) string {
	rnd := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		good := rnd.Float64() < 0.33
		var alcohol float64
		if good {
			alcohol = 11.7 + rnd.Float64()*2.3
		} else {
			alcohol = 8.5 + rnd.Float64()*2.3
		}
		writeRow(&b, rnd, alcohol, good)
	}
	return b.String()
}

// NoisyWineCSV returns n rows whose classes overlap. Alcohol is uniform on
// [8.5, 14] and a wine is good with probability 1/(1+exp(-3(alcohol-11))),
// so the best possible accuracy is about 0.92 and no model is perfect.
func NoisyWineCSV(n int, seed int64) string {
	rnd := rand.New(rand.NewSource(seed))
	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for i := 0; i < n; i++ {
		alcohol := 8.5 + rnd.Float64()*5.5
		good := rnd.Float64() < 1/(1+math.Exp(-3*(alcohol-11)))
		writeRow(&b, rnd, alcohol, good)
	}
	return b.String()
}

func writeRow(b *strings.Builder, rnd *rand.Rand, alcohol float64, good bool) {
	var quality int
	if good {
		quality = 7 + rnd.Intn(2)
	} else {
		quality = 3 + rnd.Intn(4)
	}
	row := []float64{
		4.6 + rnd.Float64()*11.3,  // fixed acidity
		0.12 + rnd.Float64()*1.46, // volatile acidity
		rnd.Float64(),             // citric acid
		0.9 + rnd.Float64()*14.6,  // residual sugar
		0.012 + rnd.Float64()*0.6, // chlorides
		1 + rnd.Float64()*71,      // free sulfur dioxide
		6 + rnd.Float64()*283,     // total sulfur dioxide
		0.990 + rnd.Float64()*0.014,
		2.74 + rnd.Float64()*1.27, // pH
		0.33 + rnd.Float64()*1.67, // sulphates
		alcohol,
	}
	for _, v := range row {
		b.WriteString(strconv.FormatFloat(v, 'f', 4, 64))
		b.WriteString(",")
	}
	b.WriteString(strconv.Itoa(quality))
	b.WriteString("\n")
}

// Row formats a single record with the given quality and fixed feature values.
func Row(quality string) string {
	return "7.4,0.7,0,1.9,0.076,11,34,0.9978,3.51,0.56,9.4," + quality
}

// WriteCSV writes content to a temp file and returns its path.
func WriteCSV(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}
