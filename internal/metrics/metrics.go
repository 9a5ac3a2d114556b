// Package metrics scores classifier predictions.
package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ClassScore is one row of a classification report.
type ClassScore struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// ClassificationReport holds per-class scores plus the summary rows.
type ClassificationReport struct {
	Classes     []ClassScore `json:"classes"`
	Accuracy    float64      `json:"accuracy"`
	MacroAvg    ClassScore   `json:"macro_avg"`
	WeightedAvg ClassScore   `json:"weighted_avg"`
	Total       int          `json:"total"`
}

// ConfusionMatrix counts rows by true class (row) and predicted class (column).
func ConfusionMatrix(yTrue, yPred []int, nClasses int) (*mat.Dense, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("metrics: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	if nClasses < 1 {
		return nil, fmt.Errorf("metrics: need at least one class")
	}
	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, fmt.Errorf("metrics: class code out of range at row %d (%d, %d)", i, t, p)
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}

// Classification builds a report for the class names in code order.
// Precision, recall and F1 are 0 when their denominator is 0.
func Classification(yTrue, yPred []int, names []string) (*ClassificationReport, error) {
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("metrics: no labels")
	}
	cm, err := ConfusionMatrix(yTrue, yPred, len(names))
	if err != nil {
		return nil, err
	}
	k := len(names)
	rep := &ClassificationReport{Total: len(yTrue)}
	var correct float64
	for c := 0; c < k; c++ {
		tp := cm.At(c, c)
		correct += tp
		predicted := floats.Sum(mat.Col(nil, c, cm))
		actual := floats.Sum(cm.RawRowView(c))
		s := ClassScore{
			Class:     names[c],
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   int(actual),
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		rep.Classes = append(rep.Classes, s)
	}
	rep.Accuracy = correct / float64(len(yTrue))

	rep.MacroAvg = ClassScore{Class: "macro avg", Support: rep.Total}
	rep.WeightedAvg = ClassScore{Class: "weighted avg", Support: rep.Total}
	for _, s := range rep.Classes {
		w := float64(s.Support) / float64(rep.Total)
		rep.MacroAvg.Precision += s.Precision / float64(k)
		rep.MacroAvg.Recall += s.Recall / float64(k)
		rep.MacroAvg.F1 += s.F1 / float64(k)
		rep.WeightedAvg.Precision += s.Precision * w
		rep.WeightedAvg.Recall += s.Recall * w
		rep.WeightedAvg.F1 += s.F1 * w
	}
	return rep, nil
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// String renders the report as a fixed width text table with two decimals.
func (r *ClassificationReport) String() string {
	width := len("weighted avg")
	for _, s := range r.Classes {
		if len(s.Class) > width {
			width = len(s.Class)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(s ClassScore) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, s.Class, s.Precision, s.Recall, s.F1, s.Support)
	}
	for _, s := range r.Classes {
		row(s)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// Class returns the score row for name.
func (r *ClassificationReport) Class(name string) (ClassScore, bool) {
	for _, s := range r.Classes {
		if s.Class == name {
			return s, true
		}
	}
	return ClassScore{}, false
}
