package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Confusion matrix counts for a binary classifier with labels 0 and 1.
type Confusion struct {
	TP, FP, TN, FN int
}

// NewConfusion tallies predicted versus actual classes.
func NewConfusion(y, pred []int32) Confusion {
	var c Confusion
	for i := range y {
		switch {
		case pred[i] == 1 && y[i] == 1:
			c.TP++
		case pred[i] == 1 && y[i] == 0:
			c.FP++
		case pred[i] == 0 && y[i] == 0:
			c.TN++
		default:
			c.FN++
		}
	}
	return c
}

func (c Confusion) Total() int { return c.TP + c.FP + c.TN + c.FN }

func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

// Sensitivity is the true positive rate, also known as recall.
func (c Confusion) Sensitivity() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// Specificity is the true negative rate.
func (c Confusion) Specificity() float64 {
	return ratio(c.TN, c.TN+c.FP)
}

func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Sensitivity()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// MCC is the Matthews correlation coefficient, in [-1, 1].
func (c Confusion) MCC() float64 {
	tp, fp, tn, fn := float64(c.TP), float64(c.FP), float64(c.TN), float64(c.FN)
	den := math.Sqrt((tp + fp) * (tp + fn) * (tn + fp) * (tn + fn))
	if den == 0 {
		return 0
	}
	return (tp*tn - fp*fn) / den
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ROCCurve returns the true and false positive rates over all cutoffs of the
// predicted probabilities, using gonum's receiver operating characteristic.
func ROCCurve(y []int32, probs []float32) (tpr, fpr []float64) {
	yv := make([]float64, len(probs))
	classes := make([]bool, len(probs))
	for i, p := range probs {
		yv[i] = float64(p)
		classes[i] = y[i] == 1
	}
	stat.SortWeightedLabeled(yv, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, yv, classes, nil)
	return tpr, fpr
}

// AUC is the area under the ROC curve.
func AUC(y []int32, probs []float32) float64 {
	tpr, fpr := ROCCurve(y, probs)
	return integrate.Trapezoidal(fpr, tpr)
}

// Metrics holds the per fold evaluation statistics.
type Metrics struct {
	Accuracy    float64
	Sensitivity float64
	Specificity float64
	Precision   float64
	F1          float64
	MCC         float64
	AUC         float64
	Loss        float64
}

// Names of the metric fields, in report column order.
var MetricNames = []string{
	"accuracy", "sensitivity", "specificity", "precision", "f1", "mcc", "auc", "loss",
}

// Evaluate computes all metrics from actual classes, predicted classes and
// predicted probabilities.
func Evaluate(y, pred []int32, probs []float32, loss float64) Metrics {
	c := NewConfusion(y, pred)
	return Metrics{
		Accuracy:    c.Accuracy(),
		Sensitivity: c.Sensitivity(),
		Specificity: c.Specificity(),
		Precision:   c.Precision(),
		F1:          c.F1(),
		MCC:         c.MCC(),
		AUC:         AUC(y, probs),
		Loss:        loss,
	}
}

// Values returns the metrics in MetricNames order.
func (m Metrics) Values() []float64 {
	return []float64{
		m.Accuracy, m.Sensitivity, m.Specificity, m.Precision, m.F1, m.MCC, m.AUC, m.Loss,
	}
}

func (m Metrics) String() string {
	s := ""
	for i, v := range m.Values() {
		if i > 0 {
			s += "  "
		}
		s += fmt.Sprintf("%s=%.4f", MetricNames[i], v)
	}
	return s
}
