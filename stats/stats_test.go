package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA(t *testing.T) {
	var e EMA
	e = EMA(e.Add(1, 9))
	assert.InDelta(t, 1.0, float64(e), 1e-9, "first sample seeds the average")
	e = EMA(e.Add(2, 9))
	assert.InDelta(t, 1.2, float64(e), 1e-9)
	e = EMA(e.Add(3, 9))
	assert.InDelta(t, 1.56, float64(e), 1e-9)
}

func TestAverage(t *testing.T) {
	avg := new(Average)
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		avg.Add(v)
	}
	assert.InDelta(t, 5.0, avg.Mean, 1e-9)
	assert.InDelta(t, 2.138, avg.StdDev, 1e-3)
}

func TestConfusion(t *testing.T) {
	y := []int32{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}
	pred := []int32{1, 1, 1, 0, 0, 0, 0, 0, 1, 1}
	c := NewConfusion(y, pred)
	assert.Equal(t, Confusion{TP: 3, FP: 2, TN: 4, FN: 1}, c)
	assert.InDelta(t, 0.7, c.Accuracy(), 1e-9)
	assert.InDelta(t, 0.75, c.Sensitivity(), 1e-9)
	assert.InDelta(t, 4.0/6.0, c.Specificity(), 1e-9)
	assert.InDelta(t, 0.6, c.Precision(), 1e-9)
	f1 := 2 * 0.6 * 0.75 / (0.6 + 0.75)
	assert.InDelta(t, f1, c.F1(), 1e-9)
	mcc := (3.0*4.0 - 2.0*1.0) / math.Sqrt(5.0*4.0*6.0*5.0)
	assert.InDelta(t, mcc, c.MCC(), 1e-9)
}

func TestConfusionDegenerate(t *testing.T) {
	c := NewConfusion([]int32{0, 0}, []int32{0, 0})
	assert.Equal(t, 1.0, c.Accuracy())
	assert.Equal(t, 0.0, c.Sensitivity())
	assert.Equal(t, 0.0, c.MCC())
}

func TestAUC(t *testing.T) {
	// perfect ranking
	y := []int32{0, 0, 1, 1}
	probs := []float32{0.1, 0.2, 0.8, 0.9}
	assert.InDelta(t, 1.0, AUC(y, probs), 1e-9)
	// inverted ranking
	assert.InDelta(t, 0.0, AUC([]int32{1, 1, 0, 0}, probs), 1e-9)
	// one positive ranked above one of two negatives
	y = []int32{0, 1, 0}
	probs = []float32{0.1, 0.5, 0.9}
	assert.InDelta(t, 0.5, AUC(y, probs), 1e-9)
}

func TestEvaluate(t *testing.T) {
	y := []int32{1, 0, 1, 0}
	pred := []int32{1, 0, 0, 0}
	probs := []float32{0.9, 0.2, 0.4, 0.1}
	m := Evaluate(y, pred, probs, 0.35)
	require.Len(t, m.Values(), len(MetricNames))
	assert.InDelta(t, 0.75, m.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, m.Sensitivity, 1e-9)
	assert.InDelta(t, 1.0, m.Specificity, 1e-9)
	assert.InDelta(t, 1.0, m.AUC, 1e-9)
	assert.Equal(t, 0.35, m.Loss)
}
