package nnet

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fendouba123/DCNN/num"
)

// Training statistics for one epoch
type Stats struct {
	Epoch     int
	Values    []float64
	BestSince int
	Elapsed   time.Duration
}

func StatsHeaders(d map[string]Data) []string {
	h := []string{"loss"}
	for _, key := range DataTypes {
		if _, ok := d[key]; ok {
			h = append(h, key+" error")
		}
	}
	return h
}

func (s Stats) Format() []string {
	str := []string{fmt.Sprintf("%7.4f", s.Values[0])}
	for _, v := range s.Values[1:] {
		str = append(str, fmt.Sprintf("%6.2f%%", v*100))
	}
	return str
}

// Tester interface to evaluate the performance after each epoch,
// Test method returns true if training should stop.
type Tester interface {
	Test(net *Network, epoch int, loss float64, start time.Time) bool
}

// Tester which evaluates the error for each dataset and updates the stats.
type TestBase struct {
	Nets    map[string]*Network
	Data    map[string]*Dataset
	Pred    map[string][]int32
	Probs   map[string][]float32
	Stats   []Stats
	Headers []string
	bestErr float64
	bestEp  int
}

// Create a new base class which implements the Tester interface.
func NewTestBase() *TestBase {
	return &TestBase{Stats: []Stats{}}
}

// Initialise the test datasets and the evaluation networks. Each dataset
// gets an evaluation network at its own batch size: weights are copied in
// from the training network on each test.
func (t *TestBase) Init(conf Config, data map[string]Data, rng *rand.Rand) *TestBase {
	t.Data = make(map[string]*Dataset)
	t.Nets = make(map[string]*Network)
	t.Headers = StatsHeaders(data)
	t.Pred = nil
	t.Probs = nil
	for key, d := range data {
		if conf.DebugLevel >= 1 {
			fmt.Println("init tester dataset =>", key)
		}
		dset := NewDataset(d, conf.TestBatch, conf.FlattenInput, rng)
		t.Data[key] = dset
		t.Nets[key] = New(conf, dset.BatchSize, dset.Shape)
	}
	t.bestErr = -1
	return t
}

// Generate the predicted classes and probabilities when test is next run.
func (t *TestBase) Predict() *TestBase {
	t.Pred = make(map[string][]int32)
	t.Probs = make(map[string][]float32)
	for key, dset := range t.Data {
		t.Pred[key] = make([]int32, dset.Samples)
		t.Probs[key] = make([]float32, dset.Samples)
	}
	return t
}

// Reset stats prior to new run
func (t *TestBase) Reset() {
	t.Stats = t.Stats[:0]
	t.bestErr = -1
	t.bestEp = 0
}

// Test performance of the network, called from the Train function on
// completion of each epoch.
func (t *TestBase) Test(net *Network, epoch int, loss float64, start time.Time) bool {
	s := Stats{Epoch: epoch, Values: []float64{loss}, BestSince: -1}
	for _, key := range DataTypes {
		if dset, ok := t.Data[key]; ok {
			net.CopyTo(t.Nets[key])
			var pred []int32
			var probs []float32
			if t.Pred != nil {
				pred, probs = t.Pred[key], t.Probs[key]
			}
			errVal := t.Nets[key].Error(dset, pred, probs)
			s.Values = append(s.Values, errVal)
			if key == "test" {
				if t.bestErr < 0 || errVal < t.bestErr {
					t.bestErr = errVal
					t.bestEp = epoch
				}
				s.BestSince = epoch - t.bestEp
			}
		}
	}
	s.Elapsed = time.Since(start)
	t.Stats = append(t.Stats, s)
	return epoch >= net.MaxEpoch || loss <= net.MinLoss ||
		(net.StopAfter > 0 && s.BestSince >= net.StopAfter)
}

type testLogger struct {
	*TestBase
}

// Create a new tester which logs stats to stdout.
func NewTestLogger(conf Config, data map[string]Data, rng *rand.Rand) Tester {
	return testLogger{TestBase: NewTestBase().Init(conf, data, rng)}
}

func (t testLogger) Test(net *Network, epoch int, loss float64, start time.Time) bool {
	done := t.TestBase.Test(net, epoch, loss, start)
	s := t.Stats[len(t.Stats)-1]
	if done || net.LogEvery == 0 || epoch%net.LogEvery == 0 {
		msg := fmt.Sprintf("epoch %3d:", epoch)
		for i, val := range s.Format() {
			msg += fmt.Sprintf("  %s =%s", t.Headers[i], val)
		}
		if s.BestSince > 0 {
			msg += fmt.Sprintf(" [%d]", s.BestSince)
		}
		fmt.Println(msg)
	}
	if done {
		fmt.Printf("run time: %s\n", s.Elapsed.Round(10*time.Millisecond))
	}
	return done
}

// Train the network on the given training set by updating the weights
func Train(net *Network, dset *Dataset, test Tester) {
	opt := NewOptimiser(net.Config)
	done := false
	start := time.Now()
	for epoch := 1; epoch <= net.MaxEpoch && !done; epoch++ {
		loss := TrainEpoch(net, dset, opt)
		done = test.Test(net, epoch, loss, start)
	}
}

// Perform one training epoch on the dataset, returns the mean loss per sample.
func TrainEpoch(net *Network, dset *Dataset, opt Optimiser) float64 {
	if net.Shuffle {
		dset.Shuffle()
	}
	batchScale := 1 / float32(dset.BatchSize)
	lossSum := 0.0
	for batch := 0; batch < dset.Batches; batch++ {
		if net.DebugLevel >= 2 || (net.DebugLevel == 1 && batch == 0) {
			fmt.Printf("== train batch %d ==\n", batch)
		}
		x, y := dset.GetBatch(batch)
		yPred := net.Fprop(x)
		losses := net.OutLayer().Loss(y, yPred)
		lossSum += float64(num.Sum(losses))
		// gradient at the output: (yPred - y) / batchSize
		num.Copy(net.inputGrad, yPred)
		num.Axpy(-1, y, net.inputGrad)
		num.Scale(batchScale, net.inputGrad)
		grad := net.inputGrad
		for i := len(net.Layers) - 1; i >= 0; i-- {
			grad = net.Layers[i].Bprop(grad)
		}
		opt.Step(net.Params(), net.ParamGrads())
		if net.DebugLevel >= 2 {
			net.PrintWeights()
		}
	}
	return lossSum / float64(dset.Batches*dset.BatchSize)
}
