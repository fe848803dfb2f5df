// Package nnet contains routines for constructing, training and testing
// small binary classification networks.
package nnet

import (
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/fendouba123/DCNN/num"
)

// Network type represents a multilayer neural network model.
type Network struct {
	Config
	Layers    []Layer
	inShape   []int
	batchLoss *num.Array
	inputGrad *num.Array
}

// New function creates a new network from the config with the given batch
// size and per sample input shape.
func New(conf Config, batchSize int, sampleShape []int) *Network {
	n := &Network{Config: conf}
	if conf.FlattenInput {
		n.inShape = []int{batchSize, num.Prod(sampleShape)}
	} else {
		n.inShape = append([]int{batchSize}, sampleShape...)
	}
	rng := rand.New(rand.NewSource(conf.RandSeed))
	shape := n.inShape
	for _, l := range conf.Layers {
		layer := l.Unmarshal()
		layer.Init(rng, shape)
		n.Layers = append(n.Layers, layer)
		shape = layer.OutShape(shape)
	}
	if !num.SameShape(shape, []int{batchSize, 1}) {
		panic(fmt.Sprintf("network output shape is %v: expect [batch, 1]", shape))
	}
	n.batchLoss = num.NewArray(batchSize, 1)
	n.inputGrad = num.NewArray(batchSize, 1)
	return n
}

// Initialise network weights using a uniform or normal distribution.
// Weights for each layer are scaled by 1/sqrt(nin).
func (n *Network) InitWeights(rng *rand.Rand) {
	shape := n.inShape
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			nin := num.Prod(shape[1:])
			scale := float32(1 / math.Sqrt(float64(nin)))
			l.InitParams(scale, float32(n.Bias), n.NormalWeights, rng)
		}
		shape = layer.OutShape(shape)
	}
	if n.DebugLevel >= 2 {
		n.PrintWeights()
	}
}

// Copy weights to destination net, which must have the same layer config.
func (n *Network) CopyTo(net *Network) {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			net.Layers[i].(ParamLayer).SetParams(l.Params())
		}
	}
}

// Accessor for output layer
func (n *Network) OutLayer() OutputLayer {
	return n.Layers[len(n.Layers)-1].(OutputLayer)
}

// Params returns the parameter arrays for all layers in order.
func (n *Network) Params() (params []*num.Array) {
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			params = append(params, l.Params()...)
		}
	}
	return params
}

// ParamGrads returns the gradient arrays matching Params.
func (n *Network) ParamGrads() (grads []*num.Array) {
	for _, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			grads = append(grads, l.ParamGrads()...)
		}
	}
	return grads
}

// Feed forward the input to get the predicted output
func (n *Network) Fprop(input *num.Array) *num.Array {
	pred := input
	for i, layer := range n.Layers {
		if n.DebugLevel >= 3 {
			fmt.Printf("layer %d input\n%s\n", i, pred)
		}
		pred = layer.Fprop(pred)
	}
	return pred
}

// Predict the class probabilities and 0/1 classes for the input batch.
// probs and classes may be nil if not needed.
func (n *Network) Predict(input *num.Array, probs []float32, classes []int32) *num.Array {
	yPred := n.Fprop(input)
	for i, p := range yPred.Data {
		if probs != nil {
			probs[i] = p
		}
		if classes != nil {
			if float64(p) >= n.Threshold {
				classes[i] = 1
			} else {
				classes[i] = 0
			}
		}
	}
	return yPred
}

// Calculate the error from the predicted versus actual values.
// If pred or probs slices are not nil they get the predicted classes and
// probabilities. The dataset batch size must match the network.
func (n *Network) Error(dset *Dataset, pred []int32, probs []float32) float64 {
	errs := 0
	classes := make([]int32, dset.BatchSize)
	pr := make([]float32, dset.BatchSize)
	for batch := 0; batch < dset.Batches; batch++ {
		x, y := dset.GetBatch(batch)
		n.Predict(x, pr, classes)
		for i := range classes {
			if classes[i] != int32(y.Data[i]) {
				errs++
			}
		}
		start := batch * dset.BatchSize
		if pred != nil {
			copy(pred[start:], classes)
		}
		if probs != nil {
			copy(probs[start:], pr)
		}
	}
	return float64(errs) / float64(dset.Samples)
}

// Print network description
func (n *Network) String() string {
	s := make([]string, len(n.Layers))
	shape := n.inShape
	for i, layer := range n.Layers {
		s[i] = fmt.Sprintf("%2d: %-30s %v", i, layer.ToString(), shape)
		shape = layer.OutShape(shape)
	}
	return fmt.Sprintf("%s\n== Layers ==\n%s", n.Config, strings.Join(s, "\n"))
}

// Print network weights
func (n *Network) PrintWeights() {
	for i, layer := range n.Layers {
		if l, ok := layer.(ParamLayer); ok {
			fmt.Printf("== Layer %d weights ==\n", i)
			for _, w := range l.Params() {
				fmt.Println(w)
			}
		}
	}
}

// SaveWeights writes the network weights to the given file in gob format.
func (n *Network) SaveWeights(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var weights [][]float32
	for _, w := range n.Params() {
		weights = append(weights, w.Data)
	}
	return gob.NewEncoder(f).Encode(weights)
}

// LoadWeights reads network weights saved with SaveWeights.
func (n *Network) LoadWeights(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var weights [][]float32
	if err = gob.NewDecoder(f).Decode(&weights); err != nil {
		return err
	}
	params := n.Params()
	if len(weights) != len(params) {
		return fmt.Errorf("loadWeights: have %d arrays, expect %d", len(weights), len(params))
	}
	for i, w := range params {
		if len(weights[i]) != w.Size() {
			return fmt.Errorf("loadWeights: array %d size mismatch", i)
		}
		copy(w.Data, weights[i])
	}
	return nil
}

// Set random number seed, returns the seed which was set.
func SetSeed(seed int64) int64 {
	if seed <= 0 {
		seed = time.Now().UTC().UnixNano()
	}
	rand.Seed(seed)
	return seed
}

// Exit in case of error
func CheckErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
