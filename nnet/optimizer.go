package nnet

import (
	"fmt"
	"math"

	"github.com/fendouba123/DCNN/num"
)

// Optimiser updates the network parameters from the batch averaged gradients.
type Optimiser interface {
	Step(params, grads []*num.Array)
	String() string
}

// NewOptimiser builds the optimiser named in the config.
func NewOptimiser(conf Config) Optimiser {
	switch conf.Optimiser {
	case "sgd":
		return &SGD{Eta: float32(conf.Eta), WeightDecay: float32(conf.Lambda)}
	case "", "adam":
		return &Adam{
			Eta:         float32(conf.Eta),
			Beta1:       float32(conf.Beta1),
			Beta2:       float32(conf.Beta2),
			Epsilon:     float32(conf.Epsilon),
			WeightDecay: float32(conf.Lambda),
		}
	default:
		panic("invalid optimiser type: " + conf.Optimiser)
	}
}

// SGD is plain stochastic gradient descent with optional L2 weight decay.
type SGD struct {
	Eta, WeightDecay float32
}

func (o *SGD) Step(params, grads []*num.Array) {
	for i, w := range params {
		if o.WeightDecay != 0 {
			num.Axpy(o.WeightDecay, w, grads[i])
		}
		num.Axpy(-o.Eta, grads[i], w)
	}
}

func (o *SGD) String() string {
	return fmt.Sprintf("sgd eta=%g lambda=%g", o.Eta, o.WeightDecay)
}

// Adam optimiser with bias corrected first and second moment estimates.
type Adam struct {
	Eta, Beta1, Beta2 float32
	Epsilon           float32
	WeightDecay       float32
	step              int
	moment1, moment2  map[*num.Array][]float32
}

func (o *Adam) Step(params, grads []*num.Array) {
	if o.moment1 == nil {
		o.moment1 = make(map[*num.Array][]float32)
		o.moment2 = make(map[*num.Array][]float32)
	}
	o.step++
	c1 := 1 - float32(math.Pow(float64(o.Beta1), float64(o.step)))
	c2 := 1 - float32(math.Pow(float64(o.Beta2), float64(o.step)))
	for i, w := range params {
		g := grads[i]
		if o.WeightDecay != 0 {
			num.Axpy(o.WeightDecay, w, g)
		}
		m, ok := o.moment1[w]
		if !ok {
			m = make([]float32, w.Size())
			o.moment1[w] = m
		}
		v, ok := o.moment2[w]
		if !ok {
			v = make([]float32, w.Size())
			o.moment2[w] = v
		}
		for j, gj := range g.Data {
			m[j] = o.Beta1*m[j] + (1-o.Beta1)*gj
			v[j] = o.Beta2*v[j] + (1-o.Beta2)*gj*gj
			mhat := m[j] / c1
			vhat := v[j] / c2
			w.Data[j] -= o.Eta * mhat / (float32(math.Sqrt(float64(vhat))) + o.Epsilon)
		}
	}
}

func (o *Adam) String() string {
	return fmt.Sprintf("adam eta=%g beta1=%g beta2=%g lambda=%g", o.Eta, o.Beta1, o.Beta2, o.WeightDecay)
}
