package nnet

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/fendouba123/DCNN/num"
)

// Layer interface type represents one layer of the neural net.
type Layer interface {
	Init(rng *rand.Rand, inShape []int)
	OutShape(inShape []int) []int
	Fprop(in *num.Array) *num.Array
	Bprop(grad *num.Array) *num.Array
	ToString() string
}

// ParamLayer is a layer with trainable parameters.
type ParamLayer interface {
	Layer
	InitParams(scale, bias float32, normal bool, rng *rand.Rand)
	Params() []*num.Array
	ParamGrads() []*num.Array
	SetParams(src []*num.Array)
}

// OutputLayer is the final layer in the stack
type OutputLayer interface {
	Layer
	Loss(y, yPred *num.Array) *num.Array
}

// Layer configuration details
type LayerConfig struct {
	Type string
	Data json.RawMessage
}

type ConfigLayer interface {
	Marshal() LayerConfig
}

// Unmarshal JSON data and construct new layer
func (l LayerConfig) Unmarshal() Layer {
	switch l.Type {
	case "conv":
		cfg := new(Conv)
		unmarshal(l.Data, cfg)
		if cfg.Stride == 0 {
			cfg.Stride = 1
		}
		return &conv{Conv: *cfg}
	case "maxPool":
		cfg := new(MaxPool)
		unmarshal(l.Data, cfg)
		if cfg.Stride == 0 {
			cfg.Stride = cfg.Size
		}
		return &maxPool{MaxPool: *cfg}
	case "linear":
		cfg := new(Linear)
		unmarshal(l.Data, cfg)
		return &linear{Linear: *cfg}
	case "activation":
		cfg := new(Activation)
		unmarshal(l.Data, cfg)
		layer := &activation{Activation: *cfg}
		switch cfg.Atype {
		case "sigmoid":
			layer.activ = num.Sigmoid
			layer.deriv = num.SigmoidD
		case "tanh":
			layer.activ = num.Tanh
			layer.deriv = num.TanhD
		case "relu":
			layer.activ = num.Relu
			layer.deriv = num.ReluD
		default:
			panic(fmt.Sprintf("activation type %s invalid", cfg.Atype))
		}
		return layer
	case "mhAttention":
		cfg := new(MHAttention)
		unmarshal(l.Data, cfg)
		return &mhAttention{MHAttention: *cfg}
	case "gatedAttention":
		cfg := new(GatedAttention)
		unmarshal(l.Data, cfg)
		return &gatedAttention{GatedAttention: *cfg}
	case "sigmoidOut":
		return &sigmoidOut{}
	case "flatten":
		return &flatten{}
	default:
		panic("invalid layer type: " + l.Type)
	}
}

func (l LayerConfig) String() string {
	return l.Unmarshal().ToString()
}

// Conv is a 1 dimensional convolution layer over the input sequence,
// implements the ParamLayer interface.
type Conv struct {
	Nfeats, Size, Stride, Pad int
}

func (c Conv) Marshal() LayerConfig {
	if c.Stride == 0 {
		c.Stride = 1
	}
	return LayerConfig{Type: "conv", Data: marshal(c)}
}

func (c Conv) ToString() string {
	return fmt.Sprintf("conv %+v", c)
}

// MaxPool is a 1 dimensional max pooling layer, should follow a conv layer.
type MaxPool struct {
	Size, Stride int
}

func (c MaxPool) Marshal() LayerConfig {
	if c.Stride == 0 {
		c.Stride = c.Size
	}
	return LayerConfig{Type: "maxPool", Data: marshal(c)}
}

func (c MaxPool) ToString() string {
	return fmt.Sprintf("maxPool %+v", c)
}

// Linear fully connected layer, implements the ParamLayer interface.
type Linear struct {
	Nout int
}

func (c Linear) Marshal() LayerConfig {
	return LayerConfig{Type: "linear", Data: marshal(c)}
}

func (c Linear) ToString() string {
	return fmt.Sprintf("linear %+v", c)
}

// Sigmoid, tanh or relu activation layer.
type Activation struct {
	Atype string
}

func (c Activation) Marshal() LayerConfig {
	return LayerConfig{Type: "activation", Data: marshal(c)}
}

func (c Activation) ToString() string {
	return fmt.Sprintf("activation %+v", c)
}

// MHAttention is a multi head self attention layer over the sequence output
// from the feature extractor, mean pooled over positions.
// Implements the ParamLayer interface.
type MHAttention struct {
	Heads int
}

func (c MHAttention) Marshal() LayerConfig {
	return LayerConfig{Type: "mhAttention", Data: marshal(c)}
}

func (c MHAttention) ToString() string {
	return fmt.Sprintf("mhAttention %+v", c)
}

// GatedAttention is a recurrent gated attention layer: a GRU over the
// sequence with learned attention pooling of the hidden states.
// Implements the ParamLayer interface.
type GatedAttention struct {
	Nhidden, Nattn int
}

func (c GatedAttention) Marshal() LayerConfig {
	return LayerConfig{Type: "gatedAttention", Data: marshal(c)}
}

func (c GatedAttention) ToString() string {
	return fmt.Sprintf("gatedAttention %+v", c)
}

// SigmoidOut is the binary classification output layer with cross entropy loss.
type SigmoidOut struct{}

func (c SigmoidOut) Marshal() LayerConfig {
	return LayerConfig{Type: "sigmoidOut"}
}

// Flatten layer reshapes input to 2 dimensions.
type Flatten struct{}

func (c Flatten) Marshal() LayerConfig {
	return LayerConfig{Type: "flatten"}
}

// linear layer implementation
type linear struct {
	Linear
	layerBase
	paramBase
	nIn int
}

func (l *linear) OutShape(inShape []int) []int {
	return []int{inShape[0], l.Nout}
}

func (l *linear) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 2 {
		panic("Linear: expect 2 dimensional input")
	}
	l.nIn = inShape[1]
	l.layerBase = newLayerBase(inShape, l.OutShape(inShape))
	l.paramBase = newParams([][]int{{l.nIn, l.Nout}, {l.Nout}})
}

func (l *linear) Fprop(in *num.Array) *num.Array {
	l.src = in
	w, b := l.params[0], l.params[1]
	batch := in.Dims()[0]
	for i := 0; i < batch; i++ {
		copy(l.dst.Data[i*l.Nout:(i+1)*l.Nout], b.Data)
	}
	num.Gemm(1, 1, in, w, l.dst, num.NoTrans, num.NoTrans)
	return l.dst
}

func (l *linear) Bprop(grad *num.Array) *num.Array {
	w := l.params[0]
	dw, db := l.grads[0], l.grads[1]
	num.Gemm(1, 0, l.src, grad, dw, num.Trans, num.NoTrans)
	batch := grad.Dims()[0]
	num.Fill(db, 0)
	for i := 0; i < batch; i++ {
		num.Axpy(1, grad.Sub(i), db)
	}
	num.Gemm(1, 0, grad, w, l.dsrc, num.NoTrans, num.Trans)
	return l.dsrc
}

// convolutional layer implementation
type conv struct {
	Conv
	layerBase
	paramBase
}

func (l *conv) OutShape(inShape []int) []int {
	return []int{inShape[0], l.Nfeats, num.ConvOutSize(inShape[2], l.Size, l.Stride, l.Pad)}
}

func (l *conv) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 3 {
		panic("Conv: expect 3 dimensional input")
	}
	nchan := inShape[1]
	l.layerBase = newLayerBase(inShape, l.OutShape(inShape))
	l.paramBase = newParams([][]int{{l.Nfeats, nchan, l.Size}, {l.Nfeats}})
}

func (l *conv) Fprop(in *num.Array) *num.Array {
	l.src = in
	num.Conv1D(in, l.params[0], l.params[1], l.dst, l.Stride, l.Pad)
	return l.dst
}

func (l *conv) Bprop(grad *num.Array) *num.Array {
	num.Conv1DGrads(l.src, l.params[0], grad, l.dsrc, l.grads[0], l.grads[1], l.Stride, l.Pad)
	return l.dsrc
}

// pool layer implementation
type maxPool struct {
	MaxPool
	layerBase
	idx []int32
}

func (l *maxPool) OutShape(inShape []int) []int {
	return []int{inShape[0], inShape[1], (inShape[2]-l.Size)/l.Stride + 1}
}

func (l *maxPool) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 3 {
		panic("MaxPool: expect 3 dimensional input")
	}
	outShape := l.OutShape(inShape)
	l.layerBase = newLayerBase(inShape, outShape)
	l.idx = make([]int32, num.Prod(outShape))
}

func (l *maxPool) Fprop(in *num.Array) *num.Array {
	l.src = in
	num.MaxPool1D(in, l.dst, l.idx, l.Size, l.Stride)
	return l.dst
}

func (l *maxPool) Bprop(grad *num.Array) *num.Array {
	num.MaxPool1DGrad(grad, l.dsrc, l.idx)
	return l.dsrc
}

// activation layers
type activation struct {
	Activation
	layerBase
	activ func(x, y *num.Array)
	deriv func(x, grad, dx *num.Array)
}

func (l *activation) Init(rng *rand.Rand, inShape []int) {
	l.layerBase = newLayerBase(inShape, inShape)
}

func (l *activation) Fprop(in *num.Array) *num.Array {
	l.src = in
	l.activ(in, l.dst)
	return l.dst
}

func (l *activation) Bprop(grad *num.Array) *num.Array {
	l.deriv(l.src, grad, l.dsrc)
	return l.dsrc
}

// sigmoid output layer with binary cross entropy loss
type sigmoidOut struct {
	layerBase
	loss *num.Array
}

func (l *sigmoidOut) ToString() string { return "sigmoidOut" }

func (l *sigmoidOut) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 2 || inShape[1] != 1 {
		panic("SigmoidOut: expect input shape [batch, 1]")
	}
	l.layerBase = newLayerBase(inShape, inShape)
	l.loss = num.NewArray(inShape...)
}

func (l *sigmoidOut) Fprop(in *num.Array) *num.Array {
	l.src = in
	num.Sigmoid(in, l.dst)
	return l.dst
}

// Gradient at the input is passed through as is: the trainer feeds in
// yPred - y which is the derivative of the loss wrt the logits.
func (l *sigmoidOut) Bprop(grad *num.Array) *num.Array {
	num.Copy(l.dsrc, grad)
	return l.dsrc
}

func (l *sigmoidOut) Loss(y, yPred *num.Array) *num.Array {
	num.BCELoss(y, yPred, l.loss)
	return l.loss
}

type flatten struct {
	layerBase
}

func (l *flatten) ToString() string { return "flatten" }

func (l *flatten) OutShape(inShape []int) []int {
	return []int{inShape[0], num.Prod(inShape[1:])}
}

func (l *flatten) Init(rng *rand.Rand, inShape []int) {}

func (l *flatten) Fprop(in *num.Array) *num.Array {
	l.src = in
	l.dst = in.Reshape(in.Dims()[0], -1)
	return l.dst
}

func (l *flatten) Bprop(grad *num.Array) *num.Array {
	l.dsrc = grad.Reshape(l.src.Dims()...)
	return l.dsrc
}

// base layer type with input and output buffers
type layerBase struct {
	src  *num.Array
	dst  *num.Array
	dsrc *num.Array
}

func newLayerBase(inShape, outShape []int) layerBase {
	return layerBase{
		dst:  num.NewArray(outShape...),
		dsrc: num.NewArray(inShape...),
	}
}

func (l layerBase) OutShape(inShape []int) []int { return inShape }

// trainable parameters and their gradients
type paramBase struct {
	params []*num.Array
	grads  []*num.Array
}

func newParams(shapes [][]int) paramBase {
	p := paramBase{}
	for _, shape := range shapes {
		p.params = append(p.params, num.NewArray(shape...))
		p.grads = append(p.grads, num.NewArray(shape...))
	}
	return p
}

func (p paramBase) Params() []*num.Array { return p.params }

func (p paramBase) ParamGrads() []*num.Array { return p.grads }

// Weight arrays have more than one dimension, bias vectors get the fixed value.
func (p paramBase) InitParams(scale, bias float32, normal bool, rng *rand.Rand) {
	for _, w := range p.params {
		if len(w.Dims()) == 1 {
			num.Fill(w, bias)
			continue
		}
		for i := range w.Data {
			if normal {
				w.Data[i] = float32(rng.NormFloat64()) * scale
			} else {
				w.Data[i] = rng.Float32() * scale
			}
		}
	}
}

func (p paramBase) SetParams(src []*num.Array) {
	if len(src) != len(p.params) {
		panic("SetParams: parameter count mismatch")
	}
	for i, w := range p.params {
		num.Copy(w, src[i])
	}
}

func marshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func unmarshal(data json.RawMessage, v interface{}) {
	err := json.Unmarshal(data, v)
	if err != nil {
		panic(err)
	}
}
