// Package num provides the float32 array type and the numeric kernels used by
// the nnet package: BLAS matrix ops via gonum, elementwise activations and
// their derivatives, softmax and 1 dimensional convolution and pooling.
package num

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// Transpose flag for matrix operations
type Transpose bool

const (
	NoTrans Transpose = false
	Trans   Transpose = true
)

func (t Transpose) blas() blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// Fill array with a scalar value
func Fill(a *Array, val float32) {
	for i := range a.Data {
		a.Data[i] = val
	}
}

// Copy from src to dst array, shapes must match
func Copy(dst, src *Array) {
	if !SameShape(dst.dims, src.dims) {
		panic("num: Copy shape mismatch")
	}
	copy(dst.Data, src.Data)
}

// Axpy updates y += alpha * x
func Axpy(alpha float32, x, y *Array) {
	if x.Size() != y.Size() {
		panic("num: Axpy size mismatch")
	}
	blas32.Axpy(alpha, vec(x), vec(y))
}

// Scale updates x *= alpha
func Scale(alpha float32, x *Array) {
	blas32.Scal(alpha, vec(x))
}

// Dot returns the inner product of x and y
func Dot(x, y *Array) float32 {
	if x.Size() != y.Size() {
		panic("num: Dot size mismatch")
	}
	return blas32.Dot(vec(x), vec(y))
}

// Nrm2 returns the euclidean norm of x
func Nrm2(x *Array) float32 {
	return blas32.Nrm2(vec(x))
}

// Sum returns the sum of all elements
func Sum(x *Array) float32 {
	var s float32
	for _, v := range x.Data {
		s += v
	}
	return s
}

// Gemm computes c = alpha*a*b + beta*c where a and b are optionally transposed.
// All arrays are 2 dimensional.
func Gemm(alpha, beta float32, a, b, c *Array, aTrans, bTrans Transpose) {
	am, an := a.dims[0], a.dims[1]
	if aTrans {
		am, an = an, am
	}
	bm, bn := b.dims[0], b.dims[1]
	if bTrans {
		bm, bn = bn, bm
	}
	if an != bm || c.dims[0] != am || c.dims[1] != bn {
		panic("num: Gemm shape mismatch")
	}
	blas32.Gemm(aTrans.blas(), bTrans.blas(), alpha, gen(a), gen(b), beta, gen(c))
}

// Gemv computes y = alpha*a*x + beta*y where a is optionally transposed.
func Gemv(alpha, beta float32, a, x, y *Array, aTrans Transpose) {
	m, n := a.dims[0], a.dims[1]
	if aTrans {
		m, n = n, m
	}
	if x.Size() != n || y.Size() != m {
		panic("num: Gemv shape mismatch")
	}
	blas32.Gemv(aTrans.blas(), alpha, gen(a), vec(x), beta, vec(y))
}

// Ger computes the rank one update a += alpha * x * y^T
func Ger(alpha float32, x, y, a *Array) {
	if a.dims[0] != x.Size() || a.dims[1] != y.Size() {
		panic("num: Ger shape mismatch")
	}
	blas32.Ger(alpha, vec(x), vec(y), gen(a))
}

func vec(a *Array) blas32.Vector {
	return blas32.Vector{N: len(a.Data), Inc: 1, Data: a.Data}
}

func gen(a *Array) blas32.General {
	if len(a.dims) != 2 {
		panic("num: expect 2 dimensional array")
	}
	return blas32.General{Rows: a.dims[0], Cols: a.dims[1], Stride: a.dims[1], Data: a.Data}
}

// elementwise activation functions and derivatives: y = f(x), dx = f'(x)*grad

func Relu(x, y *Array) {
	for i, v := range x.Data {
		if v > 0 {
			y.Data[i] = v
		} else {
			y.Data[i] = 0
		}
	}
}

func ReluD(x, grad, dx *Array) {
	for i, v := range x.Data {
		if v > 0 {
			dx.Data[i] = grad.Data[i]
		} else {
			dx.Data[i] = 0
		}
	}
}

func Sigmoid(x, y *Array) {
	for i, v := range x.Data {
		y.Data[i] = sigmoid(v)
	}
}

func SigmoidD(x, grad, dx *Array) {
	for i, v := range x.Data {
		s := sigmoid(v)
		dx.Data[i] = s * (1 - s) * grad.Data[i]
	}
}

func Tanh(x, y *Array) {
	for i, v := range x.Data {
		y.Data[i] = tanh(v)
	}
}

func TanhD(x, grad, dx *Array) {
	for i, v := range x.Data {
		t := tanh(v)
		dx.Data[i] = (1 - t*t) * grad.Data[i]
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

func tanh(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}

// Softmax applies a row wise softmax: y[i,:] = exp(x[i,:]) / sum
// Arrays are 2 dimensional with matching shape. x may alias y.
func Softmax(x, y *Array) {
	rows, cols := x.dims[0], x.dims[1]
	for i := 0; i < rows; i++ {
		xrow := x.Data[i*cols : (i+1)*cols]
		yrow := y.Data[i*cols : (i+1)*cols]
		max := xrow[0]
		for _, v := range xrow[1:] {
			if v > max {
				max = v
			}
		}
		var sum float32
		for j, v := range xrow {
			e := float32(math.Exp(float64(v - max)))
			yrow[j] = e
			sum += e
		}
		for j := range yrow {
			yrow[j] /= sum
		}
	}
}

// SoftmaxD computes the row wise softmax jacobian product
// dx[i,j] = y[i,j] * (grad[i,j] - sum_k grad[i,k]*y[i,k])
func SoftmaxD(y, grad, dx *Array) {
	rows, cols := y.dims[0], y.dims[1]
	for i := 0; i < rows; i++ {
		yrow := y.Data[i*cols : (i+1)*cols]
		grow := grad.Data[i*cols : (i+1)*cols]
		drow := dx.Data[i*cols : (i+1)*cols]
		var dot float32
		for j := range yrow {
			dot += grow[j] * yrow[j]
		}
		for j := range yrow {
			drow[j] = yrow[j] * (grow[j] - dot)
		}
	}
}

// BCELoss computes the elementwise binary cross entropy loss
// loss = -y*log(p) - (1-y)*log(1-p) with probabilities clamped away from 0 and 1.
func BCELoss(y, p, loss *Array) {
	const eps = 1e-7
	for i := range p.Data {
		pv := float64(p.Data[i])
		if pv < eps {
			pv = eps
		} else if pv > 1-eps {
			pv = 1 - eps
		}
		yv := float64(y.Data[i])
		loss.Data[i] = float32(-yv*math.Log(pv) - (1-yv)*math.Log(1-pv))
	}
}

// ConvOutSize returns the output width for a 1d convolution or pooling op.
func ConvOutSize(width, size, stride, pad int) int {
	return (width+2*pad-size)/stride + 1
}

// Conv1D computes a 1 dimensional convolution with bias.
// in shape is [batch, channels, width], w is [nfeats, channels, size],
// b is [nfeats] and out is [batch, nfeats, outWidth].
func Conv1D(in, w, b, out *Array, stride, pad int) {
	batch, nchan, width := in.dims[0], in.dims[1], in.dims[2]
	nfeat, size := w.dims[0], w.dims[2]
	wout := out.dims[2]
	for n := 0; n < batch; n++ {
		for f := 0; f < nfeat; f++ {
			for ox := 0; ox < wout; ox++ {
				sum := b.Data[f]
				x0 := ox*stride - pad
				for c := 0; c < nchan; c++ {
					irow := in.Data[(n*nchan+c)*width : (n*nchan+c+1)*width]
					wrow := w.Data[(f*nchan+c)*size : (f*nchan+c+1)*size]
					for k := 0; k < size; k++ {
						x := x0 + k
						if x >= 0 && x < width {
							sum += irow[x] * wrow[k]
						}
					}
				}
				out.Data[(n*nfeat+f)*wout+ox] = sum
			}
		}
	}
}

// Conv1DGrads accumulates the input, weight and bias gradients for Conv1D.
// grad is the gradient at the output, dIn may be nil for the first layer.
func Conv1DGrads(in, w, grad, dIn, dW, dB *Array, stride, pad int) {
	batch, nchan, width := in.dims[0], in.dims[1], in.dims[2]
	nfeat, size := w.dims[0], w.dims[2]
	wout := grad.dims[2]
	if dIn != nil {
		Fill(dIn, 0)
	}
	Fill(dW, 0)
	Fill(dB, 0)
	for n := 0; n < batch; n++ {
		for f := 0; f < nfeat; f++ {
			grow := grad.Data[(n*nfeat+f)*wout : (n*nfeat+f+1)*wout]
			for ox := 0; ox < wout; ox++ {
				g := grow[ox]
				if g == 0 {
					continue
				}
				dB.Data[f] += g
				x0 := ox*stride - pad
				for c := 0; c < nchan; c++ {
					irow := in.Data[(n*nchan+c)*width : (n*nchan+c+1)*width]
					wrow := w.Data[(f*nchan+c)*size : (f*nchan+c+1)*size]
					dwrow := dW.Data[(f*nchan+c)*size : (f*nchan+c+1)*size]
					for k := 0; k < size; k++ {
						x := x0 + k
						if x >= 0 && x < width {
							dwrow[k] += g * irow[x]
							if dIn != nil {
								dIn.Data[(n*nchan+c)*width+x] += g * wrow[k]
							}
						}
					}
				}
			}
		}
	}
}

// MaxPool1D computes a 1 dimensional max pooling op.
// in shape is [batch, channels, width], out is [batch, channels, outWidth].
// idx records the argmax input position for each output element.
func MaxPool1D(in, out *Array, idx []int32, size, stride int) {
	batch, nchan, width := in.dims[0], in.dims[1], in.dims[2]
	wout := out.dims[2]
	for n := 0; n < batch; n++ {
		for c := 0; c < nchan; c++ {
			irow := in.Data[(n*nchan+c)*width : (n*nchan+c+1)*width]
			for ox := 0; ox < wout; ox++ {
				x0 := ox * stride
				best, bestIx := irow[x0], x0
				for x := x0 + 1; x < x0+size && x < width; x++ {
					if irow[x] > best {
						best, bestIx = irow[x], x
					}
				}
				pos := (n*nchan+c)*wout + ox
				out.Data[pos] = best
				idx[pos] = int32((n*nchan+c)*width + bestIx)
			}
		}
	}
}

// MaxPool1DGrad routes the output gradient back to the argmax positions.
func MaxPool1DGrad(grad, dIn *Array, idx []int32) {
	Fill(dIn, 0)
	for i, g := range grad.Data {
		dIn.Data[idx[i]] += g
	}
}
