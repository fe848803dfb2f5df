package nnet

import (
	"math"
	"math/rand"

	"github.com/fendouba123/DCNN/num"
)

// Multi head self attention over the conv feature sequence.
// Input shape is [batch, channels, width]: each of the width positions is
// treated as a sequence element with a channels sized feature vector.
// The attended sequence is mean pooled so the output shape is [batch, channels].
//
// Weights: params are Wq, Wk, Wv, Wo, each [channels, channels] with the
// head split taken over contiguous column blocks.
type mhAttention struct {
	MHAttention
	layerBase
	paramBase
	nchan, width, headDim int
	scale                 float32
	// batch workspace
	x, q, k, v, h *num.Array // [batch, width, channels]
	attn          *num.Array // [batch, heads, width, width]
	meanH         *num.Array // [batch, channels]
	// per sample temporaries
	dq, dk, dv, dh, dx *num.Array // [width, channels]
	ds                 *num.Array // [width, width]
}

func (l *mhAttention) OutShape(inShape []int) []int {
	return []int{inShape[0], inShape[1]}
}

func (l *mhAttention) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 3 {
		panic("MHAttention: expect 3 dimensional input")
	}
	batch, nchan, width := inShape[0], inShape[1], inShape[2]
	if l.Heads < 1 || nchan%l.Heads != 0 {
		panic("MHAttention: channels must be divisible by heads")
	}
	l.nchan, l.width = nchan, width
	l.headDim = nchan / l.Heads
	l.scale = float32(1 / math.Sqrt(float64(l.headDim)))
	l.layerBase = newLayerBase(inShape, l.OutShape(inShape))
	l.paramBase = newParams([][]int{
		{nchan, nchan}, {nchan, nchan}, {nchan, nchan}, {nchan, nchan},
	})
	l.x = num.NewArray(batch, width, nchan)
	l.q = num.NewArray(batch, width, nchan)
	l.k = num.NewArray(batch, width, nchan)
	l.v = num.NewArray(batch, width, nchan)
	l.h = num.NewArray(batch, width, nchan)
	l.attn = num.NewArray(batch, l.Heads, width, width)
	l.meanH = num.NewArray(batch, nchan)
	l.dq = num.NewArray(width, nchan)
	l.dk = num.NewArray(width, nchan)
	l.dv = num.NewArray(width, nchan)
	l.dh = num.NewArray(width, nchan)
	l.dx = num.NewArray(width, nchan)
	l.ds = num.NewArray(width, width)
}

func (l *mhAttention) Fprop(in *num.Array) *num.Array {
	l.src = in
	wq, wk, wv, wo := l.params[0], l.params[1], l.params[2], l.params[3]
	batch := in.Dims()[0]
	for n := 0; n < batch; n++ {
		x := l.x.Sub(n)
		transpose(in.Sub(n), x)
		q, k, v, h := l.q.Sub(n), l.k.Sub(n), l.v.Sub(n), l.h.Sub(n)
		num.Gemm(1, 0, x, wq, q, num.NoTrans, num.NoTrans)
		num.Gemm(1, 0, x, wk, k, num.NoTrans, num.NoTrans)
		num.Gemm(1, 0, x, wv, v, num.NoTrans, num.NoTrans)
		for hd := 0; hd < l.Heads; hd++ {
			a := l.attn.Sub(n).Sub(hd)
			l.headScores(q, k, a, hd)
			num.Softmax(a, a)
			l.headContext(a, v, h, hd)
		}
		// mean pool over positions, then the output projection
		mean := l.meanH.Sub(n)
		num.Fill(mean, 0)
		for t := 0; t < l.width; t++ {
			num.Axpy(1/float32(l.width), h.Sub(t), mean)
		}
		num.Gemv(1, 0, wo, mean, l.dst.Sub(n), num.Trans)
	}
	return l.dst
}

func (l *mhAttention) Bprop(grad *num.Array) *num.Array {
	wq, wk, wv, wo := l.params[0], l.params[1], l.params[2], l.params[3]
	dwq, dwk, dwv, dwo := l.grads[0], l.grads[1], l.grads[2], l.grads[3]
	for _, g := range l.grads {
		num.Fill(g, 0)
	}
	batch := grad.Dims()[0]
	dmean := num.NewArray(l.nchan)
	for n := 0; n < batch; n++ {
		x, q, k, v := l.x.Sub(n), l.q.Sub(n), l.k.Sub(n), l.v.Sub(n)
		g := grad.Sub(n)
		// output projection: out = Wo^T mean
		num.Ger(1, l.meanH.Sub(n), g, dwo)
		num.Gemv(1, 0, wo, g, dmean, num.NoTrans)
		// mean pool: each position gets dmean / width
		for t := 0; t < l.width; t++ {
			row := l.dh.Sub(t)
			num.Copy(row, dmean)
			num.Scale(1/float32(l.width), row)
		}
		for hd := 0; hd < l.Heads; hd++ {
			a := l.attn.Sub(n).Sub(hd)
			// dA = dH_h V_h^T, dV_h = A^T dH_h
			l.headGradAttn(a, v, hd)
			num.SoftmaxD(a, l.ds, l.ds)
			// dQ_h = scale * dS K_h,  dK_h = scale * dS^T Q_h
			l.headGradQK(q, k, hd)
		}
		// accumulate weight grads and input grad
		num.Gemm(1, 1, x, l.dq, dwq, num.Trans, num.NoTrans)
		num.Gemm(1, 1, x, l.dk, dwk, num.Trans, num.NoTrans)
		num.Gemm(1, 1, x, l.dv, dwv, num.Trans, num.NoTrans)
		num.Gemm(1, 0, l.dq, wq, l.dx, num.NoTrans, num.Trans)
		num.Gemm(1, 1, l.dk, wk, l.dx, num.NoTrans, num.Trans)
		num.Gemm(1, 1, l.dv, wv, l.dx, num.NoTrans, num.Trans)
		transpose(l.dx, l.dsrc.Sub(n))
	}
	return l.dsrc
}

// scores a[i,j] = scale * q_i . k_j over the head column block
func (l *mhAttention) headScores(q, k, a *num.Array, hd int) {
	c0 := hd * l.headDim
	for i := 0; i < l.width; i++ {
		qrow := q.Sub(i)
		for j := 0; j < l.width; j++ {
			krow := k.Sub(j)
			var sum float32
			for c := c0; c < c0+l.headDim; c++ {
				sum += qrow.Data[c] * krow.Data[c]
			}
			a.Set(sum*l.scale, i, j)
		}
	}
}

// context h_i = sum_j a[i,j] * v_j over the head column block
func (l *mhAttention) headContext(a, v, h *num.Array, hd int) {
	c0 := hd * l.headDim
	for i := 0; i < l.width; i++ {
		hrow := h.Sub(i)
		for c := c0; c < c0+l.headDim; c++ {
			hrow.Data[c] = 0
		}
		for j := 0; j < l.width; j++ {
			aij := a.At(i, j)
			vrow := v.Sub(j)
			for c := c0; c < c0+l.headDim; c++ {
				hrow.Data[c] += aij * vrow.Data[c]
			}
		}
	}
}

// ds[i,j] = dh_i . v_j and dv_j += sum_i a[i,j] * dh_i over the head block
func (l *mhAttention) headGradAttn(a, v *num.Array, hd int) {
	c0 := hd * l.headDim
	for i := 0; i < l.width; i++ {
		dhrow := l.dh.Sub(i)
		for j := 0; j < l.width; j++ {
			vrow := v.Sub(j)
			var sum float32
			for c := c0; c < c0+l.headDim; c++ {
				sum += dhrow.Data[c] * vrow.Data[c]
			}
			l.ds.Set(sum, i, j)
		}
	}
	for j := 0; j < l.width; j++ {
		dvrow := l.dv.Sub(j)
		for c := c0; c < c0+l.headDim; c++ {
			dvrow.Data[c] = 0
		}
		for i := 0; i < l.width; i++ {
			aij := a.At(i, j)
			dhrow := l.dh.Sub(i)
			for c := c0; c < c0+l.headDim; c++ {
				dvrow.Data[c] += aij * dhrow.Data[c]
			}
		}
	}
}

// dq_i = scale * sum_j ds[i,j] k_j and dk_j = scale * sum_i ds[i,j] q_i
func (l *mhAttention) headGradQK(q, k *num.Array, hd int) {
	c0 := hd * l.headDim
	for i := 0; i < l.width; i++ {
		dqrow := l.dq.Sub(i)
		for c := c0; c < c0+l.headDim; c++ {
			dqrow.Data[c] = 0
		}
		for j := 0; j < l.width; j++ {
			dsij := l.ds.At(i, j) * l.scale
			krow := k.Sub(j)
			for c := c0; c < c0+l.headDim; c++ {
				dqrow.Data[c] += dsij * krow.Data[c]
			}
		}
	}
	for j := 0; j < l.width; j++ {
		dkrow := l.dk.Sub(j)
		for c := c0; c < c0+l.headDim; c++ {
			dkrow.Data[c] = 0
		}
		for i := 0; i < l.width; i++ {
			dsij := l.ds.At(i, j) * l.scale
			qrow := q.Sub(i)
			for c := c0; c < c0+l.headDim; c++ {
				dkrow.Data[c] += dsij * qrow.Data[c]
			}
		}
	}
}

// transpose a 2d array: dst[j,i] = src[i,j]
func transpose(src, dst *num.Array) {
	rows, cols := src.Dims()[0], src.Dims()[1]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst.Set(src.At(i, j), j, i)
		}
	}
}
