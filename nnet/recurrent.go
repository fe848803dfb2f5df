package nnet

import (
	"math/rand"

	"github.com/fendouba123/DCNN/num"
)

// Recurrent gated attention: a GRU is run along the conv feature sequence and
// the hidden states are pooled with a learned attention weighting
//
//	e_t = v . tanh(Wa h_t + ba),  alpha = softmax(e),  out = sum_t alpha_t h_t
//
// Input shape is [batch, channels, width] with one GRU step per position.
// Output shape is [batch, Nhidden].
type gatedAttention struct {
	GatedAttention
	layerBase
	paramBase
	nchan, width int
	// per step state, kept for backprop: [batch, width, n]
	xs, zs, rs, hhs, hs, rhs *num.Array
	us                       *num.Array // [batch, width, Nattn]
	alphas                   *num.Array // [batch, width]
	// step temporaries
	t1, t2 *num.Array // [Nhidden]
	ta     *num.Array // [Nattn]
}

// parameter indices
const (
	gaWz = iota
	gaUz
	gaBz
	gaWr
	gaUr
	gaBr
	gaWh
	gaUh
	gaBh
	gaWa
	gaBa
	gaV
)

func (l *gatedAttention) OutShape(inShape []int) []int {
	return []int{inShape[0], l.Nhidden}
}

func (l *gatedAttention) Init(rng *rand.Rand, inShape []int) {
	if len(inShape) != 3 {
		panic("GatedAttention: expect 3 dimensional input")
	}
	if l.Nattn == 0 {
		l.Nattn = l.Nhidden
	}
	batch, nchan, width := inShape[0], inShape[1], inShape[2]
	l.nchan, l.width = nchan, width
	nh, na := l.Nhidden, l.Nattn
	l.layerBase = newLayerBase(inShape, l.OutShape(inShape))
	l.paramBase = newParams([][]int{
		{nh, nchan}, {nh, nh}, {nh}, // update gate
		{nh, nchan}, {nh, nh}, {nh}, // reset gate
		{nh, nchan}, {nh, nh}, {nh}, // candidate
		{na, nh}, {na}, {na}, // attention
	})
	l.xs = num.NewArray(batch, width, nchan)
	l.zs = num.NewArray(batch, width, nh)
	l.rs = num.NewArray(batch, width, nh)
	l.hhs = num.NewArray(batch, width, nh)
	l.hs = num.NewArray(batch, width, nh)
	l.rhs = num.NewArray(batch, width, nh)
	l.us = num.NewArray(batch, width, na)
	l.alphas = num.NewArray(batch, width)
	l.t1 = num.NewArray(nh)
	l.t2 = num.NewArray(nh)
	l.ta = num.NewArray(na)
}

// The attention vector v is a weight, not a bias, so it gets random init.
func (l *gatedAttention) InitParams(scale, bias float32, normal bool, rng *rand.Rand) {
	l.paramBase.InitParams(scale, bias, normal, rng)
	v := l.params[gaV]
	for i := range v.Data {
		if normal {
			v.Data[i] = float32(rng.NormFloat64()) * scale
		} else {
			v.Data[i] = rng.Float32() * scale
		}
	}
}

func (l *gatedAttention) Fprop(in *num.Array) *num.Array {
	p := l.params
	batch := in.Dims()[0]
	for n := 0; n < batch; n++ {
		sample := in.Sub(n) // [nchan, width]
		var hprev *num.Array
		for t := 0; t < l.width; t++ {
			x := l.xs.Sub(n).Sub(t)
			for c := 0; c < l.nchan; c++ {
				x.Data[c] = sample.At(c, t)
			}
			z, r, hh, h := l.zs.Sub(n).Sub(t), l.rs.Sub(n).Sub(t), l.hhs.Sub(n).Sub(t), l.hs.Sub(n).Sub(t)
			rh := l.rhs.Sub(n).Sub(t)
			// z = sigmoid(Wz x + Uz h_prev + bz)
			num.Copy(z, p[gaBz])
			num.Gemv(1, 1, p[gaWz], x, z, num.NoTrans)
			if hprev != nil {
				num.Gemv(1, 1, p[gaUz], hprev, z, num.NoTrans)
			}
			num.Sigmoid(z, z)
			// r = sigmoid(Wr x + Ur h_prev + br)
			num.Copy(r, p[gaBr])
			num.Gemv(1, 1, p[gaWr], x, r, num.NoTrans)
			if hprev != nil {
				num.Gemv(1, 1, p[gaUr], hprev, r, num.NoTrans)
			}
			num.Sigmoid(r, r)
			// hh = tanh(Wh x + Uh (r*h_prev) + bh)
			num.Fill(rh, 0)
			if hprev != nil {
				for i := range rh.Data {
					rh.Data[i] = r.Data[i] * hprev.Data[i]
				}
			}
			num.Copy(hh, p[gaBh])
			num.Gemv(1, 1, p[gaWh], x, hh, num.NoTrans)
			num.Gemv(1, 1, p[gaUh], rh, hh, num.NoTrans)
			num.Tanh(hh, hh)
			// h = (1-z)*h_prev + z*hh
			for i := range h.Data {
				var hp float32
				if hprev != nil {
					hp = hprev.Data[i]
				}
				h.Data[i] = (1-z.Data[i])*hp + z.Data[i]*hh.Data[i]
			}
			hprev = h
		}
		// attention pooling over the hidden states
		alpha := l.alphas.Sub(n)
		for t := 0; t < l.width; t++ {
			u := l.us.Sub(n).Sub(t)
			num.Copy(u, p[gaBa])
			num.Gemv(1, 1, p[gaWa], l.hs.Sub(n).Sub(t), u, num.NoTrans)
			num.Tanh(u, u)
			alpha.Data[t] = num.Dot(p[gaV], u)
		}
		arow := alpha.Reshape(1, l.width)
		num.Softmax(arow, arow)
		out := l.dst.Sub(n)
		num.Fill(out, 0)
		for t := 0; t < l.width; t++ {
			num.Axpy(alpha.Data[t], l.hs.Sub(n).Sub(t), out)
		}
	}
	return l.dst
}

func (l *gatedAttention) Bprop(grad *num.Array) *num.Array {
	p, g := l.params, l.grads
	for _, gr := range g {
		num.Fill(gr, 0)
	}
	batch := grad.Dims()[0]
	dalpha := num.NewArray(l.width)
	dhAttn := num.NewArray(l.width, l.Nhidden)
	dx := num.NewArray(l.nchan)
	for n := 0; n < batch; n++ {
		dctx := grad.Sub(n)
		alpha := l.alphas.Sub(n)
		// context = sum_t alpha_t h_t
		for t := 0; t < l.width; t++ {
			h := l.hs.Sub(n).Sub(t)
			dalpha.Data[t] = num.Dot(dctx, h)
			dh := dhAttn.Sub(t)
			num.Copy(dh, dctx)
			num.Scale(alpha.Data[t], dh)
		}
		// back through the softmax and the score function
		de := dalpha.Reshape(1, l.width)
		num.SoftmaxD(alpha.Reshape(1, l.width), de, de)
		for t := 0; t < l.width; t++ {
			u := l.us.Sub(n).Sub(t)
			// dv += de_t * u_t
			num.Axpy(dalpha.Data[t], u, g[gaV])
			// dua = de_t * v through the tanh
			for i := range l.ta.Data {
				uv := u.Data[i]
				l.ta.Data[i] = dalpha.Data[t] * p[gaV].Data[i] * (1 - uv*uv)
			}
			num.Ger(1, l.ta, l.hs.Sub(n).Sub(t), g[gaWa])
			num.Axpy(1, l.ta, g[gaBa])
			num.Gemv(1, 1, p[gaWa], l.ta, dhAttn.Sub(t), num.Trans)
		}
		// back propagate through time
		dhNext := l.t1
		num.Fill(dhNext, 0)
		dsample := l.dsrc.Sub(n) // [nchan, width]
		for t := l.width - 1; t >= 0; t-- {
			x := l.xs.Sub(n).Sub(t)
			z, r, hh := l.zs.Sub(n).Sub(t), l.rs.Sub(n).Sub(t), l.hhs.Sub(n).Sub(t)
			rh := l.rhs.Sub(n).Sub(t)
			var hprev *num.Array
			if t > 0 {
				hprev = l.hs.Sub(n).Sub(t - 1)
			}
			dh := dhAttn.Sub(t)
			num.Axpy(1, dhNext, dh)
			// gate gradients at the pre activations
			dz := make([]float32, l.Nhidden)
			dhhPre := make([]float32, l.Nhidden)
			dhPrev := make([]float32, l.Nhidden)
			for i := 0; i < l.Nhidden; i++ {
				var hp float32
				if hprev != nil {
					hp = hprev.Data[i]
				}
				dz[i] = dh.Data[i] * (hh.Data[i] - hp) * z.Data[i] * (1 - z.Data[i])
				dhhPre[i] = dh.Data[i] * z.Data[i] * (1 - hh.Data[i]*hh.Data[i])
				dhPrev[i] = dh.Data[i] * (1 - z.Data[i])
			}
			dzA := num.NewArrayData(dz, l.Nhidden)
			dhhA := num.NewArrayData(dhhPre, l.Nhidden)
			// candidate state: Uh multiplies r*h_prev
			drh := l.t2
			num.Gemv(1, 0, p[gaUh], dhhA, drh, num.Trans)
			dr := make([]float32, l.Nhidden)
			for i := 0; i < l.Nhidden; i++ {
				var hp float32
				if hprev != nil {
					hp = hprev.Data[i]
				}
				dr[i] = drh.Data[i] * hp * r.Data[i] * (1 - r.Data[i])
				dhPrev[i] += drh.Data[i] * r.Data[i]
			}
			drA := num.NewArrayData(dr, l.Nhidden)
			// weight gradients
			num.Ger(1, dzA, x, g[gaWz])
			num.Ger(1, drA, x, g[gaWr])
			num.Ger(1, dhhA, x, g[gaWh])
			if hprev != nil {
				num.Ger(1, dzA, hprev, g[gaUz])
				num.Ger(1, drA, hprev, g[gaUr])
			}
			num.Ger(1, dhhA, rh, g[gaUh])
			num.Axpy(1, dzA, g[gaBz])
			num.Axpy(1, drA, g[gaBr])
			num.Axpy(1, dhhA, g[gaBh])
			// input gradient for this step
			num.Gemv(1, 0, p[gaWz], dzA, dx, num.Trans)
			num.Gemv(1, 1, p[gaWr], drA, dx, num.Trans)
			num.Gemv(1, 1, p[gaWh], dhhA, dx, num.Trans)
			for c := 0; c < l.nchan; c++ {
				dsample.Set(dx.Data[c], c, t)
			}
			// carry to the previous step
			dhPrevA := num.NewArrayData(dhPrev, l.Nhidden)
			num.Gemv(1, 1, p[gaUz], dzA, dhPrevA, num.Trans)
			num.Gemv(1, 1, p[gaUr], drA, dhPrevA, num.Trans)
			num.Copy(dhNext, dhPrevA)
		}
	}
	return l.dsrc
}
