package num

import (
	"math"
	"reflect"
	"testing"
)

func TestArray(t *testing.T) {
	x := NewArray(2, 3)
	if dim := x.Dims(); !reflect.DeepEqual(dim, []int{2, 3}) {
		t.Error("dims invalid: got", dim)
	}
	x.Set(5, 1, 2)
	if v := x.At(1, 2); v != 5 {
		t.Error("At: got", v)
	}
	y := x.Reshape(3, -1)
	if dim := y.Dims(); !reflect.DeepEqual(dim, []int{3, 2}) {
		t.Error("reshape dims invalid: got", dim)
	}
	if v := y.At(2, 1); v != 5 {
		t.Error("reshaped At: got", v)
	}
	s := NewArrayData([]float32{1, 2, 3, 4, 5, 6}, 3, 2).Sub(1)
	if !reflect.DeepEqual(s.Data, []float32{3, 4}) {
		t.Error("Sub: got", s.Data)
	}
}

func TestGemm(t *testing.T) {
	a := NewArrayData([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := NewArrayData([]float32{7, 8, 9, 10, 11, 12}, 3, 2)
	c := NewArray(2, 2)
	Gemm(1, 0, a, b, c, NoTrans, NoTrans)
	expect := []float32{58, 64, 139, 154}
	if !reflect.DeepEqual(c.Data, expect) {
		t.Error("got", c.Data, "expect", expect)
	}
	// a^T * a
	c2 := NewArray(3, 3)
	Gemm(1, 0, a, a, c2, Trans, NoTrans)
	expect = []float32{17, 22, 27, 22, 29, 36, 27, 36, 45}
	if !reflect.DeepEqual(c2.Data, expect) {
		t.Error("got", c2.Data, "expect", expect)
	}
}

func TestGemv(t *testing.T) {
	a := NewArrayData([]float32{1, 2, 3, 4, 5, 6}, 2, 3)
	x := NewArrayData([]float32{1, 1, 1}, 3)
	y := NewArray(2)
	Gemv(1, 0, a, x, y, NoTrans)
	if !reflect.DeepEqual(y.Data, []float32{6, 15}) {
		t.Error("got", y.Data)
	}
	x2 := NewArrayData([]float32{1, 1}, 2)
	y2 := NewArray(3)
	Gemv(1, 0, a, x2, y2, Trans)
	if !reflect.DeepEqual(y2.Data, []float32{5, 7, 9}) {
		t.Error("got", y2.Data)
	}
}

func TestSoftmax(t *testing.T) {
	x := NewArrayData([]float32{1, 2, 3, 1, 1, 1}, 2, 3)
	y := NewArray(2, 3)
	Softmax(x, y)
	for i := 0; i < 2; i++ {
		var sum float32
		for j := 0; j < 3; j++ {
			sum += y.At(i, j)
		}
		if math.Abs(float64(sum-1)) > 1e-6 {
			t.Error("row", i, "sum", sum)
		}
	}
	if y.At(0, 0) >= y.At(0, 1) || y.At(0, 1) >= y.At(0, 2) {
		t.Error("softmax not monotonic:", y.Sub(0).Data)
	}
	third := float32(1.0 / 3.0)
	for j := 0; j < 3; j++ {
		if math.Abs(float64(y.At(1, j)-third)) > 1e-6 {
			t.Error("uniform row: got", y.Sub(1).Data)
		}
	}
}

func TestConv1D(t *testing.T) {
	// single sample, single channel, width 5, kernel 3, stride 1, no pad
	in := NewArrayData([]float32{1, 2, 3, 4, 5}, 1, 1, 5)
	w := NewArrayData([]float32{1, 0, -1}, 1, 1, 3)
	b := NewArrayData([]float32{0.5}, 1)
	out := NewArray(1, 1, ConvOutSize(5, 3, 1, 0))
	Conv1D(in, w, b, out, 1, 0)
	expect := []float32{-1.5, -1.5, -1.5}
	if !reflect.DeepEqual(out.Data, expect) {
		t.Error("got", out.Data, "expect", expect)
	}
	// with padding the edges see zeros
	out2 := NewArray(1, 1, ConvOutSize(5, 3, 1, 1))
	Conv1D(in, w, b, out2, 1, 1)
	expect = []float32{-1.5, -1.5, -1.5, -1.5, 4.5}
	if !reflect.DeepEqual(out2.Data, expect) {
		t.Error("got", out2.Data, "expect", expect)
	}
}

func TestConv1DGrads(t *testing.T) {
	in := NewArrayData([]float32{1, 2, 3, 4}, 1, 1, 4)
	w := NewArrayData([]float32{2, 1}, 1, 1, 2)
	b := NewArrayData([]float32{0}, 1)
	out := NewArray(1, 1, 3)
	Conv1D(in, w, b, out, 1, 0)
	if !reflect.DeepEqual(out.Data, []float32{4, 7, 10}) {
		t.Error("fwd: got", out.Data)
	}
	grad := NewArrayData([]float32{1, 1, 1}, 1, 1, 3)
	dIn := NewArray(1, 1, 4)
	dW := NewArray(1, 1, 2)
	dB := NewArray(1)
	Conv1DGrads(in, w, grad, dIn, dW, dB, 1, 0)
	if !reflect.DeepEqual(dB.Data, []float32{3}) {
		t.Error("dB: got", dB.Data)
	}
	if !reflect.DeepEqual(dW.Data, []float32{6, 9}) {
		t.Error("dW: got", dW.Data)
	}
	if !reflect.DeepEqual(dIn.Data, []float32{2, 3, 3, 1}) {
		t.Error("dIn: got", dIn.Data)
	}
}

func TestMaxPool1D(t *testing.T) {
	in := NewArrayData([]float32{1, 3, 2, 5, 4, 0}, 1, 1, 6)
	out := NewArray(1, 1, 3)
	idx := make([]int32, 3)
	MaxPool1D(in, out, idx, 2, 2)
	if !reflect.DeepEqual(out.Data, []float32{3, 5, 4}) {
		t.Error("got", out.Data)
	}
	grad := NewArrayData([]float32{1, 2, 3}, 1, 1, 3)
	dIn := NewArray(1, 1, 6)
	MaxPool1DGrad(grad, dIn, idx)
	if !reflect.DeepEqual(dIn.Data, []float32{0, 1, 0, 2, 3, 0}) {
		t.Error("grad: got", dIn.Data)
	}
}

func TestBCELoss(t *testing.T) {
	y := NewArrayData([]float32{1, 0}, 2, 1)
	p := NewArrayData([]float32{0.9, 0.1}, 2, 1)
	loss := NewArray(2, 1)
	BCELoss(y, p, loss)
	expect := float32(-math.Log(0.9))
	for i := 0; i < 2; i++ {
		if math.Abs(float64(loss.Data[i]-expect)) > 1e-6 {
			t.Error("loss", i, "got", loss.Data[i], "expect", expect)
		}
	}
}

func TestSoftmaxD(t *testing.T) {
	// numeric check of the softmax jacobian product on a single row
	x := NewArrayData([]float32{0.5, -0.2, 0.1}, 1, 3)
	y := NewArray(1, 3)
	Softmax(x, y)
	grad := NewArrayData([]float32{1, 0, 0}, 1, 3)
	dx := NewArray(1, 3)
	SoftmaxD(y, grad, dx)
	const eps = 1e-3
	for j := 0; j < 3; j++ {
		xp := NewArrayData(append([]float32{}, x.Data...), 1, 3)
		xp.Data[j] += eps
		yp := NewArray(1, 3)
		Softmax(xp, yp)
		xm := NewArrayData(append([]float32{}, x.Data...), 1, 3)
		xm.Data[j] -= eps
		ym := NewArray(1, 3)
		Softmax(xm, ym)
		want := (yp.Data[0] - ym.Data[0]) / (2 * eps)
		if math.Abs(float64(dx.Data[j]-want)) > 1e-3 {
			t.Errorf("d[%d]: got %g numeric %g", j, dx.Data[j], want)
		}
	}
}
