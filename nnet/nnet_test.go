package nnet

import (
	"math"
	"math/rand"
	"os"
	"path"
	"reflect"
	"testing"

	"github.com/fendouba123/DCNN/num"
)

func testConfig() Config {
	return Config{
		DataSet:       "test",
		Eta:           0.05,
		MaxEpoch:      200,
		TrainBatch:    4,
		NormalWeights: true,
		Shuffle:       true,
		RandSeed:      42,
	}.Defaults()
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	DataDir = dir
	conf := testConfig().AddLayers(
		Conv{Nfeats: 8, Size: 3, Pad: 1},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		MHAttention{Heads: 2},
		Linear{Nout: 1},
		SigmoidOut{},
	)
	if err := conf.Save("test.net"); err != nil {
		t.Fatal(err)
	}
	conf2, err := LoadConfig("test.net")
	if err != nil {
		t.Fatal(err)
	}
	if len(conf2.Layers) != 6 {
		t.Fatal("got", len(conf2.Layers), "layers")
	}
	for i, l := range conf.Layers {
		if l.String() != conf2.Layers[i].String() {
			t.Error("layer", i, "mismatch:", l, conf2.Layers[i])
		}
	}
}

func TestShapes(t *testing.T) {
	conf := testConfig().AddLayers(
		Conv{Nfeats: 8, Size: 3, Pad: 1},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		MHAttention{Heads: 2},
		Linear{Nout: 1},
		SigmoidOut{},
	)
	net := New(conf, 4, []int{1, 20})
	shape := []int{4, 1, 20}
	expect := [][]int{
		{4, 8, 20}, {4, 8, 20}, {4, 8, 10}, {4, 8}, {4, 1}, {4, 1},
	}
	for i, layer := range net.Layers {
		shape = layer.OutShape(shape)
		if !reflect.DeepEqual(shape, expect[i]) {
			t.Error("layer", i, "got", shape, "expect", expect[i])
		}
	}
}

func TestDenseShapes(t *testing.T) {
	conf := testConfig().AddLayers(
		Conv{Nfeats: 8, Size: 3, Pad: 1},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		Flatten{},
		Linear{Nout: 16},
		Activation{Atype: "relu"},
		Linear{Nout: 1},
		SigmoidOut{},
	)
	net := New(conf, 4, []int{1, 20})
	shape := []int{4, 1, 20}
	expect := [][]int{
		{4, 8, 20}, {4, 8, 20}, {4, 8, 10}, {4, 80}, {4, 16}, {4, 16}, {4, 1}, {4, 1},
	}
	for i, layer := range net.Layers {
		shape = layer.OutShape(shape)
		if !reflect.DeepEqual(shape, expect[i]) {
			t.Error("layer", i, "got", shape, "expect", expect[i])
		}
	}
}

// scalar objective J = sum(fprop(x) * sel) for gradient checking
func objective(l Layer, x, sel *num.Array) float32 {
	out := l.Fprop(x)
	var sum float32
	for i, v := range out.Data {
		sum += v * sel.Data[i]
	}
	return sum
}

func checkGrads(t *testing.T, l ParamLayer, inShape []int, outSize int) {
	rng := rand.New(rand.NewSource(1))
	l.Init(rng, inShape)
	l.InitParams(0.5, 0.1, true, rng)
	x := num.NewArray(inShape...)
	for i := range x.Data {
		x.Data[i] = float32(rng.NormFloat64())
	}
	sel := num.NewArray(outSize)
	for i := range sel.Data {
		sel.Data[i] = float32(rng.NormFloat64())
	}
	l.Fprop(x)
	dx := l.Bprop(sel.Reshape(l.OutShape(inShape)...))
	// copy analytic gradients before they are overwritten
	agrads := [][]float32{append([]float32{}, dx.Data...)}
	for _, g := range l.ParamGrads() {
		agrads = append(agrads, append([]float32{}, g.Data...))
	}
	arrays := append([]*num.Array{x}, l.Params()...)
	names := []string{"input"}
	for i := range l.Params() {
		names = append(names, "param"+string(rune('0'+i)))
	}
	const eps = 1e-2
	for k, a := range arrays {
		for i := range a.Data {
			old := a.Data[i]
			a.Data[i] = old + eps
			jp := objective(l, x, sel)
			a.Data[i] = old - eps
			jm := objective(l, x, sel)
			a.Data[i] = old
			want := (jp - jm) / (2 * eps)
			got := agrads[k][i]
			if math.Abs(float64(got-want)) > 2e-2+2e-2*math.Abs(float64(want)) {
				t.Errorf("%s grad[%d]: got %g numeric %g", names[k], i, got, want)
			}
		}
	}
}

func TestLinearGrads(t *testing.T) {
	checkGrads(t, &linear{Linear: Linear{Nout: 3}}, []int{2, 4}, 6)
}

func TestConvGrads(t *testing.T) {
	checkGrads(t, &conv{Conv: Conv{Nfeats: 2, Size: 3, Stride: 1, Pad: 1}}, []int{2, 1, 6}, 24)
}

func TestAttentionGrads(t *testing.T) {
	checkGrads(t, &mhAttention{MHAttention: MHAttention{Heads: 2}}, []int{2, 4, 3}, 8)
}

func TestGatedAttentionGrads(t *testing.T) {
	checkGrads(t, &gatedAttention{GatedAttention: GatedAttention{Nhidden: 4, Nattn: 3}}, []int{2, 3, 4}, 8)
}

func xorData() Data {
	return NewData(
		[][]float32{{0, 0}, {0, 1}, {1, 0}, {1, 1}},
		[]int32{0, 1, 1, 0},
	)
}

func TestTrainXor(t *testing.T) {
	conf := testConfig()
	conf.FlattenInput = true
	conf.MinLoss = 0.02
	conf.MaxEpoch = 2000
	conf = conf.AddLayers(
		Linear{Nout: 8},
		Activation{Atype: "tanh"},
		Linear{Nout: 1},
		SigmoidOut{},
	)
	data := xorData()
	rng := rand.New(rand.NewSource(conf.RandSeed))
	dset := NewDataset(data, conf.TrainBatch, conf.FlattenInput, rng)
	net := New(conf, dset.BatchSize, dset.Shape)
	net.InitWeights(rng)
	tester := NewTestBase().Init(conf, map[string]Data{"train": data}, rng)
	Train(net, dset, tester)
	last := tester.Stats[len(tester.Stats)-1]
	if last.Values[0] > 0.2 {
		t.Error("loss after training:", last.Values[0])
	}
	if last.Values[1] != 0 {
		t.Error("train error after training:", last.Values[1])
	}
}

func TestSaveLoadWeights(t *testing.T) {
	conf := testConfig().AddLayers(
		Conv{Nfeats: 4, Size: 3, Pad: 1},
		Activation{Atype: "relu"},
		MaxPool{Size: 2},
		GatedAttention{Nhidden: 6},
		Linear{Nout: 1},
		SigmoidOut{},
	)
	rng := rand.New(rand.NewSource(3))
	net := New(conf, 2, []int{1, 12})
	net.InitWeights(rng)
	file := path.Join(t.TempDir(), "fold1.wgt")
	if err := net.SaveWeights(file); err != nil {
		t.Fatal(err)
	}
	net2 := New(conf, 2, []int{1, 12})
	if err := net2.LoadWeights(file); err != nil {
		t.Fatal(err)
	}
	p1, p2 := net.Params(), net2.Params()
	for i := range p1 {
		if !reflect.DeepEqual(p1[i].Data, p2[i].Data) {
			t.Error("param", i, "mismatch after load")
		}
	}
	// predictions match after round trip
	x := num.NewArray(2, 1, 12)
	for i := range x.Data {
		x.Data[i] = rng.Float32()
	}
	y1 := net.Fprop(x)
	y2 := net2.Fprop(x)
	if !reflect.DeepEqual(y1.Data, y2.Data) {
		t.Error("prediction mismatch after load")
	}
	if _, err := os.Stat(file); err != nil {
		t.Error(err)
	}
}
