package main

import (
	"fmt"

	"github.com/fendouba123/DCNN/nnet"
)

func main() {
	conf := nnet.Config{
		DataSet:       "mhattn",
		Eta:           0.01,
		MaxEpoch:      100,
		TrainBatch:    16,
		LogEvery:      5,
		Shuffle:       true,
		NormalWeights: true,
		RandSeed:      42,
	}.Defaults().AddLayers(
		nnet.Conv{Nfeats: 16, Size: 3, Stride: 1, Pad: 1},
		nnet.Activation{Atype: "relu"},
		nnet.MaxPool{Size: 2},
		nnet.MHAttention{Heads: 4},
		nnet.Linear{Nout: 1},
		nnet.SigmoidOut{},
	)
	fmt.Println(conf)

	err := conf.SaveDefault("mhattn")
	nnet.CheckErr(err)
}
