package nnet

import (
	"math/rand"
	"os"

	"github.com/fendouba123/DCNN/num"
)

var (
	DataDir   = dataDir()
	DataTypes = []string{"train", "test"}
)

func dataDir() string {
	if dir := os.Getenv("DCNN_DATA"); dir != "" {
		return dir
	}
	return "data"
}

// Data type represents the raw data for a training or test set.
// Shape is the per sample input shape, e.g. [1, nfeatures] for a single
// channel sequence. Labels are 0 or 1.
type Data struct {
	Shape  []int
	Labels []int32
	Inputs []float32
}

// NewData creates a data set from a feature matrix and label vector.
func NewData(x [][]float32, y []int32) Data {
	d := Data{Labels: y}
	if len(x) > 0 {
		d.Shape = []int{1, len(x[0])}
		d.Inputs = make([]float32, 0, len(x)*len(x[0]))
		for _, row := range x {
			d.Inputs = append(d.Inputs, row...)
		}
	}
	return d
}

func (d Data) Len() int { return len(d.Labels) }

// Dataset type encapsulates a set of training or test data in batches.
type Dataset struct {
	Data
	Samples   int
	BatchSize int
	Batches   int
	nfeat     int
	x, y      *num.Array
	indexes   []int
	rng       *rand.Rand
}

// Create a new Dataset with the given batch size. A batch size of zero
// selects a single batch holding the complete set. Samples which do not
// fill a whole batch are skipped: shuffling between epochs cycles them in.
func NewDataset(data Data, batchSize int, flattenInput bool, rng *rand.Rand) *Dataset {
	d := &Dataset{Data: data, Samples: data.Len(), rng: rng}
	if batchSize == 0 || batchSize > d.Samples {
		d.BatchSize = d.Samples
	} else {
		d.BatchSize = batchSize
	}
	d.Batches = d.Samples / d.BatchSize
	d.nfeat = num.Prod(data.Shape)
	if flattenInput {
		d.x = num.NewArray(d.BatchSize, d.nfeat)
	} else {
		d.x = num.NewArray(append([]int{d.BatchSize}, data.Shape...)...)
	}
	d.y = num.NewArray(d.BatchSize, 1)
	d.indexes = make([]int, d.Samples)
	for i := range d.indexes {
		d.indexes[i] = i
	}
	return d
}

// Shuffle the data set ordering
func (d *Dataset) Shuffle() {
	d.indexes = d.rng.Perm(d.Samples)
}

// GetBatch fills the batch buffers with the given batch and returns them.
// x shape is [batchSize, ...], y is [batchSize, 1].
func (d *Dataset) GetBatch(batch int) (x, y *num.Array) {
	start := batch * d.BatchSize
	for i := 0; i < d.BatchSize; i++ {
		ix := d.indexes[start+i]
		copy(d.x.Data[i*d.nfeat:(i+1)*d.nfeat], d.Inputs[ix*d.nfeat:(ix+1)*d.nfeat])
		d.y.Data[i] = float32(d.Labels[ix])
	}
	return d.x, d.y
}
