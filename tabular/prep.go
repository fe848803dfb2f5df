package tabular

import (
	"math"
	"math/rand"
	"sort"
)

// Scaler standardises features to zero mean and unit variance using the
// statistics of the data it was fitted on.
type Scaler struct {
	Mean, Std []float32
}

// Fit computes per column mean and stddev.
func (s *Scaler) Fit(x [][]float32) *Scaler {
	nfeat := len(x[0])
	s.Mean = make([]float32, nfeat)
	s.Std = make([]float32, nfeat)
	for _, row := range x {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	n := float32(len(x))
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = float32(math.Sqrt(float64(s.Std[j] / n)))
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

// Transform scales the rows in place and returns them.
func (s *Scaler) Transform(x [][]float32) [][]float32 {
	for _, row := range x {
		for j := range row {
			row[j] = (row[j] - s.Mean[j]) / s.Std[j]
		}
	}
	return x
}

// StratifiedKFold assigns row indices to k folds preserving the class
// balance: indices for each class are shuffled then dealt round robin.
func StratifiedKFold(y []int32, k int, rng *rand.Rand) [][]int {
	byClass := map[int32][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	folds := make([][]int, k)
	labels := make([]int32, 0, len(byClass))
	for label := range byClass {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	for _, label := range labels {
		indexes := byClass[label]
		rng.Shuffle(len(indexes), func(i, j int) {
			indexes[i], indexes[j] = indexes[j], indexes[i]
		})
		for i, ix := range indexes {
			folds[i%k] = append(folds[i%k], ix)
		}
	}
	for _, fold := range folds {
		sort.Ints(fold)
	}
	return folds
}

// TrainIndexes returns all indices not in the given fold.
func TrainIndexes(folds [][]int, fold, n int) []int {
	hold := map[int]bool{}
	for _, ix := range folds[fold] {
		hold[ix] = true
	}
	train := make([]int, 0, n-len(folds[fold]))
	for i := 0; i < n; i++ {
		if !hold[i] {
			train = append(train, i)
		}
	}
	return train
}
