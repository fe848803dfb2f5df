package tabular

import (
	"math/rand"
	"sort"
)

// SMOTE oversamples the minority class with synthetic rows interpolated
// towards one of the k nearest minority neighbours, as per Chawla et al.
// New rows are appended until the classes are balanced. The input slices
// are not modified.
func SMOTE(x [][]float32, y []int32, k int, rng *rand.Rand) ([][]float32, []int32) {
	var minority, majority []int
	for i, label := range y {
		if label == 1 {
			minority = append(minority, i)
		} else {
			majority = append(majority, i)
		}
	}
	if len(minority) > len(majority) {
		minority, majority = majority, minority
	}
	need := len(majority) - len(minority)
	if need == 0 || len(minority) < 2 {
		return x, y
	}
	if k >= len(minority) {
		k = len(minority) - 1
	}
	neighbours := nearestNeighbours(x, minority, k)
	outX := append([][]float32{}, x...)
	outY := append([]int32{}, y...)
	label := y[minority[0]]
	for i := 0; i < need; i++ {
		mi := i % len(minority)
		base := x[minority[mi]]
		near := x[neighbours[mi][rng.Intn(k)]]
		row := make([]float32, len(base))
		gap := rng.Float32()
		for j := range row {
			row[j] = base[j] + gap*(near[j]-base[j])
		}
		outX = append(outX, row)
		outY = append(outY, label)
	}
	return outX, outY
}

// nearestNeighbours returns for each minority row the indices of its k
// nearest minority rows by squared euclidean distance.
func nearestNeighbours(x [][]float32, minority []int, k int) [][]int {
	out := make([][]int, len(minority))
	for i, mi := range minority {
		type distIx struct {
			dist float32
			ix   int
		}
		dists := make([]distIx, 0, len(minority)-1)
		for _, mj := range minority {
			if mi == mj {
				continue
			}
			var d float32
			for c := range x[mi] {
				diff := x[mi][c] - x[mj][c]
				d += diff * diff
			}
			dists = append(dists, distIx{dist: d, ix: mj})
		}
		sort.Slice(dists, func(a, b int) bool { return dists[a].dist < dists[b].dist })
		near := make([]int, k)
		for j := 0; j < k; j++ {
			near[j] = dists[j].ix
		}
		out[i] = near
	}
	return out
}
