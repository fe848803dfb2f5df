package num

import (
	"fmt"
	"strings"
)

// Parameters for array printing
var (
	PrintThreshold = 12
	PrintEdgeitems = 4
)

// Array is an n dimensional tensor of float32 values stored in row major order.
// The leading dimension is the batch where the array holds batched data.
type Array struct {
	Data []float32
	dims []int
}

// NewArray allocates a zeroed array with the given shape.
func NewArray(dims ...int) *Array {
	return &Array{Data: make([]float32, Prod(dims)), dims: append([]int{}, dims...)}
}

// NewArrayData wraps an existing slice, which must match the shape.
func NewArrayData(data []float32, dims ...int) *Array {
	if len(data) != Prod(dims) {
		panic(fmt.Sprintf("num: data length %d does not match shape %v", len(data), dims))
	}
	return &Array{Data: data, dims: append([]int{}, dims...)}
}

// Dims returns the shape of the array.
func (a *Array) Dims() []int { return a.dims }

// Size is the total number of elements.
func (a *Array) Size() int { return len(a.Data) }

// Reshape returns a view on the same data with a different shape.
// A single dimension may be -1 in which case it is inferred.
func (a *Array) Reshape(dims ...int) *Array {
	n := len(a.Data)
	shape := append([]int{}, dims...)
	for i := range shape {
		if shape[i] == -1 {
			other := 1
			for j, dim := range shape {
				if i != j {
					if dim == -1 {
						panic("num: Reshape can only have a single -1 value")
					}
					other *= dim
				}
			}
			shape[i] = n / other
		}
	}
	if Prod(shape) != n {
		panic(fmt.Sprintf("num: reshape %v to %v changes size", a.dims, shape))
	}
	return &Array{Data: a.Data, dims: shape}
}

// Sub returns a view on element i of the leading dimension.
func (a *Array) Sub(i int) *Array {
	if len(a.dims) < 2 {
		panic("num: Sub needs at least 2 dimensions")
	}
	n := Prod(a.dims[1:])
	return &Array{Data: a.Data[i*n : (i+1)*n], dims: a.dims[1:]}
}

// At returns the element at the given index.
func (a *Array) At(ix ...int) float32 {
	return a.Data[a.offset(ix)]
}

// Set updates the element at the given index.
func (a *Array) Set(val float32, ix ...int) {
	a.Data[a.offset(ix)] = val
}

func (a *Array) offset(ix []int) int {
	if len(ix) != len(a.dims) {
		panic(fmt.Sprintf("num: index %v does not match shape %v", ix, a.dims))
	}
	pos := 0
	for i, x := range ix {
		pos = pos*a.dims[i] + x
	}
	return pos
}

// Formatted output, in the style of a numpy ndarray.
func (a *Array) String() string {
	if len(a.dims) <= 1 {
		return formatRow(a.Data)
	}
	rows := a.dims[0]
	stride := Prod(a.dims[1:])
	s := make([]string, 0, rows)
	for i := 0; i < rows; i++ {
		if rows > PrintThreshold+1 && i == PrintEdgeitems {
			s = append(s, " ...")
			i = rows - PrintEdgeitems - 1
			continue
		}
		sub := &Array{Data: a.Data[i*stride : (i+1)*stride], dims: a.dims[1:]}
		s = append(s, sub.String())
	}
	return "[" + strings.Join(s, "\n ") + "]"
}

func formatRow(data []float32) string {
	s := "["
	for i := 0; i < len(data); i++ {
		if len(data) > PrintThreshold+1 && i == PrintEdgeitems {
			s += " ... "
			i = len(data) - PrintEdgeitems - 1
			continue
		}
		s += fmt.Sprintf("%7.5g ", data[i])
	}
	return s + "]"
}

// Product of elements of an integer array. Zero dimension array (scalar) has size 1.
func Prod(arr []int) int {
	prod := 1
	for _, v := range arr {
		prod *= v
	}
	return prod
}

// Check if two arrays are the same shape
func SameShape(xd, yd []int) bool {
	if len(xd) != len(yd) {
		return false
	}
	for i := range xd {
		if xd[i] != yd[i] {
			return false
		}
	}
	return true
}
