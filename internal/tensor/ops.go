package tensor

import (
	"errors"
	"math"
)

// ErrBadAxis is returned for reductions along an axis the 2-D substrate
// does not have.
var ErrBadAxis = errors.New("tensor: axis out of range")

// ErrEmptyAxis is returned when a reduction axis has zero length; the mean
// of nothing is never silently produced as NaN.
var ErrEmptyAxis = errors.New("tensor: zero-length reduction axis")

// Add adds src to dst element-wise.
func Add(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}

// Dot computes the dot product of a and b.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Softmax applies the softmax function to x in place.
func Softmax(x []float32) {
	if len(x) == 0 {
		return
	}
	maxv := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxv {
			maxv = x[i]
		}
	}
	var sum float64
	for i := range x {
		v := math.Exp(float64(x[i] - maxv))
		x[i] = float32(v)
		sum += v
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / sum)
	for i := range x {
		x[i] *= inv
	}
}

// LogSoftmaxRows computes log-softmax along each row of x into dst using a
// straight left-to-right scan. No fixed chunking: this is the standard path
// and carries no invariance guarantee.
func LogSoftmaxRows(dst, x *Mat) error {
	if dst.R != x.R || dst.C != x.C {
		return errors.New("tensor: log-softmax shape mismatch")
	}
	for i := 0; i < x.R; i++ {
		row := x.Row(i)
		out := dst.Row(i)
		if len(row) == 0 {
			continue
		}
		maxv := row[0]
		for j := 1; j < len(row); j++ {
			if row[j] > maxv {
				maxv = row[j]
			}
		}
		var sum float64
		for j := range row {
			sum += math.Exp(float64(row[j] - maxv))
		}
		lse := float32(math.Log(sum))
		for j := range row {
			out[j] = row[j] - maxv - lse
		}
	}
	return nil
}

// Mean reduces x along the given axis with a straight running sum.
// axis 0 collapses rows (result length C), axis 1 collapses columns
// (result length R).
func Mean(x *Mat, axis int) ([]float32, error) {
	switch axis {
	case 0:
		if x.R == 0 {
			return nil, ErrEmptyAxis
		}
		out := make([]float32, x.C)
		for i := 0; i < x.R; i++ {
			row := x.Row(i)
			for j := range row {
				out[j] += row[j]
			}
		}
		inv := float32(1) / float32(x.R)
		for j := range out {
			out[j] *= inv
		}
		return out, nil
	case 1:
		if x.C == 0 {
			return nil, ErrEmptyAxis
		}
		out := make([]float32, x.R)
		inv := float32(1) / float32(x.C)
		for i := 0; i < x.R; i++ {
			row := x.Row(i)
			var sum float32
			for j := range row {
				sum += row[j]
			}
			out[i] = sum * inv
		}
		return out, nil
	default:
		return nil, ErrBadAxis
	}
}
