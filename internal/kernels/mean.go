package kernels

import "github.com/samcharles93/lockstep/internal/tensor"

// Mean reduces x along the given axis with fixed-size chunked summation
// followed by a single division by the axis length. The chunk size is a
// pure function of the axis length, so one slice's mean is unaffected by
// how many other slices share the call. A zero-length reduction axis is an
// error, never a silent division by zero.
func Mean(x *tensor.Mat, axis int) ([]float32, error) {
	switch axis {
	case 0:
		return meanRowsAxis(x)
	case 1:
		return meanColsAxis(x)
	default:
		return nil, tensor.ErrBadAxis
	}
}

// meanRowsAxis collapses the row axis: out[j] = mean over i of x[i][j].
// Rows are consumed in fixed chunks of reduceChunk(R); each chunk partial
// is folded into the running column sums before the next chunk starts.
func meanRowsAxis(x *tensor.Mat) ([]float32, error) {
	if x.R == 0 {
		return nil, tensor.ErrEmptyAxis
	}
	chunk := reduceChunk(x.R)
	out := make([]float32, x.C)
	part := make([]float32, x.C)

	for r0 := 0; r0 < x.R; r0 += chunk {
		rMax := min(r0+chunk, x.R)
		clear(part)
		for i := r0; i < rMax; i++ {
			row := x.Row(i)
			for j := range row {
				part[j] += row[j]
			}
		}
		for j := range out {
			out[j] += part[j]
		}
	}

	inv := float32(1) / float32(x.R)
	for j := range out {
		out[j] *= inv
	}
	return out, nil
}

// meanColsAxis collapses the column axis: out[i] = mean of row i. The chunk
// length derives from the row length only, never from the row count.
func meanColsAxis(x *tensor.Mat) ([]float32, error) {
	if x.C == 0 {
		return nil, tensor.ErrEmptyAxis
	}
	chunk := reduceChunk(x.C)
	out := make([]float32, x.R)
	inv := float32(1) / float32(x.C)

	for i := 0; i < x.R; i++ {
		row := x.Row(i)
		var sum float32
		for c0 := 0; c0 < x.C; c0 += chunk {
			cMax := min(c0+chunk, x.C)
			var part float32
			for j := c0; j < cMax; j++ {
				part += row[j]
			}
			sum += part
		}
		out[i] = sum * inv
	}
	return out, nil
}
