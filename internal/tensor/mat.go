package tensor

import "math/rand"

// Mat represents a dense row-major matrix of float32 values.
//
// R and C represent the number of rows and columns respectively. Stride is
// the number of elements between the starts of two consecutive rows; for
// freshly allocated matrices this equals C, but views over a wider parent
// may carry a larger stride.
//
// Mat does not perform any memory safety beyond the checks performed by
// Go's slice types; out-of-range indices will panic.
type Mat struct {
	R, C   int
	Stride int
	Data   []float32
}

// NewMat allocates a new matrix with the given number of rows and columns.
// The underlying slice is zero initialised and the stride is set to the
// number of columns.
func NewMat(r, c int) Mat {
	if r < 0 || c < 0 {
		panic("negative dimension for matrix")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   make([]float32, r*c),
	}
}

// NewMatFromData creates a matrix from existing data.
// It checks that the data length matches r*c.
func NewMatFromData(r, c int, data []float32) Mat {
	if r*c != len(data) {
		panic("data length mismatch")
	}
	return Mat{
		R:      r,
		C:      c,
		Stride: c,
		Data:   data,
	}
}

// Row returns a view of the i-th row of the matrix as a slice. The slice
// has length equal to the number of columns. Modifications to the returned
// slice update the underlying matrix values.
func (m *Mat) Row(i int) []float32 {
	if i < 0 || i >= m.R {
		panic("row index out of range")
	}
	start := i * m.Stride
	return m.Data[start : start+m.C]
}

// RowSlice returns a view over rows [lo, hi) of the matrix. The view
// shares the underlying data with m.
func (m *Mat) RowSlice(lo, hi int) Mat {
	if lo < 0 || hi < lo || hi > m.R {
		panic("row slice out of range")
	}
	start := lo * m.Stride
	end := start
	if hi > lo {
		end = (hi-1)*m.Stride + m.C
	}
	return Mat{
		R:      hi - lo,
		C:      m.C,
		Stride: m.Stride,
		Data:   m.Data[start:end],
	}
}

// IsCompact reports whether rows are stored back to back with no gaps.
func (m *Mat) IsCompact() bool {
	return m.Stride == m.C
}

// Compact returns m if its rows are already contiguous, otherwise a copy
// with stride equal to the column count. Kernel tile boundaries must never
// depend on the caller's storage layout, so strided operands go through
// here before tiling.
func (m *Mat) Compact() Mat {
	if m.IsCompact() {
		return *m
	}
	return m.Clone()
}

// Clone returns a compact deep copy of the matrix.
func (m *Mat) Clone() Mat {
	out := NewMat(m.R, m.C)
	for i := 0; i < m.R; i++ {
		copy(out.Row(i), m.Row(i))
	}
	return out
}

// FillRand fills the matrix with reproducible pseudo-random values. A small
// range around zero is used to avoid overflow in accumulations. The seed
// controls the random sequence; multiple calls with the same seed produce
// identical matrices.
func FillRand(m *Mat, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range m.Data {
		m.Data[i] = (rng.Float32() - 0.5) * 0.02 // roughly in (-0.01,0.01)
	}
}

// FillLinspace fills the matrix with evenly spaced values from lo to hi in
// row-major order. The verification harness uses this to build operands
// whose every element differs, so any reduction-order change shows up in
// the result.
func FillLinspace(m *Mat, lo, hi float64) {
	n := len(m.Data)
	if n == 0 {
		return
	}
	if n == 1 {
		m.Data[0] = float32(lo)
		return
	}
	step := (hi - lo) / float64(n-1)
	for i := range m.Data {
		m.Data[i] = float32(lo + step*float64(i))
	}
}
