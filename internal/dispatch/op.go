// Package dispatch routes the small fixed set of intercepted tensor
// operations to either their standard or their batch-invariant
// implementations. Routing is an explicit strategy table keyed by
// operation identity, flipped as a whole by a reversible, nestable
// scoped mode; call sites never change.
package dispatch

import "github.com/samcharles93/lockstep/internal/tensor"

// Op identifies one of the intercepted operations. The set is fixed at
// compile time and never extended at runtime.
type Op uint8

const (
	OpMatMul Op = iota
	OpMatMulBias
	OpLogSoftmax
	OpMean

	opCount
)

func (o Op) String() string {
	switch o {
	case OpMatMul:
		return "matmul"
	case OpMatMulBias:
		return "matmul_bias"
	case OpLogSoftmax:
		return "log_softmax"
	case OpMean:
		return "mean"
	default:
		return "unknown"
	}
}

// Implementation signatures for each operation identity. Both routing
// targets of an Op share one signature, shapes, and error behaviour:
// a caller cannot tell syntactically which path is active.
type (
	MatMulFunc     func(dst, a, b *tensor.Mat) error
	MatMulBiasFunc func(dst, a, b *tensor.Mat, bias []float32) error
	LogSoftmaxFunc func(dst, x *tensor.Mat) error
	MeanFunc       func(x *tensor.Mat, axis int) ([]float32, error)
)
