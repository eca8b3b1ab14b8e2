package dispatch

import (
	"github.com/samcharles93/lockstep/internal/kernels"
	"github.com/samcharles93/lockstep/internal/tensor"
)

// Typed call surface. Each resolves the active implementation for its
// operation identity with a single atomic load.

// MatMul computes dst = a*b through the active routing.
func (r *Registry) MatMul(dst, a, b *tensor.Mat) error {
	return r.entries[OpMatMul].current.Load().(MatMulFunc)(dst, a, b)
}

// MatMulBias computes dst = a*b + bias through the active routing.
func (r *Registry) MatMulBias(dst, a, b *tensor.Mat, bias []float32) error {
	return r.entries[OpMatMulBias].current.Load().(MatMulBiasFunc)(dst, a, b, bias)
}

// LogSoftmax computes row-wise log-softmax through the active routing.
func (r *Registry) LogSoftmax(dst, x *tensor.Mat) error {
	return r.entries[OpLogSoftmax].current.Load().(LogSoftmaxFunc)(dst, x)
}

// Mean reduces x along axis through the active routing.
func (r *Registry) Mean(x *tensor.Mat, axis int) ([]float32, error) {
	return r.entries[OpMean].current.Load().(MeanFunc)(x, axis)
}

// Standard bindings: the fast, batch-shaped tensor implementations. They
// share shape validation with the kernels so error behaviour is identical
// on both paths.

func standardMatMul(dst, a, b *tensor.Mat) error {
	if err := kernels.CheckMatMul(dst, a, b, nil); err != nil {
		return err
	}
	tensor.Gemm(dst, a, b, nil, 0)
	return nil
}

func standardMatMulBias(dst, a, b *tensor.Mat, bias []float32) error {
	if err := kernels.CheckMatMul(dst, a, b, bias); err != nil {
		return err
	}
	tensor.Gemm(dst, a, b, bias, 0)
	return nil
}

func standardLogSoftmax(dst, x *tensor.Mat) error {
	if err := kernels.CheckSameShape(dst, x); err != nil {
		return err
	}
	return tensor.LogSoftmaxRows(dst, x)
}

func standardMean(x *tensor.Mat, axis int) ([]float32, error) {
	return tensor.Mean(x, axis)
}

// Invariant bindings.

func invariantMatMul(dst, a, b *tensor.Mat) error {
	return kernels.MatMul(dst, a, b)
}

func invariantMatMulBias(dst, a, b *tensor.Mat, bias []float32) error {
	return kernels.MatMulBias(dst, a, b, bias)
}

func invariantLogSoftmax(dst, x *tensor.Mat) error {
	return kernels.LogSoftmax(dst, x)
}

func invariantMean(x *tensor.Mat, axis int) ([]float32, error) {
	return kernels.Mean(x, axis)
}
