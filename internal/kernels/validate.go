package kernels

import (
	"errors"
	"fmt"

	"github.com/samcharles93/lockstep/internal/tensor"
)

// ErrShape is returned when operand shapes are incompatible. Shape faults
// surface immediately; a silently wrong result is never produced instead.
var ErrShape = errors.New("kernels: operand shapes incompatible")

// CheckMatMul validates dst = a*b (+bias). Both the standard and the
// invariant matmul implementations run this first, so callers cannot tell
// from error behaviour which path serviced them.
func CheckMatMul(dst, a, b *tensor.Mat, bias []float32) error {
	if a.C != b.R || dst.R != a.R || dst.C != b.C {
		return fmt.Errorf("%w: (%dx%d)*(%dx%d) -> (%dx%d)", ErrShape, a.R, a.C, b.R, b.C, dst.R, dst.C)
	}
	if bias != nil && len(bias) != dst.C {
		return fmt.Errorf("%w: bias length %d for %d output columns", ErrShape, len(bias), dst.C)
	}
	return nil
}

// CheckSameShape validates an element-shaped dst for a row-wise op on x.
func CheckSameShape(dst, x *tensor.Mat) error {
	if dst.R != x.R || dst.C != x.C {
		return fmt.Errorf("%w: (%dx%d) vs (%dx%d)", ErrShape, dst.R, dst.C, x.R, x.C)
	}
	return nil
}
