package kernels

import (
	"math"

	"github.com/samcharles93/lockstep/internal/tensor"
)

// LogSoftmax computes log-softmax along each row of x into dst using a
// fixed two-pass reduction: pass 1 finds the row maximum with a chunked
// left-to-right scan, pass 2 accumulates the log-sum-exp over the same
// chunking. The chunk length depends only on the row length, so a row's
// result is invariant to which other rows share the call.
func LogSoftmax(dst, x *tensor.Mat) error {
	if err := CheckSameShape(dst, x); err != nil {
		return err
	}
	if x.C == 0 {
		return nil
	}
	chunk := reduceChunk(x.C)
	for i := 0; i < x.R; i++ {
		rowLogSoftmax(dst.Row(i), x.Row(i), chunk)
	}
	return nil
}

func rowLogSoftmax(dst, src []float32, chunk int) {
	n := len(src)

	// Pass 1: chunked maximum.
	maxv := float32(math.Inf(-1))
	for c0 := 0; c0 < n; c0 += chunk {
		cMax := min(c0+chunk, n)
		m := src[c0]
		for j := c0 + 1; j < cMax; j++ {
			if src[j] > m {
				m = src[j]
			}
		}
		if m > maxv {
			maxv = m
		}
	}

	// A fully masked row has no finite reference point. NaN propagates
	// uniformly rather than being decided per call.
	if math.IsInf(float64(maxv), -1) {
		nan := float32(math.NaN())
		for j := range dst {
			dst[j] = nan
		}
		return
	}

	// Pass 2: chunked log-sum-exp over the same chunking.
	var sum float64
	for c0 := 0; c0 < n; c0 += chunk {
		cMax := min(c0+chunk, n)
		var part float64
		for j := c0; j < cMax; j++ {
			part += math.Exp(float64(src[j] - maxv))
		}
		sum += part
	}
	lse := float32(math.Log(sum))
	for j := 0; j < n; j++ {
		dst[j] = src[j] - maxv - lse
	}
}
