// Package kernels implements the batch-invariant compute kernels: a
// persistent-tile matrix multiply (with optional bias fusion), a row-wise
// two-pass log-softmax, and a chunked mean reduction.
//
// Every tiling and chunking decision in this package is a pure function of
// the single-row problem shape. The row count of the left matmul operand
// and the row count of a row-wise reduction are batch dimensions: they
// decide only how work is grouped, never the order in which any one output
// element accumulates its partial results. That fixed per-element order is
// what makes a row's result bit-identical whether it is computed alone or
// alongside thousands of unrelated rows.
package kernels

// Invariant GEMM blocking. tileM is a constant: row grouping must not
// react to the batch dimension in any way.
const (
	tileM = 16

	maxTileN = 128
)

// matmulTiles derives the blocking for a multiply with contraction length k
// and output width n. The thresholds are tunable constants; the contract
// only requires that the result is fixed given (k, n).
func matmulTiles(k, n int) (tm, tn, tk int) {
	tm = tileM

	tn = maxTileN
	if n < tn {
		tn = n
	}
	if tn < 1 {
		tn = 1
	}

	switch {
	case k >= 4096:
		tk = 512
	case k >= 512:
		tk = 256
	default:
		tk = 64
	}
	if k < tk {
		tk = k
	}
	if tk < 1 {
		tk = 1
	}
	return tm, tn, tk
}

// reduceChunk derives the chunk length for a fixed-order chunked reduction
// over an axis of length n. Axis lengths below the nominal chunk degrade to
// a single chunk.
func reduceChunk(n int) int {
	const nominal = 1024
	if n < 1 {
		return 1
	}
	if n < nominal {
		return n
	}
	return nominal
}
