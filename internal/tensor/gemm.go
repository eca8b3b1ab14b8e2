package tensor

import "runtime"

// Standard blocked GEMM. This is the fast path the dispatch registry routes
// to when batch-invariant mode is off. Its tile selection consults the full
// batched shape, the way accelerator kernels pick split-K depth from
// occupancy, so the per-element rounding sequence shifts with the number of
// rows sharing the call. Row invariance is explicitly not guaranteed here.
const (
	defaultTileM = 32
	defaultTileN = 64

	maxTileN = 128
	maxTileK = 512
)

// selectGemmTiles picks the blocking for a full (M, K, N) problem. The
// contraction chunk grows as the row count shrinks: with few rows the only
// parallelism left is along K, so the chunking goes deeper. This is the
// occupancy heuristic that breaks batch invariance.
func selectGemmTiles(m, k, n int) (tm, tn, tk int) {
	tm = defaultTileM
	tn = defaultTileN

	switch {
	case m <= 4:
		tk = 64
	case m <= 64:
		tk = 128
	default:
		tk = 256
	}
	if k < tk {
		tk = k
	}
	if tk < 1 {
		tk = 1
	}
	if n < tn {
		tn = n
	}
	if tn < 1 {
		tn = 1
	}
	return tm, tn, tk
}

type gemmTask struct {
	C, A, B    *Mat
	bias       []float32
	rs, re     int
	tm, tn, tk int
	done       chan struct{}
}

type gemmPool struct {
	size      int
	tasks     chan gemmTask
	doneSlots chan chan struct{}
}

func newGemmPool() *gemmPool {
	size := runtime.GOMAXPROCS(0)
	if size < 1 {
		size = 1
	}
	p := &gemmPool{
		size:      size,
		tasks:     make(chan gemmTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, 1)
	}
	for w := 0; w < size; w++ {
		part := make([]float32, maxTileN)
		go func(part []float32) {
			for task := range p.tasks {
				gemmRangeRows(task.C, task.A, task.B, task.bias, task.rs, task.re, task.tm, task.tn, task.tk, part)
				task.done <- struct{}{}
			}
		}(part)
	}
	return p
}

var gemmWorkPool = newGemmPool()

// Gemm computes C = A*B (plus an optional per-column bias) using a blocked
// algorithm and parallelising across ranges of output rows.
func Gemm(C, A, B *Mat, bias []float32, workers int) {
	if A.C != B.R || C.R != A.R || C.C != B.C {
		panic("gemm: dimension mismatch")
	}
	if bias != nil && len(bias) != C.C {
		panic("gemm: bias length mismatch")
	}
	if C.R == 0 || C.C == 0 {
		return
	}

	tm, tn, tk := selectGemmTiles(C.R, A.C, B.C)

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > C.R {
		workers = C.R
	}
	if workers <= 1 {
		part := make([]float32, maxTileN)
		gemmRangeRows(C, A, B, bias, 0, C.R, tm, tn, tk, part)
		return
	}
	if workers > gemmWorkPool.size {
		workers = gemmWorkPool.size
	}

	chunk := (C.R + workers - 1) / workers

	done := <-gemmWorkPool.doneSlots
	for w := 0; w < workers; w++ {
		rs := w * chunk
		re := rs + chunk
		if re > C.R {
			re = C.R
		}
		gemmWorkPool.tasks <- gemmTask{
			C:    C,
			A:    A,
			B:    B,
			bias: bias,
			rs:   rs,
			re:   re,
			tm:   tm,
			tn:   tn,
			tk:   tk,
			done: done,
		}
	}
	for i := 0; i < workers; i++ {
		<-done
	}
	gemmWorkPool.doneSlots <- done
}

// gemmRangeRows performs a blocked GEMM on a contiguous range of rows of C.
// Each contraction chunk is accumulated into part and then folded into the
// output row, so the grouping chosen by selectGemmTiles is what the result
// is rounded through.
func gemmRangeRows(C, A, B *Mat, bias []float32, rs, re, tm, tn, tk int, part []float32) {
	n := C.C
	k := A.C
	aStride := A.Stride
	bStride := B.Stride
	cStride := C.Stride
	aData := A.Data
	bData := B.Data
	cData := C.Data

	for i := rs; i < re; i++ {
		base := i * cStride
		if bias != nil {
			copy(cData[base:base+n], bias)
		} else {
			clear(cData[base : base+n])
		}
	}

	for i0 := rs; i0 < re; i0 += tm {
		iMax := min(i0+tm, re)
		for j0 := 0; j0 < n; j0 += tn {
			jMax := min(j0+tn, n)
			width := jMax - j0
			for i := i0; i < iMax; i++ {
				aRow := aData[i*aStride:]
				cOff := i*cStride + j0
				cRow := cData[cOff : cOff+width]

				for k0 := 0; k0 < k; k0 += tk {
					kMax := min(k0+tk, k)
					p := part[:width]
					clear(p)
					for kk := k0; kk < kMax; kk++ {
						aik := aRow[kk]
						bOff := kk*bStride + j0
						bRow := bData[bOff : bOff+width]

						j := 0
						for ; j+7 < width; j += 8 {
							p[j+0] += aik * bRow[j+0]
							p[j+1] += aik * bRow[j+1]
							p[j+2] += aik * bRow[j+2]
							p[j+3] += aik * bRow[j+3]
							p[j+4] += aik * bRow[j+4]
							p[j+5] += aik * bRow[j+5]
							p[j+6] += aik * bRow[j+6]
							p[j+7] += aik * bRow[j+7]
						}
						for ; j < width; j++ {
							p[j] += aik * bRow[j]
						}
					}
					for j := 0; j < width; j++ {
						cRow[j] += p[j]
					}
				}
			}
		}
	}
}
