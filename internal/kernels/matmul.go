package kernels

import (
	"runtime"

	"github.com/samcharles93/lockstep/internal/tensor"
)

// MatMul computes dst = a*b with a tiling and accumulation order that is a
// pure function of (K, N). For any row i, MatMul(a, b)[i] is bit-identical
// whether a has one row or thousands, provided row i's data is identical.
func MatMul(dst, a, b *tensor.Mat) error {
	return matmul(dst, a, b, nil)
}

// MatMulBias computes dst = a*b + bias. The bias is added once per output
// element after the contraction completes; fusion never perturbs the
// contraction order.
func MatMulBias(dst, a, b *tensor.Mat, bias []float32) error {
	return matmul(dst, a, b, bias)
}

func matmul(dst, a, b *tensor.Mat, bias []float32) error {
	if err := CheckMatMul(dst, a, b, bias); err != nil {
		return err
	}
	if dst.R == 0 || dst.C == 0 {
		return nil
	}
	if a.C == 0 {
		// K=0: a correctly shaped zero (or bias) result, no tiling machinery.
		for i := 0; i < dst.R; i++ {
			row := dst.Row(i)
			if bias != nil {
				copy(row, bias)
			} else {
				clear(row)
			}
		}
		return nil
	}

	// Tile boundaries must never be layout dependent.
	ac := a.Compact()
	bc := b.Compact()

	_, tn, tk := matmulTiles(ac.C, bc.C)

	workers := runtime.GOMAXPROCS(0)
	rowTiles := (dst.R + tileM - 1) / tileM
	if workers > rowTiles {
		workers = rowTiles
	}
	if workers <= 1 {
		part := make([]float32, maxTileN)
		matmulRange(dst, &ac, &bc, bias, 0, dst.R, tn, tk, part)
		return nil
	}
	if workers > matmulWorkPool.size {
		workers = matmulWorkPool.size
	}

	// Contiguous runs of whole row tiles per worker. Row grouping is free to
	// change with worker count: every output element is produced wholly by
	// one goroutine in the fixed (K, N)-derived order.
	tilesPer := (rowTiles + workers - 1) / workers
	done := <-matmulWorkPool.doneSlots
	issued := 0
	for w := 0; w < workers; w++ {
		rs := w * tilesPer * tileM
		if rs >= dst.R {
			break
		}
		re := rs + tilesPer*tileM
		if re > dst.R {
			re = dst.R
		}
		matmulWorkPool.tasks <- matmulTask{
			dst:  dst,
			a:    &ac,
			b:    &bc,
			bias: bias,
			rs:   rs,
			re:   re,
			tn:   tn,
			tk:   tk,
			done: done,
		}
		issued++
	}
	for i := 0; i < issued; i++ {
		<-done
	}
	matmulWorkPool.doneSlots <- done
	return nil
}

type matmulTask struct {
	dst, a, b *tensor.Mat
	bias      []float32
	rs, re    int
	tn, tk    int
	done      chan struct{}
}

type matmulPool struct {
	size      int
	tasks     chan matmulTask
	doneSlots chan chan struct{}
}

func newMatmulPool() *matmulPool {
	size := runtime.GOMAXPROCS(0)
	if size < 1 {
		size = 1
	}
	p := &matmulPool{
		size:      size,
		tasks:     make(chan matmulTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, 1)
	}
	for w := 0; w < size; w++ {
		part := make([]float32, maxTileN)
		go func(part []float32) {
			for task := range p.tasks {
				matmulRange(task.dst, task.a, task.b, task.bias, task.rs, task.re, task.tn, task.tk, part)
				task.done <- struct{}{}
			}
		}(part)
	}
	return p
}

var matmulWorkPool = newMatmulPool()

// matmulRange computes rows [rs, re) of dst. Per output element the
// contraction runs in fixed left-to-right chunks of tk: each chunk partial
// accumulates in part and is then folded into the output row, so the
// rounding sequence is the same for every batch composition.
func matmulRange(dst, a, b *tensor.Mat, bias []float32, rs, re, tn, tk int, part []float32) {
	n := dst.C
	k := a.C
	aStride := a.Stride
	bStride := b.Stride
	cStride := dst.Stride
	aData := a.Data
	bData := b.Data
	cData := dst.Data

	for i0 := rs; i0 < re; i0 += tileM {
		iMax := min(i0+tileM, re)
		for j0 := 0; j0 < n; j0 += tn {
			jMax := min(j0+tn, n)
			width := jMax - j0
			for i := i0; i < iMax; i++ {
				aRow := aData[i*aStride:]
				cOff := i*cStride + j0
				cRow := cData[cOff : cOff+width]
				clear(cRow)

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

				if bias != nil {
					bRow := bias[j0:jMax]
					for j := 0; j < width; j++ {
						cRow[j] += bRow[j]
					}
				}
			}
		}
	}
}
