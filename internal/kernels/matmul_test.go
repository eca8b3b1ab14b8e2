package kernels

import (
	"math"
	"testing"

	"github.com/samcharles93/lockstep/internal/tensor"
)

func matmulNaive(C, A, B *tensor.Mat) {
	for i := 0; i < A.R; i++ {
		for j := 0; j < B.C; j++ {
			var sum float32
			for kk := 0; kk < A.C; kk++ {
				sum += A.Row(i)[kk] * B.Row(kk)[j]
			}
			C.Row(i)[j] = sum
		}
	}
}

func maxAbsDiff(a, b []float32) float64 {
	var maxAbs float64
	for i := range a {
		d := math.Abs(float64(a[i] - b[i]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs
}

func TestMatMulMatchesNaive(t *testing.T) {
	A := tensor.NewMat(50, 70)
	B := tensor.NewMat(70, 45)
	C0 := tensor.NewMat(50, 45)
	C1 := tensor.NewMat(50, 45)

	tensor.FillRand(&A, 1)
	tensor.FillRand(&B, 2)

	matmulNaive(&C0, &A, &B)
	if err := MatMul(&C1, &A, &B); err != nil {
		t.Fatalf("MatMul: %v", err)
	}

	if maxAbs := maxAbsDiff(C0.Data, C1.Data); maxAbs > 1e-3 {
		t.Fatalf("max abs diff %g", maxAbs)
	}
}

func TestMatMulRowInvariance(t *testing.T) {
	// Contraction length and width deliberately off the tile boundaries.
	const k, n = 300, 129

	B := tensor.NewMat(k, n)
	tensor.FillLinspace(&B, -100, 100)

	for _, rows := range []int{1, 2, 8, 257} {
		A := tensor.NewMat(rows, k)
		tensor.FillLinspace(&A, -100, 100)

		full := tensor.NewMat(rows, n)
		if err := MatMul(&full, &A, &B); err != nil {
			t.Fatalf("rows=%d: %v", rows, err)
		}

		for _, i := range []int{0, rows / 2, rows - 1} {
			ai := A.RowSlice(i, i+1)
			solo := tensor.NewMat(1, n)
			if err := MatMul(&solo, &ai, &B); err != nil {
				t.Fatalf("rows=%d row=%d: %v", rows, i, err)
			}
			fullRow := full.Row(i)
			soloRow := solo.Row(0)
			for j := range soloRow {
				if math.Float32bits(fullRow[j]) != math.Float32bits(soloRow[j]) {
					t.Fatalf("rows=%d row=%d col=%d: batched %v != solo %v",
						rows, i, j, fullRow[j], soloRow[j])
				}
			}
		}
	}
}

func TestMatMulBiasAfterContraction(t *testing.T) {
	A := tensor.NewMat(5, 33)
	B := tensor.NewMat(33, 17)
	tensor.FillRand(&A, 3)
	tensor.FillRand(&B, 4)

	bias := make([]float32, 17)
	for j := range bias {
		bias[j] = float32(j) * 0.25
	}

	plain := tensor.NewMat(5, 17)
	fused := tensor.NewMat(5, 17)
	if err := MatMul(&plain, &A, &B); err != nil {
		t.Fatalf("MatMul: %v", err)
	}
	if err := MatMulBias(&fused, &A, &B, bias); err != nil {
		t.Fatalf("MatMulBias: %v", err)
	}

	// Fusion must be exactly contraction-then-add, so the fused result is
	// bit-identical to adding the bias to the unfused product.
	for i := 0; i < 5; i++ {
		for j := 0; j < 17; j++ {
			want := plain.Row(i)[j] + bias[j]
			got := fused.Row(i)[j]
			if math.Float32bits(want) != math.Float32bits(got) {
				t.Fatalf("row %d col %d: fused %v want %v", i, j, got, want)
			}
		}
	}
}

func TestMatMulEmptyDims(t *testing.T) {
	// K=0: correctly shaped zero result.
	A := tensor.NewMat(3, 0)
	B := tensor.NewMat(0, 4)
	C := tensor.NewMat(3, 4)
	for i := range C.Data {
		C.Data[i] = 99
	}
	if err := MatMul(&C, &A, &B); err != nil {
		t.Fatalf("K=0: %v", err)
	}
	for i, v := range C.Data {
		if v != 0 {
			t.Fatalf("K=0: element %d = %v, want 0", i, v)
		}
	}

	// K=0 with bias: result is the broadcast bias.
	bias := []float32{1, 2, 3, 4}
	if err := MatMulBias(&C, &A, &B, bias); err != nil {
		t.Fatalf("K=0 bias: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if C.Row(i)[j] != bias[j] {
				t.Fatalf("K=0 bias: row %d col %d = %v", i, j, C.Row(i)[j])
			}
		}
	}

	// M=0 and N=0: no-ops on empty outputs.
	M0 := tensor.NewMat(0, 4)
	A0 := tensor.NewMat(0, 7)
	B0 := tensor.NewMat(7, 4)
	if err := MatMul(&M0, &A0, &B0); err != nil {
		t.Fatalf("M=0: %v", err)
	}
}

func TestMatMulShapeFault(t *testing.T) {
	A := tensor.NewMat(2, 3)
	B := tensor.NewMat(4, 5)
	C := tensor.NewMat(2, 5)
	err := MatMul(&C, &A, &B)
	if err == nil {
		t.Fatal("expected shape error")
	}
	badBias := make([]float32, 3)
	B2 := tensor.NewMat(3, 5)
	if err := MatMulBias(&C, &A, &B2, badBias); err == nil {
		t.Fatal("expected bias shape error")
	}
}

func TestMatMulStridedOperand(t *testing.T) {
	// A view over a wider parent must give the same bits as a compact copy:
	// tile boundaries are never layout dependent.
	parent := tensor.NewMat(6, 40)
	tensor.FillRand(&parent, 7)
	view := tensor.Mat{R: 6, C: 20, Stride: 40, Data: parent.Data}
	compact := view.Clone()

	B := tensor.NewMat(20, 11)
	tensor.FillRand(&B, 8)

	c0 := tensor.NewMat(6, 11)
	c1 := tensor.NewMat(6, 11)
	if err := MatMul(&c0, &view, &B); err != nil {
		t.Fatalf("strided: %v", err)
	}
	if err := MatMul(&c1, &compact, &B); err != nil {
		t.Fatalf("compact: %v", err)
	}
	for i := range c0.Data {
		if math.Float32bits(c0.Data[i]) != math.Float32bits(c1.Data[i]) {
			t.Fatalf("element %d: strided %v != compact %v", i, c0.Data[i], c1.Data[i])
		}
	}
}

func BenchmarkMatMul(b *testing.B) {
	A := tensor.NewMat(256, 256)
	B := tensor.NewMat(256, 256)
	C := tensor.NewMat(256, 256)
	tensor.FillRand(&A, 1)
	tensor.FillRand(&B, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = MatMul(&C, &A, &B)
	}
}
