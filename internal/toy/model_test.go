package toy

import (
	"math"
	"testing"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/tensor"
)

func newTestRegistry(t *testing.T) *dispatch.Registry {
	t.Helper()
	r, err := dispatch.New()
	if err != nil {
		t.Fatalf("dispatch.New: %v", err)
	}
	return r
}

func TestNewDeterministic(t *testing.T) {
	a := New(32, 16, 42)
	b := New(32, 16, 42)
	for i := range a.Emb.Data {
		if a.Emb.Data[i] != b.Emb.Data[i] {
			t.Fatal("same seed produced different embeddings")
		}
	}
	c := New(32, 16, 43)
	if a.Emb.Data[0] == c.Emb.Data[0] && a.W.Data[0] == c.W.Data[0] {
		t.Fatal("different seeds produced identical weights")
	}
}

func TestAbsorbWrapsToken(t *testing.T) {
	m := New(8, 4, 1)
	h := make([]float32, 4)
	m.Absorb(h, 3)
	want := append([]float32(nil), h...)

	h2 := make([]float32, 4)
	m.Absorb(h2, 11) // 11 mod 8 == 3
	for i := range want {
		if h2[i] != want[i] {
			t.Fatal("out-of-range token did not wrap")
		}
	}

	h3 := make([]float32, 4)
	m.Absorb(h3, -5) // -5 wraps to 3
	for i := range want {
		if h3[i] != want[i] {
			t.Fatal("negative token did not wrap")
		}
	}
}

func TestLogProbs(t *testing.T) {
	m := New(64, 32, 7)
	reg := newTestRegistry(t)

	states := tensor.NewMat(3, 32)
	tensor.FillRand(&states, 9)

	lp, err := m.LogProbs(reg, &states)
	if err != nil {
		t.Fatalf("LogProbs: %v", err)
	}
	if lp.R != 3 || lp.C != 64 {
		t.Fatalf("shape %dx%d, want 3x64", lp.R, lp.C)
	}
	for i := 0; i < lp.R; i++ {
		var sum float64
		for _, v := range lp.Row(i) {
			sum += math.Exp(float64(v))
		}
		if math.Abs(sum-1) > 1e-4 {
			t.Fatalf("row %d: probabilities sum to %v", i, sum)
		}
	}
}

func TestLogProbsBadWidth(t *testing.T) {
	m := New(64, 32, 7)
	reg := newTestRegistry(t)
	states := tensor.NewMat(2, 16)
	if _, err := m.LogProbs(reg, &states); err == nil {
		t.Fatal("expected width error")
	}
}

func TestLogProbsRowInvariance(t *testing.T) {
	m := New(128, 64, 3)
	reg := newTestRegistry(t)

	states := tensor.NewMat(5, 64)
	tensor.FillRand(&states, 21)
	solo := states.RowSlice(2, 3)

	err := reg.Scoped(true, func() error {
		full, err := m.LogProbs(reg, &states)
		if err != nil {
			return err
		}
		one, err := m.LogProbs(reg, &solo)
		if err != nil {
			return err
		}
		for j := range one.Row(0) {
			if math.Float32bits(full.Row(2)[j]) != math.Float32bits(one.Row(0)[j]) {
				t.Fatalf("col %d: batched %v != solo %v", j, full.Row(2)[j], one.Row(0)[j])
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scoped: %v", err)
	}
}
