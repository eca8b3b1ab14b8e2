package tensor

import (
	"errors"
	"math"
	"testing"
)

func TestSoftmax(t *testing.T) {
	x := []float32{1, 2, 3, 4}
	Softmax(x)
	var sum float64
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			t.Fatal("softmax broke ordering")
		}
	}
	for _, v := range x {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Fatalf("probabilities sum to %v", sum)
	}

	Softmax(nil) // must not panic
}

func TestDot(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	if got := Dot(a, b); got != 32 {
		t.Fatalf("Dot = %v, want 32", got)
	}
}

func TestLogSoftmaxRows(t *testing.T) {
	x := NewMat(2, 4)
	FillLinspace(&x, -1, 1)
	dst := NewMat(2, 4)
	if err := LogSoftmaxRows(&dst, &x); err != nil {
		t.Fatalf("LogSoftmaxRows: %v", err)
	}
	for i := 0; i < 2; i++ {
		var sum float64
		for _, v := range dst.Row(i) {
			sum += math.Exp(float64(v))
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Fatalf("row %d: exp sum %v", i, sum)
		}
	}

	bad := NewMat(2, 5)
	if err := LogSoftmaxRows(&bad, &x); err == nil {
		t.Fatal("expected shape error")
	}
}

func TestMeanAxes(t *testing.T) {
	x := NewMatFromData(2, 3, []float32{1, 2, 3, 4, 5, 6})

	cols, err := Mean(&x, 0)
	if err != nil {
		t.Fatalf("axis 0: %v", err)
	}
	if cols[0] != 2.5 || cols[1] != 3.5 || cols[2] != 4.5 {
		t.Fatalf("axis 0 = %v", cols)
	}

	rows, err := Mean(&x, 1)
	if err != nil {
		t.Fatalf("axis 1: %v", err)
	}
	if rows[0] != 2 || rows[1] != 5 {
		t.Fatalf("axis 1 = %v", rows)
	}

	if _, err := Mean(&x, 2); !errors.Is(err, ErrBadAxis) {
		t.Fatalf("axis 2: %v", err)
	}
	empty := NewMat(0, 3)
	if _, err := Mean(&empty, 0); !errors.Is(err, ErrEmptyAxis) {
		t.Fatalf("empty axis: %v", err)
	}
}
