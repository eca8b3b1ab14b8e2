// Package toy provides a minimal language model for exercising the
// dispatch-routed kernels at decode granularity. It is deliberately
// simplistic: no attention, no layers, just an embedding mix-in and a
// vocab projection. That is enough to reproduce the failure mode the
// invariant kernels fix, because the projection is a batched matmul whose
// row count tracks how many sequences are decoded together.
package toy

import (
	"fmt"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/tensor"
)

// Model holds the toy weights: an embedding matrix [Vocab x Hidden], a
// projection [Hidden x Vocab] and a bias [Vocab].
type Model struct {
	Vocab  int
	Hidden int

	Emb  tensor.Mat
	W    tensor.Mat
	Bias []float32
}

// New constructs a model with the given vocabulary and hidden size,
// deterministically initialised from seed.
func New(vocab, hidden int, seed int64) *Model {
	m := &Model{
		Vocab:  vocab,
		Hidden: hidden,
		Emb:    tensor.NewMat(vocab, hidden),
		W:      tensor.NewMat(hidden, vocab),
		Bias:   make([]float32, vocab),
	}
	tensor.FillRand(&m.Emb, seed+11)
	tensor.FillRand(&m.W, seed+23)
	for i := range m.Bias {
		m.Bias[i] = float32(i%13) * 1e-4
	}
	return m
}

// Absorb folds token tok into the hidden state h. The update touches only
// this row's state, so prefill is batch-independent by construction; any
// cross-row contamination can come only from the batched projection.
func (m *Model) Absorb(h []float32, tok int) {
	if tok < 0 || tok >= m.Vocab {
		tok = ((tok % m.Vocab) + m.Vocab) % m.Vocab
	}
	e := m.Emb.Row(tok)
	for i := range h {
		h[i] = 0.5*h[i] + e[i]
	}
}

// LogProbs projects a batch of hidden states [B x Hidden] to per-row token
// log-probabilities [B x Vocab]. Both the projection and the log-softmax
// route through reg, so the active mode decides whether the result is
// batch-invariant.
func (m *Model) LogProbs(reg *dispatch.Registry, states *tensor.Mat) (tensor.Mat, error) {
	if states.C != m.Hidden {
		return tensor.Mat{}, fmt.Errorf("toy: state width %d, want %d", states.C, m.Hidden)
	}
	logits := tensor.NewMat(states.R, m.Vocab)
	if err := reg.MatMulBias(&logits, states, &m.W, m.Bias); err != nil {
		return tensor.Mat{}, fmt.Errorf("toy: projection: %w", err)
	}
	lp := tensor.NewMat(states.R, m.Vocab)
	if err := reg.LogSoftmax(&lp, &logits); err != nil {
		return tensor.Mat{}, fmt.Errorf("toy: log-softmax: %w", err)
	}
	return lp, nil
}
