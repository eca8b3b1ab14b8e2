// Package inference runs greedy decode over the toy model, solo or
// batched, with all tensor ops routed through a dispatch registry.
package inference

import (
	"context"
	"fmt"
	"time"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/logits"
	"github.com/samcharles93/lockstep/internal/tensor"
	"github.com/samcharles93/lockstep/internal/toy"
)

// Stats reports throughput for a decode call.
type Stats struct {
	TokensGenerated int
	Duration        time.Duration
	TPS             float64
}

// Engine decodes token sequences with the toy model. The registry decides
// whether the underlying ops run batch-invariant.
type Engine struct {
	Model    *toy.Model
	Registry *dispatch.Registry
}

// NewEngine builds an engine over model using reg for op routing.
func NewEngine(model *toy.Model, reg *dispatch.Registry) *Engine {
	return &Engine{Model: model, Registry: reg}
}

// Decode greedy-decodes steps tokens after the given prompt.
func (e *Engine) Decode(ctx context.Context, prompt []int, steps int) ([]int, Stats, error) {
	outs, stats, err := e.DecodeBatch(ctx, [][]int{prompt}, steps)
	if err != nil {
		return nil, stats, err
	}
	return outs[0], stats, nil
}

// DecodeBatch greedy-decodes steps tokens for every prompt in the batch.
// Prompts may have different lengths; prefill folds each prompt into its
// own row state, then every step projects all live rows as one batched
// matmul. Returned slices hold only the generated tokens.
func (e *Engine) DecodeBatch(ctx context.Context, prompts [][]int, steps int) ([][]int, Stats, error) {
	var stats Stats
	if len(prompts) == 0 {
		return nil, stats, nil
	}
	if steps < 0 {
		return nil, stats, fmt.Errorf("inference: negative step count %d", steps)
	}

	b := len(prompts)
	states := tensor.NewMat(b, e.Model.Hidden)
	for r, prompt := range prompts {
		row := states.Row(r)
		for _, tok := range prompt {
			e.Model.Absorb(row, tok)
		}
	}

	out := make([][]int, b)
	for r := range out {
		out[r] = make([]int, 0, steps)
	}

	start := time.Now()
	for s := 0; s < steps; s++ {
		if err := ctx.Err(); err != nil {
			return out, stats, err
		}
		lp, err := e.Model.LogProbs(e.Registry, &states)
		if err != nil {
			return out, stats, fmt.Errorf("inference: step %d: %w", s, err)
		}
		for r := 0; r < b; r++ {
			next := logits.Argmax(lp.Row(r))
			out[r] = append(out[r], next)
			e.Model.Absorb(states.Row(r), next)
			stats.TokensGenerated++
		}
	}

	stats.Duration = time.Since(start)
	if stats.Duration.Seconds() > 0 {
		stats.TPS = float64(stats.TokensGenerated) / stats.Duration.Seconds()
	}
	return out, stats, nil
}
