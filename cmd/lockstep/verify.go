package main

import (
	"context"
	"fmt"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/tensor"
)

func verifyCmd() *cli.Command {
	var (
		m, k, n int64
		iters   int64
	)

	return &cli.Command{
		Name:  "verify",
		Usage: "Check matmul batch invariance under both routing modes",
		Flags: append(loggingFlags(),
			&cli.Int64Flag{
				Name:        "rows",
				Usage:       "batch rows of the left operand",
				Value:       2048,
				Destination: &m,
			},
			&cli.Int64Flag{
				Name:        "contraction",
				Usage:       "contraction length",
				Value:       4096,
				Destination: &k,
			},
			&cli.Int64Flag{
				Name:        "cols",
				Usage:       "output columns",
				Value:       4096,
				Destination: &n,
			},
			&cli.Int64Flag{
				Name:        "iters",
				Usage:       "iterations per mode",
				Value:       3,
				Destination: &iters,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, log := loggerContext(ctx)
			if m < 1 || k < 1 || n < 1 || iters < 1 {
				return fmt.Errorf("verify: all dimensions and iters must be positive")
			}

			a := tensor.NewMat(int(m), int(k))
			b := tensor.NewMat(int(k), int(n))
			tensor.FillLinspace(&a, -100, 100)
			tensor.FillLinspace(&b, -100, 100)

			reg := dispatch.Default()
			log.Info("verifying matmul batch invariance",
				"rows", m, "contraction", k, "cols", n, "iters", iters)

			for _, invariant := range []bool{false, true} {
				var maxDiff, minDiff float64
				minDiff = math.Inf(1)
				err := reg.Scoped(invariant, func() error {
					for i := int64(0); i < iters; i++ {
						d, err := rowZeroDiff(reg, &a, &b)
						if err != nil {
							return err
						}
						if d > maxDiff {
							maxDiff = d
						}
						if d < minDiff {
							minDiff = d
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
				mode := "standard"
				if invariant {
					mode = "invariant"
				}
				ok := maxDiff == 0
				fmt.Printf("%-9s  batch-invariant=%-5v  max-diff=%.3e  min-diff=%.3e\n",
					mode, ok, maxDiff, minDiff)
				if invariant && !ok {
					return fmt.Errorf("verify: invariant mode produced nonzero row difference %g", maxDiff)
				}
			}
			return nil
		},
	}
}

// rowZeroDiff computes row 0 of a*b once as part of the full batch and once
// alone, and returns the max absolute difference between the two results.
func rowZeroDiff(reg *dispatch.Registry, a, b *tensor.Mat) (float64, error) {
	full := tensor.NewMat(a.R, b.C)
	if err := reg.MatMul(&full, a, b); err != nil {
		return 0, err
	}
	a0 := a.RowSlice(0, 1)
	solo := tensor.NewMat(1, b.C)
	if err := reg.MatMul(&solo, &a0, b); err != nil {
		return 0, err
	}

	var maxAbs float64
	fullRow := full.Row(0)
	soloRow := solo.Row(0)
	for j := range soloRow {
		d := math.Abs(float64(fullRow[j] - soloRow[j]))
		if d > maxAbs {
			maxAbs = d
		}
	}
	return maxAbs, nil
}
