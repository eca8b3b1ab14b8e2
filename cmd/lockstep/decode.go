package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/inference"
	"github.com/samcharles93/lockstep/internal/toy"
)

func decodeCmd() *cli.Command {
	var (
		vocab  int64
		hidden int64
		seed   int64
		steps  int64
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Greedy-decode one prompt solo and packed in a batch, compare token sequences",
		Flags: append(loggingFlags(),
			&cli.Int64Flag{
				Name:        "vocab",
				Usage:       "toy model vocabulary size",
				Value:       512,
				Destination: &vocab,
			},
			&cli.Int64Flag{
				Name:        "hidden",
				Usage:       "toy model hidden size",
				Value:       1024,
				Destination: &hidden,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "toy model weight seed",
				Value:       42,
				Destination: &seed,
			},
			&cli.Int64Flag{
				Name:        "steps",
				Usage:       "tokens to generate",
				Value:       64,
				Destination: &steps,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, log := loggerContext(ctx)
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg, &vocab, &hidden, &seed)

			model := toy.New(int(vocab), int(hidden), seed)
			reg := dispatch.Default()
			engine := inference.NewEngine(model, reg)

			prompt := []int{1, 7, 42, 99, 3}
			padding := [][]int{
				{5, 5, 5},
				{11, 23, 31, 47, 61, 77, 101},
				{2},
			}
			batch := append([][]int{prompt}, padding...)

			for _, invariant := range []bool{false, true} {
				err := reg.Scoped(invariant, func() error {
					solo, _, err := engine.Decode(ctx, prompt, int(steps))
					if err != nil {
						return err
					}
					batched, _, err := engine.DecodeBatch(ctx, batch, int(steps))
					if err != nil {
						return err
					}
					match := slices.Equal(solo, batched[0])
					mode := "standard"
					if invariant {
						mode = "invariant"
					}
					fmt.Printf("%-9s  solo==batched: %v\n", mode, match)
					if invariant && !match {
						return fmt.Errorf("decode: invariant mode diverged between solo and batched decode")
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			log.Info("decode comparison complete", "steps", steps, "batch", len(batch))
			return nil
		},
	}
}
