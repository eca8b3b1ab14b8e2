package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/samcharles93/lockstep/internal/api"
	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/inference"
	"github.com/samcharles93/lockstep/internal/toy"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		vocab       int64
		hidden      int64
		seed        int64
		rps         float64
		invariant   bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the completion API over the toy model",
		Flags: append(loggingFlags(),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
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
			&cli.FloatFlag{
				Name:        "rps",
				Usage:       "request rate limit per second",
				Value:       50,
				Destination: &rps,
			},
			&cli.BoolFlag{
				Name:        "invariant",
				Usage:       "pin batch-invariant routing for the whole process",
				Destination: &invariant,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx, log := loggerContext(ctx)
			cfg := LoadConfig()
			applyCommonConfig(cmd, cfg, &vocab, &hidden, &seed)
			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
			}

			reg := dispatch.Default()
			if invariant || invariantRequested(cfg) {
				// Pinned before the listener starts: every request this
				// worker ever serves runs on the invariant kernels.
				reg.Enable(true)
				log.Info("batch-invariant mode pinned")
			}

			model := toy.New(int(vocab), int(hidden), seed)
			engine := inference.NewEngine(model, reg)
			server := api.NewServer(engine, reg, log)

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			e.Use(api.RateLimit(rate.Limit(rps), int(rps)))
			server.Register(e)

			log.Info("starting server", "address", addr, "invariant", reg.IsEnabled())
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
