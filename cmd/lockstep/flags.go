package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lockstep/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

// envInvariant, when set non-empty, pins batch-invariant routing for the
// whole process before any request is served.
const envInvariant = "LOCKSTEP_INVARIANT"

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
	}
}

func newLogger() logger.Logger {
	level := logger.ParseLevel(logLevel)
	switch logFormat {
	case "json":
		return logger.JSON(os.Stderr, level)
	case "text":
		return logger.Text(os.Stderr, level)
	case "pretty":
		return logger.Pretty(os.Stderr, level)
	default:
		return logger.Auto(os.Stderr, level)
	}
}

func loggerContext(ctx context.Context) (context.Context, logger.Logger) {
	log := newLogger()
	return logger.WithContext(ctx, log), log
}
