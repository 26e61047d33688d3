package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/boo-tuner/internal/logger"
)

func rootCmd() *cli.Command {
	var o tuneOptions
	return &cli.Command{
		Name:      "boo-tuner",
		Usage:     "Tune BOO convolution kernels from MIOpen driver commands",
		ArgsUsage: "[DRIVER ARGS...]",
		Flags:     append(globalFlags(), tuneFlags(&o)...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configFile)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			loadedConfig = cfg
			applyLoggingConfig(cmd, cfg)

			log, err := logger.Setup(os.Stderr, logFormat, logLevel, debug)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runTune(ctx, cmd, &o)
		},
		Commands: []*cli.Command{
			signatureCmd(),
			versionCmd(),
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := rootCmd()
	if err := app.Run(ctx, splitKnownArgs(app, os.Args)); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
