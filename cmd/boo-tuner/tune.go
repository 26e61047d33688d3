package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/boo-tuner/internal/autotune"
	"github.com/samcharles93/boo-tuner/internal/batch"
	"github.com/samcharles93/boo-tuner/internal/boo"
	"github.com/samcharles93/boo-tuner/internal/flock"
	"github.com/samcharles93/boo-tuner/internal/logger"
	"github.com/samcharles93/boo-tuner/internal/miopen"
	"github.com/samcharles93/boo-tuner/internal/tuner"
)

func runTune(ctx context.Context, cmd *cli.Command, o *tuneOptions) error {
	applyTuneConfig(cmd, loadedConfig, o)
	log := logger.FromContext(ctx)

	var fileArgs [][]string
	if o.commandsFile != "" {
		var err error
		fileArgs, err = batch.ReadFile(o.commandsFile)
		if err != nil {
			return cli.Exit(fmt.Sprintf("error: %v", err), 1)
		}
	}
	configs := batch.Configurations(fileArgs, cmd.Args().Slice())
	log.Debug("configurations loaded", "count", len(configs), "file", o.commandsFile)

	if !o.noLock {
		lock, err := flock.Acquire(flock.PathFor(o.outputSpec))
		if err != nil {
			if errors.Is(err, flock.ErrLocked) {
				return cli.Exit(fmt.Sprintf("error: %s is being tuned by another process (use --no-lock to override)", o.outputSpec), 1)
			}
			return cli.Exit(fmt.Sprintf("error: lock output spec: %v", err), 1)
		}
		defer func() { _ = lock.Release() }()
	}

	t, err := tuner.NewExecTuner(o.tunerCommand)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	t.Stdout, t.Stderr = os.Stdout, os.Stderr

	r := &autotune.Runner{
		Compiler: &boo.ExecCompiler{
			Launcher: o.launcher,
			Python:   o.python,
			Stdout:   os.Stdout,
			Stderr:   os.Stderr,
			Log:      log.WithGroup("boo"),
		},
		Tuner: t,
		Options: autotune.Options{
			OutputSpec:         o.outputSpec,
			StarterSpec:        o.starterSpec,
			NumCandidates:      o.numCandidates,
			Devices:            o.devices,
			TmpDir:             o.tmpDir,
			CheckCompileStatus: o.checkCompileStatus,
		},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Log:    log,
	}

	rep, runErr := r.Run(ctx, configs)
	if o.reportPath != "" {
		if err := rep.WriteFile(o.reportPath); err != nil {
			log.Error("could not write report", "path", o.reportPath, "err", err)
			if runErr == nil {
				runErr = err
			}
		} else {
			log.Debug("report written", "path", o.reportPath)
		}
	}
	log.Info("autotune finished",
		"configs", len(rep.Configs),
		"tuned", rep.Tuned(),
		"failed", rep.Failed(),
	)

	if runErr != nil {
		return exitError(runErr)
	}
	return nil
}

// exitError maps a fatal run error to a process exit code. Invalid driver
// arguments exit 2, everything else 1.
func exitError(err error) error {
	code := 1
	if errors.Is(err, miopen.ErrInvalidArgs) {
		code = 2
	}
	return cli.Exit(fmt.Sprintf("error: %v", err), code)
}
