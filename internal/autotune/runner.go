// Package autotune runs the compile, dump and tune loop over a batch of
// kernel configurations.
package autotune

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/samcharles93/boo-tuner/internal/boo"
	"github.com/samcharles93/boo-tuner/internal/logger"
	"github.com/samcharles93/boo-tuner/internal/miopen"
	"github.com/samcharles93/boo-tuner/internal/report"
	"github.com/samcharles93/boo-tuner/internal/tuner"
	"github.com/samcharles93/boo-tuner/internal/workspace"
)

const (
	DefaultOutputSpec    = "tuning-spec.mlir"
	DefaultNumCandidates = 100
	DefaultDevices       = "hip://0"
)

type Options struct {
	OutputSpec    string
	StarterSpec   string
	NumCandidates int64
	Devices       string
	// TmpDir pins the workspace path. Pinned workspaces are wiped before
	// each configuration and never deleted afterwards.
	TmpDir string
	// CheckCompileStatus makes a non-zero exit of the benchmark dump
	// compile fatal. When false the exit status is only logged and a
	// failed dump shows up as zero benchmarks.
	CheckCompileStatus bool
	Sample             boo.SampleArgs
}

func (o Options) withDefaults() Options {
	if o.OutputSpec == "" {
		o.OutputSpec = DefaultOutputSpec
	}
	if o.NumCandidates == 0 {
		o.NumCandidates = DefaultNumCandidates
	}
	if o.Devices == "" {
		o.Devices = DefaultDevices
	}
	if o.Sample == (boo.SampleArgs{}) {
		o.Sample = boo.DefaultSampleArgs
	}
	return o
}

func (o Options) reportOptions() report.Options {
	return report.Options{
		OutputSpec:         o.OutputSpec,
		StarterSpec:        o.StarterSpec,
		NumCandidates:      o.NumCandidates,
		Devices:            o.Devices,
		TmpDir:             o.TmpDir,
		CheckCompileStatus: o.CheckCompileStatus,
	}
}

// Runner owns the collaborators for one run.
type Runner struct {
	Compiler boo.Compiler
	Tuner    tuner.Tuner
	Options  Options

	// Stdout receives progress lines, Stderr tuner failures. Nil discards.
	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger
}

// ConfigError attaches the 1-based configuration index to a fatal error.
type ConfigError struct {
	Index int
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %d: %v", e.Index, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Run processes configs in order. The starter spec is threaded through
// every tuning invocation: each success makes the output spec the starter
// of the next invocation, across benchmarks and configurations.
//
// A failed tuning invocation is reported and skipped. Any other error stops
// the run; the report still describes everything done up to that point.
func (r *Runner) Run(ctx context.Context, configs [][]string) (*report.Report, error) {
	opts := r.Options.withDefaults()
	rep := report.New(opts.reportOptions())

	starter := opts.StarterSpec
	for i, args := range configs {
		if err := ctx.Err(); err != nil {
			rep.Finish(err)
			return rep, err
		}
		var err error
		starter, err = r.runConfiguration(ctx, opts, rep, i+1, len(configs), args, starter)
		if err != nil {
			err = &ConfigError{Index: i + 1, Err: err}
			rep.Finish(err)
			return rep, err
		}
	}
	rep.Finish(nil)
	return rep, nil
}

func (r *Runner) runConfiguration(ctx context.Context, opts Options, rep *report.Report, idx, total int, args []string, starter string) (string, error) {
	r.printf(">>> (%d/%d) %s\n", idx, total, shellquote.Join(args...))

	rep.Configs = append(rep.Configs, report.Configuration{
		Index:      idx,
		Args:       args,
		Benchmarks: []report.Benchmark{},
	})
	entry := &rep.Configs[len(rep.Configs)-1]

	sig, err := miopen.Parse(args)
	if err != nil {
		return starter, err
	}
	entry.Signature = sig.Name()
	log := r.log().With("config", idx, "signature", sig.Name())

	ws, err := workspace.Create(opts.TmpDir)
	if err != nil {
		return starter, err
	}
	entry.Workspace = ws.Dir()
	entry.Retained = true
	log.Debug("workspace ready", "dir", ws.Dir(), "pinned", ws.Pinned())

	err = r.Compiler.UseCacheDir(ws.CacheDir(), func() error {
		return r.Compiler.Launch(ctx, sig, opts.Sample)
	})
	if err != nil {
		return starter, err
	}

	cmdPath, command, err := boo.FindCompileCommand(ws.CacheDir())
	if err != nil {
		return starter, err
	}
	log.Debug("recovered compile command", "path", cmdPath)

	dumpArgs, err := boo.DumpArgs(command, ws.BenchDir())
	if err != nil {
		return starter, fmt.Errorf("%s: %w", cmdPath, err)
	}
	r.printf("> %s\n", shellquote.Join(dumpArgs...))
	if err := r.Compiler.Run(ctx, dumpArgs); err != nil {
		var ee *boo.ExitStatusError
		if !errors.As(err, &ee) || opts.CheckCompileStatus {
			return starter, fmt.Errorf("dump benchmarks: %w", err)
		}
		entry.DumpStatus = ee.Code
		log.Warn("benchmark dump compile exited non-zero, continuing", "status", ee.Code)
	}

	benches, err := ws.Benchmarks()
	if err != nil {
		return starter, err
	}
	if len(benches) == 0 {
		log.Warn("no benchmarks dumped", "dir", ws.BenchDir())
	}

	for _, bench := range benches {
		if err := ctx.Err(); err != nil {
			return starter, err
		}
		var res report.Benchmark
		starter, res = r.tune(ctx, opts, log, bench, starter)
		entry.Benchmarks = append(entry.Benchmarks, res)
		if res.Status == report.StatusFailed {
			ws.Retain()
		}
	}

	entry.Retained = !ws.ShouldCleanup()
	if ws.ShouldCleanup() {
		if err := ws.Cleanup(); err != nil {
			log.Warn("could not remove workspace", "err", err)
			entry.Retained = true
		}
	} else {
		log.Info("workspace kept", "dir", ws.Dir())
	}
	return starter, nil
}

// tune runs one invocation and returns the starter for the next one.
func (r *Runner) tune(ctx context.Context, opts Options, log logger.Logger, bench, starter string) (string, report.Benchmark) {
	req := tuner.Request{
		Benchmark:     bench,
		StarterSpec:   starter,
		OutputSpec:    opts.OutputSpec,
		Devices:       opts.Devices,
		NumCandidates: opts.NumCandidates,
	}
	args := req.Args()
	r.printf("> %s\n", shellquote.Join(args...))

	res := report.Benchmark{
		Path:        bench,
		StarterSpec: starter,
		OutputSpec:  opts.OutputSpec,
	}
	start := time.Now()
	err := r.Tuner.Tune(ctx, args)
	res.Duration = time.Since(start)
	if err != nil {
		res.Status = report.StatusFailed
		res.Error = err.Error()
		r.eprintf("tuning %s failed: %+v\n", bench, err)
		log.Error("tuning failed, keeping workspace", "bench", bench, "err", err)
		return starter, res
	}
	res.Status = report.StatusSucceeded
	log.Info("tuned", "bench", bench, "took", res.Duration)
	return opts.OutputSpec, res
}

func (r *Runner) log() logger.Logger {
	if r.Log == nil {
		return logger.Discard()
	}
	return r.Log
}

func (r *Runner) printf(format string, args ...any) {
	if r.Stdout != nil {
		_, _ = fmt.Fprintf(r.Stdout, format, args...)
	}
}

func (r *Runner) eprintf(format string, args ...any) {
	if r.Stderr != nil {
		_, _ = fmt.Fprintf(r.Stderr, format, args...)
	}
}
