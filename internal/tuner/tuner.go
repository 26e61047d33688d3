// Package tuner invokes the external dispatch tuner on one dumped
// benchmark at a time.
package tuner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"
)

const (
	// ModelPlaceholder fills the tuner's positional model argument, which
	// is unused when tuning a single benchmark.
	ModelPlaceholder = "model-unused"

	DispatchCandidates = 100
	CodegenPipeline    = "llvmgpu_tile_and_fuse"
	StopAfter          = "benchmark-dispatches"

	DefaultCommand = "python3 -m model_tuner"
)

// Tuner runs one tuning invocation. A returned error means the invocation
// failed; the output spec must not be trusted.
type Tuner interface {
	Tune(ctx context.Context, args []string) error
}

// Request describes one tuning invocation.
type Request struct {
	Benchmark     string
	StarterSpec   string // empty: tune from scratch
	OutputSpec    string
	Devices       string
	NumCandidates int64
}

// Args renders the tuner command line.
func (r Request) Args() []string {
	args := []string{ModelPlaceholder, r.Benchmark}
	if r.StarterSpec != "" {
		args = append(args, "--starter-td-spec", r.StarterSpec)
	}
	return append(args,
		"--output-td-spec", r.OutputSpec,
		"--devices="+r.Devices,
		"--model-tuner-num-dispatch-candidates="+strconv.Itoa(DispatchCandidates),
		"--num-candidates="+strconv.FormatInt(r.NumCandidates, 10),
		"--codegen-pipeline="+CodegenPipeline,
		"--stop-after="+StopAfter,
	)
}

// ExecTuner runs the tuner as a subprocess. A non-zero exit is a failure.
type ExecTuner struct {
	prefix []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecTuner parses command, a shell-quoted prefix placed before the
// tuner args. Empty means DefaultCommand.
func NewExecTuner(command string) (*ExecTuner, error) {
	if command == "" {
		command = DefaultCommand
	}
	prefix, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("tuner: parse command: %w", err)
	}
	if len(prefix) == 0 {
		return nil, errors.New("tuner: empty command")
	}
	return &ExecTuner{prefix: prefix}, nil
}

// Command is the full argv Tune runs for args.
func (t *ExecTuner) Command(args []string) []string {
	argv := make([]string, 0, len(t.prefix)+len(args))
	argv = append(argv, t.prefix...)
	return append(argv, args...)
}

func (t *ExecTuner) Tune(ctx context.Context, args []string) error {
	argv := t.Command(args)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), t.Env...)
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("tuner: %s: %w", shellquote.Join(argv[0]), err)
	}
	return nil
}
