// Package boo drives the BOO kernel compiler: it compiles a convolution
// through the BOO launchable, recovers the cached iree-compile command and
// re-runs it to dump one executable benchmark per dispatch.
package boo

import (
	"context"
	"errors"
	"fmt"

	"github.com/samcharles93/boo-tuner/internal/miopen"
)

// SampleArgs selects the sample tensors the launchable is called with.
type SampleArgs struct {
	Device string
	Seed   int64
}

// DefaultSampleArgs matches the torch device name BOO expects and keeps
// sample inputs reproducible across runs.
var DefaultSampleArgs = SampleArgs{Device: "cuda", Seed: 123}

// Compiler is the contract boo-tuner needs from the kernel compiler.
type Compiler interface {
	// UseCacheDir redirects the compiler artifact cache to dir while fn
	// runs and restores the previous setting afterwards, even if fn fails
	// or panics.
	UseCacheDir(dir string, fn func() error) error
	// Launch compiles and runs sig once on sample inputs, leaving one
	// operation directory in the current cache.
	Launch(ctx context.Context, sig miopen.Signature, sample SampleArgs) error
	// Run executes a recovered compile command.
	Run(ctx context.Context, argv []string) error
}

// ExitStatusError reports a command that ran and exited non-zero.
type ExitStatusError struct {
	Command string
	Code    int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// IsExitStatus reports whether err is (or wraps) an ExitStatusError, as
// opposed to a command that could not be started at all.
func IsExitStatus(err error) bool {
	var ee *ExitStatusError
	return errors.As(err, &ee)
}
