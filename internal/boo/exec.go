package boo

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/valyala/fasttemplate"

	"github.com/samcharles93/boo-tuner/internal/logger"
	"github.com/samcharles93/boo-tuner/internal/miopen"
)

// CacheDirEnv is how the BOO runtime is told where its cache lives.
const CacheDirEnv = "BOO_CACHE_DIR"

// DefaultLauncher runs the embedded launch shim with the configured Python.
//
// Placeholders: {{python}}, {{script}}, {{device}}, {{seed}}, {{cache_dir}}.
// A word that is exactly {{args}} expands to the signature's driver args.
const DefaultLauncher = "{{python}} -c {{script}} --device {{device}} --seed {{seed}} {{args}}"

const argsPlaceholder = "{{args}}"

//go:embed launch.py
var launchScript string

// ExecCompiler runs BOO as a subprocess.
type ExecCompiler struct {
	// Launcher is a shell-quoted command template. Empty means DefaultLauncher.
	Launcher string
	// Python is substituted for {{python}}. Empty means "python3".
	Python string
	// Env is appended to the inherited environment of every child.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger

	cacheDir string
}

func (c *ExecCompiler) log() logger.Logger {
	if c.Log == nil {
		return logger.Discard()
	}
	return c.Log
}

func (c *ExecCompiler) UseCacheDir(dir string, fn func() error) error {
	prev := c.cacheDir
	c.cacheDir = dir
	defer func() { c.cacheDir = prev }()
	return fn()
}

// LaunchCommand expands the launcher template for sig.
func (c *ExecCompiler) LaunchCommand(sig miopen.Signature, sample SampleArgs) ([]string, error) {
	tmpl := c.Launcher
	if tmpl == "" {
		tmpl = DefaultLauncher
	}
	words, err := shellquote.Split(tmpl)
	if err != nil {
		return nil, fmt.Errorf("boo: parse launcher: %w", err)
	}
	if len(words) == 0 {
		return nil, errors.New("boo: empty launcher")
	}

	python := c.Python
	if python == "" {
		python = "python3"
	}
	vars := map[string]any{
		"python":    python,
		"script":    launchScript,
		"device":    sample.Device,
		"seed":      strconv.FormatInt(sample.Seed, 10),
		"cache_dir": c.cacheDir,
	}

	argv := make([]string, 0, len(words)+32)
	for _, w := range words {
		if w == argsPlaceholder {
			argv = append(argv, sig.DriverArgs()...)
			continue
		}
		argv = append(argv, fasttemplate.ExecuteStringStd(w, "{{", "}}", vars))
	}
	return argv, nil
}

func (c *ExecCompiler) Launch(ctx context.Context, sig miopen.Signature, sample SampleArgs) error {
	argv, err := c.LaunchCommand(sig, sample)
	if err != nil {
		return err
	}
	c.log().Debug("launching boo", "signature", sig.Name(), "cache_dir", c.cacheDir)
	if err := c.exec(ctx, argv); err != nil {
		return fmt.Errorf("boo: launch %s: %w", sig.Name(), err)
	}
	return nil
}

func (c *ExecCompiler) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("boo: empty command")
	}
	return c.exec(ctx, argv)
}

func (c *ExecCompiler) exec(ctx context.Context, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), c.Env...)
	if c.cacheDir != "" {
		cmd.Env = append(cmd.Env, CacheDirEnv+"="+c.cacheDir)
	}
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &ExitStatusError{Command: argv[0], Code: ee.ExitCode()}
	}
	return err
}
