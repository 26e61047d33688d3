package boo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/samcharles93/boo-tuner/internal/miopen"
)

func mkfile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFindCompileCommand(t *testing.T) {
	cache := t.TempDir()
	mkfile(t, filepath.Join(cache, "conv_op", "compile_command.txt"), "  iree-compile in.mlir -o out.vmfb\n")
	mkfile(t, filepath.Join(cache, "conv_op", "module.vmfb"), "bin")
	mkfile(t, filepath.Join(cache, "stray.lock"), "")

	path, command, err := FindCompileCommand(cache)
	if err != nil {
		t.Fatalf("FindCompileCommand: %v", err)
	}
	if want := filepath.Join(cache, "conv_op", "compile_command.txt"); path != want {
		t.Fatalf("unexpected path %s, want %s", path, want)
	}
	if command != "iree-compile in.mlir -o out.vmfb" {
		t.Fatalf("expected trimmed command, got %q", command)
	}
}

func TestFindCompileCommandLayoutErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, cache string)
		kind  LayoutKind
	}{
		{
			name:  "missing cache dir",
			setup: func(t *testing.T, cache string) { _ = os.RemoveAll(cache) },
			kind:  MissingOpDir,
		},
		{
			name:  "empty cache",
			setup: func(t *testing.T, cache string) {},
			kind:  MissingOpDir,
		},
		{
			name: "two op dirs",
			setup: func(t *testing.T, cache string) {
				mkfile(t, filepath.Join(cache, "a", "compile_command"), "x")
				mkfile(t, filepath.Join(cache, "b", "compile_command"), "x")
			},
			kind: MultipleOpDirs,
		},
		{
			name: "no command file",
			setup: func(t *testing.T, cache string) {
				mkfile(t, filepath.Join(cache, "a", "module.vmfb"), "x")
				if err := os.MkdirAll(filepath.Join(cache, "a", "compile_command_dir"), 0o755); err != nil {
					t.Fatal(err)
				}
			},
			kind: MissingCommand,
		},
		{
			name: "two command files",
			setup: func(t *testing.T, cache string) {
				mkfile(t, filepath.Join(cache, "a", "compile_command_0"), "x")
				mkfile(t, filepath.Join(cache, "a", "compile_command_1"), "y")
			},
			kind: MultipleCommands,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cache := filepath.Join(t.TempDir(), "boo_cache")
			if err := os.MkdirAll(cache, 0o755); err != nil {
				t.Fatal(err)
			}
			tc.setup(t, cache)

			_, _, err := FindCompileCommand(cache)
			if !errors.Is(err, ErrUnexpectedCacheLayout) {
				t.Fatalf("expected ErrUnexpectedCacheLayout, got %v", err)
			}
			var le *LayoutError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LayoutError, got %T", err)
			}
			if le.Kind != tc.kind {
				t.Fatalf("expected kind %v, got %v", tc.kind, le.Kind)
			}
			if !strings.Contains(err.Error(), tc.kind.String()) {
				t.Fatalf("error %q does not describe %q", err, tc.kind)
			}
		})
	}
}

func TestDumpArgs(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{
			name:    "appends dump flags",
			command: "iree-compile in.mlir --iree-hip-target=gfx942",
			want: []string{
				"iree-compile", "in.mlir", "--iree-hip-target=gfx942",
				"--iree-config-add-tuner-attributes",
				"--iree-hal-dump-executable-benchmarks-to", "/ws/bench",
				"-o", "/dev/null",
			},
		},
		{
			name:    "strips tuning spec with equals",
			command: "iree-compile in.mlir --iree-codegen-tuning-spec-path=/specs/old.mlir -O3",
			want: []string{
				"iree-compile", "in.mlir", "-O3",
				"--iree-config-add-tuner-attributes",
				"--iree-hal-dump-executable-benchmarks-to", "/ws/bench",
				"-o", "/dev/null",
			},
		},
		{
			name:    "strips tuning spec with separate value",
			command: "iree-compile --iree-codegen-tuning-spec-path '/my specs/a.mlir' in.mlir",
			want: []string{
				"iree-compile", "in.mlir",
				"--iree-config-add-tuner-attributes",
				"--iree-hal-dump-executable-benchmarks-to", "/ws/bench",
				"-o", "/dev/null",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DumpArgs(tc.command, "/ws/bench")
			if err != nil {
				t.Fatalf("DumpArgs: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("DumpArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := DumpArgs("   ", "/ws/bench"); err == nil {
		t.Fatal("expected error for empty command")
	}
	if _, err := DumpArgs("iree-compile 'oops", "/ws/bench"); err == nil {
		t.Fatal("expected error for unbalanced quote")
	}
}

func TestUseCacheDirRestores(t *testing.T) {
	c := &ExecCompiler{}

	err := c.UseCacheDir("/outer", func() error {
		if c.cacheDir != "/outer" {
			t.Fatalf("expected /outer inside scope, got %q", c.cacheDir)
		}
		return c.UseCacheDir("/inner", func() error {
			if c.cacheDir != "/inner" {
				t.Fatalf("expected /inner inside nested scope, got %q", c.cacheDir)
			}
			return errors.New("boom")
		})
	})
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected body error to propagate, got %v", err)
	}
	if c.cacheDir != "" {
		t.Fatalf("expected cache dir restored, got %q", c.cacheDir)
	}

	func() {
		defer func() { _ = recover() }()
		_ = c.UseCacheDir("/panics", func() error { panic("launch blew up") })
	}()
	if c.cacheDir != "" {
		t.Fatalf("expected cache dir restored after panic, got %q", c.cacheDir)
	}
}

func testSignature(t *testing.T) miopen.Signature {
	t.Helper()
	sig, err := miopen.Parse(strings.Fields("convbfp16 -n 6 -c 112 -H 1 -W 1 -k 448 -y 1 -x 1"))
	if err != nil {
		t.Fatalf("parse signature: %v", err)
	}
	return sig
}

func TestLaunchCommand(t *testing.T) {
	sig := testSignature(t)

	t.Run("default launcher", func(t *testing.T) {
		c := &ExecCompiler{Python: "/opt/venv/bin/python"}
		argv, err := c.LaunchCommand(sig, DefaultSampleArgs)
		if err != nil {
			t.Fatalf("LaunchCommand: %v", err)
		}
		want := append([]string{"/opt/venv/bin/python", "-c", launchScript, "--device", "cuda", "--seed", "123"}, sig.DriverArgs()...)
		if diff := cmp.Diff(want, argv); diff != "" {
			t.Fatalf("argv mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("custom template", func(t *testing.T) {
		c := &ExecCompiler{Launcher: "launch --cache={{cache_dir}} --on {{device}} {{args}} --unknown={{nope}}"}
		var argv []string
		err := c.UseCacheDir("/ws/boo_cache", func() error {
			var err error
			argv, err = c.LaunchCommand(sig, SampleArgs{Device: "cuda:1", Seed: 7})
			return err
		})
		if err != nil {
			t.Fatalf("LaunchCommand: %v", err)
		}
		want := []string{"launch", "--cache=/ws/boo_cache", "--on", "cuda:1"}
		want = append(want, sig.DriverArgs()...)
		want = append(want, "--unknown={{nope}}")
		if diff := cmp.Diff(want, argv); diff != "" {
			t.Fatalf("argv mismatch (-want +got):\n%s", diff)
		}
	})
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestExecLaunchUsesCacheEnv(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	script := writeScript(t, `mkdir -p "$BOO_CACHE_DIR/op" && echo "iree-compile $*" > "$BOO_CACHE_DIR/op/compile_command"`+"\n")
	cache := filepath.Join(t.TempDir(), "boo_cache")

	c := &ExecCompiler{Launcher: script + " {{args}}"}
	err := c.UseCacheDir(cache, func() error {
		return c.Launch(context.Background(), testSignature(t), DefaultSampleArgs)
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	_, command, err := FindCompileCommand(cache)
	if err != nil {
		t.Fatalf("FindCompileCommand: %v", err)
	}
	if !strings.HasPrefix(command, "iree-compile convbfp16 -n 6") {
		t.Fatalf("unexpected command %q", command)
	}
}

func TestExecRunExitStatus(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("requires /bin/sh")
	}
	c := &ExecCompiler{}

	if err := c.Run(context.Background(), []string{"/bin/sh", "-c", "exit 0"}); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	err := c.Run(context.Background(), []string{"/bin/sh", "-c", "exit 3"})
	var ee *ExitStatusError
	if !errors.As(err, &ee) || ee.Code != 3 {
		t.Fatalf("expected exit status 3, got %v", err)
	}
	if !IsExitStatus(err) {
		t.Fatal("IsExitStatus should report exit status errors")
	}

	err = c.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing-binary")})
	if err == nil || IsExitStatus(err) {
		t.Fatalf("expected start failure distinct from exit status, got %v", err)
	}

	if err := c.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty argv")
	}
}
