package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/boo-tuner/internal/miopen"
)

type setFlags map[string]bool

func (s setFlags) IsSet(name string) bool { return s[name] }

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
output_td_spec: out.mlir
num_candidates: 5000
check_compile_status: true
tuner: python3 -m model_tuner --verbose
log_level: debug
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.OutputTDSpec != "out.mlir" || cfg.Tuner != "python3 -m model_tuner --verbose" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.NumCandidates == nil || *cfg.NumCandidates != 5000 {
		t.Fatalf("num_candidates = %v", cfg.NumCandidates)
	}
	if cfg.CheckCompileStatus == nil || !*cfg.CheckCompileStatus {
		t.Fatalf("check_compile_status = %v", cfg.CheckCompileStatus)
	}
	if cfg.StarterTDSpec != "" || cfg.Devices != "" {
		t.Fatalf("unset fields should stay empty: %+v", cfg)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadConfigDefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	dir := filepath.Join(home, "boo-tuner")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("devices: hip://3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Devices != "hip://3" {
		t.Fatalf("devices = %q", cfg.Devices)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "num_candidates: [not, a, number]\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyTuneConfig(t *testing.T) {
	n := int64(42)
	check := true
	cfg := Config{
		OutputTDSpec:       "cfg-out.mlir",
		StarterTDSpec:      "cfg-start.mlir",
		NumCandidates:      &n,
		Devices:            "hip://2",
		CheckCompileStatus: &check,
		Tuner:              "my-tuner",
	}
	o := tuneOptions{
		outputSpec:    "flag-out.mlir",
		numCandidates: 100,
		devices:       "hip://0",
		tunerCommand:  "python3 -m model_tuner",
	}

	applyTuneConfig(setFlags{"output-td-spec": true}, cfg, &o)

	if o.outputSpec != "flag-out.mlir" {
		t.Fatalf("explicit flag overridden: %q", o.outputSpec)
	}
	if o.starterSpec != "cfg-start.mlir" || o.numCandidates != 42 || o.devices != "hip://2" {
		t.Fatalf("config not applied: %+v", o)
	}
	if !o.checkCompileStatus || o.tunerCommand != "my-tuner" {
		t.Fatalf("config not applied: %+v", o)
	}
	if o.tmpDir != "" || o.launcher != "" {
		t.Fatalf("empty config values should not apply: %+v", o)
	}
}

func TestApplyLoggingConfig(t *testing.T) {
	prevLevel, prevFormat := logLevel, logFormat
	t.Cleanup(func() { logLevel, logFormat = prevLevel, prevFormat })

	logLevel, logFormat = "info", "pretty"
	applyLoggingConfig(setFlags{"log-level": true}, Config{LogLevel: "debug", LogFormat: "json"})
	if logLevel != "info" || logFormat != "json" {
		t.Fatalf("got level=%q format=%q", logLevel, logFormat)
	}
}

func TestExitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid args", func() error { _, err := miopen.Parse([]string{"-n", "0"}); return err }(), 2},
		{"other", os.ErrPermission, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec, ok := exitError(tt.err).(cli.ExitCoder)
			if !ok {
				t.Fatal("expected cli.ExitCoder")
			}
			if ec.ExitCode() != tt.code {
				t.Fatalf("exit code = %d, want %d", ec.ExitCode(), tt.code)
			}
		})
	}
}
