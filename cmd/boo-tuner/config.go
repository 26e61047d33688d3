package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the boo-tuner configuration file
// (~/.config/boo-tuner/config.yaml). Values apply only when the matching
// flag was not given; pointer fields distinguish "not set" from zero.
type Config struct {
	OutputTDSpec       string `yaml:"output_td_spec"`
	StarterTDSpec      string `yaml:"starter_td_spec"`
	NumCandidates      *int64 `yaml:"num_candidates"`
	Devices            string `yaml:"devices"`
	TmpDir             string `yaml:"tmp_dir"`
	CheckCompileStatus *bool  `yaml:"check_compile_status"`

	// Collaborators
	Launcher string `yaml:"launcher"`
	Python   string `yaml:"python"`
	Tuner    string `yaml:"tuner"`

	Report    string `yaml:"report"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// flagSetter is satisfied by *cli.Command.
type flagSetter interface {
	IsSet(name string) bool
}

var _ flagSetter = (*cli.Command)(nil)

// loadedConfig is filled by the root Before hook.
var loadedConfig Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "boo-tuner", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing default file yields a zero Config; a missing
// explicit file or malformed YAML is an error.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags.
func applyLoggingConfig(c flagSetter, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyTuneConfig applies config file defaults to the tuning flags.
func applyTuneConfig(c flagSetter, cfg Config, o *tuneOptions) {
	if cfg.OutputTDSpec != "" && !c.IsSet("output-td-spec") {
		o.outputSpec = cfg.OutputTDSpec
	}
	if cfg.StarterTDSpec != "" && !c.IsSet("starter-td-spec") {
		o.starterSpec = cfg.StarterTDSpec
	}
	if cfg.NumCandidates != nil && !c.IsSet("num-candidates") {
		o.numCandidates = *cfg.NumCandidates
	}
	if cfg.Devices != "" && !c.IsSet("devices") {
		o.devices = cfg.Devices
	}
	if cfg.TmpDir != "" && !c.IsSet("tmp-dir") {
		o.tmpDir = cfg.TmpDir
	}
	if cfg.CheckCompileStatus != nil && !c.IsSet("check-compile-status") {
		o.checkCompileStatus = *cfg.CheckCompileStatus
	}
	if cfg.Launcher != "" && !c.IsSet("launcher") {
		o.launcher = cfg.Launcher
	}
	if cfg.Python != "" && !c.IsSet("python") {
		o.python = cfg.Python
	}
	if cfg.Tuner != "" && !c.IsSet("tuner") {
		o.tunerCommand = cfg.Tuner
	}
	if cfg.Report != "" && !c.IsSet("report") {
		o.reportPath = cfg.Report
	}
}
