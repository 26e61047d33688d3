package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/boo-tuner/internal/autotune"
	"github.com/samcharles93/boo-tuner/internal/tuner"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool
)

// tuneOptions holds the tuning loop flags.
type tuneOptions struct {
	commandsFile       string
	outputSpec         string
	starterSpec        string
	numCandidates      int64
	devices            string
	tmpDir             string
	checkCompileStatus bool
	launcher           string
	python             string
	tunerCommand       string
	reportPath         string
	noLock             bool
}

func tuneFlags(o *tuneOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "commands-file",
			Usage:       "read kernel configurations from `FILE`, one driver command per line",
			Destination: &o.commandsFile,
		},
		&cli.StringFlag{
			Name:        "output-td-spec",
			Usage:       "tuning spec written by every tuner invocation",
			Value:       autotune.DefaultOutputSpec,
			Destination: &o.outputSpec,
		},
		&cli.StringFlag{
			Name:        "starter-td-spec",
			Usage:       "tuning spec the first invocation starts from",
			Destination: &o.starterSpec,
		},
		&cli.Int64Flag{
			Name:        "num-candidates",
			Usage:       "candidates the tuner generates per dispatch",
			Value:       autotune.DefaultNumCandidates,
			Destination: &o.numCandidates,
		},
		&cli.StringFlag{
			Name:        "devices",
			Usage:       "device selector passed to the tuner",
			Value:       autotune.DefaultDevices,
			Destination: &o.devices,
		},
		&cli.StringFlag{
			Name:        "tmp-dir",
			Usage:       "fixed workspace `DIR`; wiped before each configuration and kept afterwards",
			Destination: &o.tmpDir,
		},
		&cli.BoolFlag{
			Name:        "check-compile-status",
			Usage:       "fail when the benchmark dump compile exits non-zero",
			Destination: &o.checkCompileStatus,
		},
		&cli.StringFlag{
			Name:        "launcher",
			Usage:       "BOO launch command template (placeholders: {{python}} {{script}} {{device}} {{seed}} {{cache_dir}} {{args}})",
			Destination: &o.launcher,
		},
		&cli.StringFlag{
			Name:        "python",
			Usage:       "python interpreter used by the default launcher",
			Value:       "python3",
			Destination: &o.python,
		},
		&cli.StringFlag{
			Name:        "tuner",
			Usage:       "tuner command; tuner args are appended",
			Value:       tuner.DefaultCommand,
			Destination: &o.tunerCommand,
		},
		&cli.StringFlag{
			Name:        "report",
			Usage:       "write a JSON run report to `FILE`",
			Destination: &o.reportPath,
		},
		&cli.BoolFlag{
			Name:        "no-lock",
			Usage:       "do not lock the output tuning spec",
			Destination: &o.noLock,
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "config file (default $XDG_CONFIG_HOME/boo-tuner/config.yaml)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
