package boo

import (
	"errors"
	"strings"

	"github.com/kballard/go-shellquote"
)

const (
	// TuningSpecFlag must not reach the dump compile: a tuning spec in
	// effect stops --iree-config-add-tuner-attributes from annotating the
	// dispatches.
	TuningSpecFlag      = "--iree-codegen-tuning-spec-path"
	TunerAttributesFlag = "--iree-config-add-tuner-attributes"
	DumpBenchmarksFlag  = "--iree-hal-dump-executable-benchmarks-to"
	discardOutputPath   = "/dev/null"
	discardOutputFlag   = "-o"
)

// DumpArgs rewrites a recovered compile command so that it annotates the
// dispatches for the tuner, dumps one benchmark per dispatch into benchDir
// and throws the compiled module away.
func DumpArgs(command, benchDir string) ([]string, error) {
	words, err := shellquote.Split(command)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.New("boo: empty compile command")
	}

	args := make([]string, 0, len(words)+5)
	for i := 0; i < len(words); i++ {
		w := words[i]
		switch {
		case w == TuningSpecFlag:
			i++ // value is the next word
		case strings.HasPrefix(w, TuningSpecFlag+"="):
		default:
			args = append(args, w)
		}
	}
	args = append(args,
		TunerAttributesFlag,
		DumpBenchmarksFlag, benchDir,
		discardOutputFlag, discardOutputPath,
	)
	return args, nil
}
