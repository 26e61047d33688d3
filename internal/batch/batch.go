// Package batch reads kernel-shape configurations from a commands file.
//
// A commands file holds one shell-quoted MIOpen driver command per line.
// Lines starting with '#' are comments.
package batch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Read splits every non-comment line of r into an argument list.
// A blank line yields an empty argument list. The result is never nil, so a
// file holding only comments produces zero configurations.
func Read(r io.Reader) ([][]string, error) {
	out := [][]string{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if strings.HasPrefix(line, "#") {
			continue
		}
		args, err := shellquote.Split(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if args == nil {
			args = []string{}
		}
		out = append(out, args)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadFile is Read on the named file.
func ReadFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open commands file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cmds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cmds, nil
}

// Configurations appends extra to every file command. Without a commands
// file (fileArgs == nil) the result is a single configuration taken
// entirely from extra.
func Configurations(fileArgs [][]string, extra []string) [][]string {
	if fileArgs == nil {
		fileArgs = [][]string{{}}
	}
	out := make([][]string, 0, len(fileArgs))
	for _, args := range fileArgs {
		cfg := make([]string, 0, len(args)+len(extra))
		cfg = append(cfg, args...)
		cfg = append(cfg, extra...)
		out = append(out, cfg)
	}
	return out
}
