package boo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CompileCommandPrefix starts the name of the file BOO writes next to each
// cached operation, holding the iree-compile invocation it used.
const CompileCommandPrefix = "compile_command"

// ErrUnexpectedCacheLayout means the cache did not look the way one
// compiled operation leaves it.
var ErrUnexpectedCacheLayout = errors.New("boo: unexpected cache layout")

type LayoutKind int

const (
	MissingOpDir LayoutKind = iota
	MultipleOpDirs
	MissingCommand
	MultipleCommands
)

func (k LayoutKind) String() string {
	switch k {
	case MissingOpDir:
		return "no operation directory"
	case MultipleOpDirs:
		return "more than one operation directory"
	case MissingCommand:
		return "no " + CompileCommandPrefix + " file"
	case MultipleCommands:
		return "more than one " + CompileCommandPrefix + " file"
	default:
		return fmt.Sprintf("layout(%d)", int(k))
	}
}

// LayoutError describes which "exactly one" expectation failed.
type LayoutError struct {
	Kind  LayoutKind
	Dir   string
	Found []string
}

func (e *LayoutError) Error() string {
	if len(e.Found) == 0 {
		return fmt.Sprintf("boo cache %s: %s", e.Dir, e.Kind)
	}
	return fmt.Sprintf("boo cache %s: %s (found %s)", e.Dir, e.Kind, strings.Join(e.Found, ", "))
}

func (e *LayoutError) Unwrap() error {
	return ErrUnexpectedCacheLayout
}

// FindCompileCommand expects cacheDir to hold exactly one operation
// directory containing exactly one compile_command* file, and returns that
// file's path and trimmed contents.
func FindCompileCommand(cacheDir string) (path, command string, err error) {
	opDir, err := exactlyOne(cacheDir, func(e os.DirEntry) bool { return e.IsDir() }, MissingOpDir, MultipleOpDirs)
	if err != nil {
		return "", "", err
	}
	opPath := filepath.Join(cacheDir, opDir)
	name, err := exactlyOne(opPath, func(e os.DirEntry) bool {
		return !e.IsDir() && strings.HasPrefix(e.Name(), CompileCommandPrefix)
	}, MissingCommand, MultipleCommands)
	if err != nil {
		return "", "", err
	}

	path = filepath.Join(opPath, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("boo: read compile command: %w", err)
	}
	return path, strings.TrimSpace(string(data)), nil
}

func exactlyOne(dir string, match func(os.DirEntry) bool, none, many LayoutKind) (string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("boo: list %s: %w", dir, err)
	}
	var found []string
	for _, e := range ents {
		if match(e) {
			found = append(found, e.Name())
		}
	}
	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return "", &LayoutError{Kind: none, Dir: dir}
	default:
		return "", &LayoutError{Kind: many, Dir: dir, Found: found}
	}
}
