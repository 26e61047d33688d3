// Package workspace manages the per-configuration scratch directory that
// holds the compiler cache and the dumped dispatch benchmarks.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	CacheDirName = "boo_cache"
	BenchDirName = "bench"

	tempPattern = "boo-tuner-"
)

// tempParent is where unpinned workspaces are created. A seam for tests.
var tempParent = "."

// Workspace is the scratch directory for one configuration.
// It is removed by Cleanup unless it was pinned or Retain was called.
type Workspace struct {
	dir    string
	pinned bool
	retain bool
}

// Create prepares a workspace. A non-empty pinned path is wiped and
// recreated empty so reruns start clean. Otherwise a fresh uniquely named
// directory is created under the current directory.
func Create(pinned string) (*Workspace, error) {
	if pinned != "" {
		dir := filepath.Clean(pinned)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("workspace: clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("workspace: create %s: %w", dir, err)
		}
		return &Workspace{dir: dir, pinned: true}, nil
	}

	dir, err := os.MkdirTemp(tempParent, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("workspace: create temp dir: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string      { return w.dir }
func (w *Workspace) CacheDir() string { return filepath.Join(w.dir, CacheDirName) }
func (w *Workspace) BenchDir() string { return filepath.Join(w.dir, BenchDirName) }
func (w *Workspace) Pinned() bool     { return w.pinned }

// Retain keeps the workspace on disk for debugging.
func (w *Workspace) Retain() {
	w.retain = true
}

// ShouldCleanup reports whether Cleanup will delete the workspace.
func (w *Workspace) ShouldCleanup() bool {
	return !w.pinned && !w.retain
}

// Cleanup removes the workspace tree when ShouldCleanup is true.
func (w *Workspace) Cleanup() error {
	if !w.ShouldCleanup() {
		return nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("workspace: remove %s: %w", w.dir, err)
	}
	return nil
}

// Benchmarks lists the dumped benchmark files. A missing bench directory
// means the dump produced nothing and yields an empty list.
func (w *Workspace) Benchmarks() ([]string, error) {
	ents, err := os.ReadDir(w.BenchDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: list benchmarks: %w", err)
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(w.BenchDir(), e.Name()))
	}
	return out, nil
}
