// Package workspace manages the scoped temporary directory that holds every
// intermediate file of one run.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a uniquely named temporary directory. Create it with New and
// release it with Close; Close is safe to call more than once.
type Workspace struct {
	dir  string
	keep bool

	once     sync.Once
	closeErr error
}

// Options controls where the workspace lives and whether it survives Close.
type Options struct {
	Root string // parent directory, os.TempDir() when empty
	Keep bool   // retain the directory on Close for debugging
}

// New creates a fresh workspace directory.
func New(opts Options) (*Workspace, error) {
	dir, err := os.MkdirTemp(opts.Root, "ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir, keep: opts.Keep}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Kept reports whether Close leaves the directory in place.
func (w *Workspace) Kept() bool { return w.keep }

// PagePath returns the path of a per-page artifact. index is zero-based,
// the file name uses the one-based page number, e.g. page-0001.png.
func (w *Workspace) PagePath(index int, ext string) string {
	return filepath.Join(w.dir, PageBase(index)+ext)
}

// PageBase returns the extensionless file name for a page.
func PageBase(index int) string {
	return fmt.Sprintf("page-%04d", index+1)
}

// Scratch returns a directory for tool output that cannot be named up
// front, such as pdfimages results. It is created on demand.
func (w *Workspace) Scratch(name string) (string, error) {
	dir := filepath.Join(w.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// Close removes the workspace and everything in it unless it is kept.
func (w *Workspace) Close() error {
	w.once.Do(func() {
		if w.keep {
			return
		}
		if err := os.RemoveAll(w.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.closeErr = fmt.Errorf("remove workspace %s: %w", w.dir, err)
		}
	})
	return w.closeErr
}
