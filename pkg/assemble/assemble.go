// Package assemble concatenates the per-page overlay PDFs into the output
// document.
//
// The merged file is written next to the destination under a temporary
// name, its page count is checked, and only then is it renamed over the
// destination. A failed run leaves the destination untouched.
package assemble

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/pkg/artifact"
)

var (
	// ErrMissingPage is returned when a page overlay is absent or out of order.
	ErrMissingPage = errors.New("missing page overlay")

	// ErrPageCount is returned when the merged document has the wrong number of pages.
	ErrPageCount = errors.New("merged document has wrong page count")
)

// Merger concatenates pages, in order, into out.
type Merger interface {
	Name() string
	Merge(ctx context.Context, pages []string, out string) error
}

// Options configures the tool-based mergers.
type Options struct {
	Ghostscript string // gs binary, "gs" when empty
	Pdfunite    string // pdfunite binary, "pdfunite" when empty
	Runner      command.Runner
}

// New returns the merger registered under name.
func New(name string, opts Options) (Merger, error) {
	switch name {
	case "", "pdfcpu":
		return Pdfcpu{}, nil
	case "gs", "ghostscript":
		return &Ghostscript{Binary: opts.Ghostscript, Runner: opts.Runner}, nil
	case "pdfunite":
		return &Pdfunite{Binary: opts.Pdfunite, Runner: opts.Runner}, nil
	default:
		return nil, fmt.Errorf("unknown assembler %q", name)
	}
}

// closeTemp is replaced in tests.
var closeTemp = (*os.File).Close

// Assemble merges overlays into output with m. Overlays must cover pages
// 0..n-1 exactly once; they may be given in any order.
func Assemble(ctx context.Context, m Merger, overlays []artifact.PageOverlay, output string) (err error) {
	pages, err := orderedPaths(overlays)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()
	if err := closeTemp(tmp); err != nil {
		return fmt.Errorf("close temporary output: %w", err)
	}

	if err := m.Merge(ctx, pages, tmpPath); err != nil {
		return fmt.Errorf("%s: %w", m.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := api.PageCountFile(tmpPath)
	if err != nil {
		return fmt.Errorf("read merged document: %w", err)
	}
	if n != len(pages) {
		return fmt.Errorf("%w: got %d, want %d", ErrPageCount, n, len(pages))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, output)
}

// orderedPaths sorts overlays by page index and checks that every page is
// present and readable.
func orderedPaths(overlays []artifact.PageOverlay) ([]string, error) {
	if len(overlays) == 0 {
		return nil, fmt.Errorf("%w: no pages to assemble", ErrMissingPage)
	}
	sorted := append([]artifact.PageOverlay(nil), overlays...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	paths := make([]string, len(sorted))
	for i, o := range sorted {
		if o.Index != i {
			return nil, fmt.Errorf("%w: page %d", ErrMissingPage, i+1)
		}
		info, err := os.Stat(o.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrMissingPage, i+1, err)
		}
		if info.Size() == 0 {
			return nil, fmt.Errorf("%w: page %d: %s is empty", ErrMissingPage, i+1, o.Path)
		}
		paths[i] = o.Path
	}
	return paths, nil
}
