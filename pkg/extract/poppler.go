package extract

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/workspace"
)

// Options configures the tool-based extractors.
type Options struct {
	DPI       int
	Pdftoppm  string // pdftoppm binary, "pdftoppm" when empty
	Pdfimages string // pdfimages binary, "pdfimages" when empty
	Runner    command.Runner
}

// PopplerExtractor renders every page with pdftoppm. One process runs per
// page and writes straight to the page's workspace name.
type PopplerExtractor struct {
	Options
}

func (e *PopplerExtractor) Name() string { return "pdftoppm" }

func (e *PopplerExtractor) Extract(ctx context.Context, doc *Document, ws *workspace.Workspace) ([]artifact.PageImage, error) {
	bin := e.Pdftoppm
	if bin == "" {
		bin = "pdftoppm"
	}
	images := make([]artifact.PageImage, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		n := strconv.Itoa(i + 1)
		base := ws.PagePath(i, "")
		err := e.Runner.Run(ctx, bin,
			"-f", n, "-l", n,
			"-r", strconv.Itoa(e.DPI),
			"-png", "-singlefile",
			doc.Path, base)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		img, err := pageImage(doc, i, base+".png", float64(e.DPI))
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// ImagesExtractor extracts the embedded scan of every page at its native
// resolution with pdfimages. When a page holds several images the largest
// one is taken as the scan. The effective DPI is derived from the page size.
type ImagesExtractor struct {
	Options
}

func (e *ImagesExtractor) Name() string { return "pdfimages" }

func (e *ImagesExtractor) Extract(ctx context.Context, doc *Document, ws *workspace.Workspace) ([]artifact.PageImage, error) {
	bin := e.Pdfimages
	if bin == "" {
		bin = "pdfimages"
	}
	scratch, err := ws.Scratch("pdfimages")
	if err != nil {
		return nil, err
	}

	images := make([]artifact.PageImage, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		n := strconv.Itoa(i + 1)
		prefix := filepath.Join(scratch, workspace.PageBase(i))
		if err := e.Runner.Run(ctx, bin, "-f", n, "-l", n, "-png", doc.Path, prefix); err != nil {
			return nil, fmt.Errorf("extract images of page %d: %w", i+1, err)
		}

		src, err := largestImage(prefix + "-*.png")
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		dst := ws.PagePath(i, ".png")
		if err := os.Rename(src, dst); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		img, err := pageImage(doc, i, dst, 0)
		if err != nil {
			return nil, err
		}
		if size := doc.PageSize(i); !size.IsZero() {
			dpiW, dpiH := ComputeDPI(size.Width, size.Height, img.Width, img.Height)
			img.DPI = math.Max(float64(dpiW), float64(dpiH))
		}
		images = append(images, img)
	}
	return images, nil
}

// largestImage returns the file matching pattern with the most pixels.
// Ties go to the first file in name order.
func largestImage(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", ErrNoPageImage
	}
	sort.Strings(matches)
	best, bestArea := "", -1
	for _, m := range matches {
		w, h, _, err := ImageConfig(m)
		if err != nil {
			continue
		}
		if w*h > bestArea {
			best, bestArea = m, w*h
		}
	}
	if best == "" {
		return "", ErrNoPageImage
	}
	return best, nil
}
