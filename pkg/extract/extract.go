// Package extract turns the pages of a source PDF into raster images inside
// a run's workspace.
//
// Three extractors are provided:
//
// - PopplerExtractor renders each page with pdftoppm at a fixed DPI
// - ImagesExtractor pulls the embedded scan out of each page with pdfimages
// - FitzExtractor renders in-process with MuPDF through go-fitz
//
// Every extractor produces exactly one image per page, named by page index
// and returned in page order.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/workspace"
)

// DefaultDPI is the rendering resolution used when none is configured.
const DefaultDPI = 300

// ErrNoPageImage is returned when a page yields no image.
var ErrNoPageImage = errors.New("page produced no image")

// Extractor produces one image per page of doc inside ws.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, doc *Document, ws *workspace.Workspace) ([]artifact.PageImage, error)
}

// New returns the extractor registered under name.
func New(name string, opts Options) (Extractor, error) {
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	switch name {
	case "", "pdftoppm":
		return &PopplerExtractor{Options: opts}, nil
	case "pdfimages":
		return &ImagesExtractor{Options: opts}, nil
	case "fitz":
		return &FitzExtractor{DPI: float64(opts.DPI)}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}

// pageImage stats the image written for page i and builds its record.
func pageImage(doc *Document, index int, path string, dpi float64) (artifact.PageImage, error) {
	w, h, _, err := ImageConfig(path)
	if err != nil {
		return artifact.PageImage{}, fmt.Errorf("page %d: %w", index+1, err)
	}
	return artifact.PageImage{
		Index:  index,
		Path:   path,
		Width:  w,
		Height: h,
		DPI:    dpi,
		Page:   doc.PageSize(index),
	}, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
