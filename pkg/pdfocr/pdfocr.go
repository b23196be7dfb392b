// Package pdfocr renders the overlay PDF for one page: the scanned page with
// its recognized text laid over it in an invisible, selectable layer.
//
// The text of every page is drawn into its own optional content group named
// "<layer> (Page N)", so compatible viewers can toggle the OCR layer and a
// later run can tell the document has been processed already.
//
// Two modes are supported:
//
// - ModeImage builds a new page from the page image
// - ModeImport imports the original PDF page as a template and draws the
// text over it, leaving the page content untouched
package pdfocr

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"github.com/rs/zerolog"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
)

// ErrBadLayout is returned when an hOCR file does not describe exactly one page.
var ErrBadLayout = errors.New("layout must describe exactly one page")

// Generator renders single-page overlay PDFs.
type Generator struct {
	Options
	Log zerolog.Logger
}

// New returns a generator for opts with defaults filled in.
func New(opts Options, log zerolog.Logger) (*Generator, error) {
	if opts.Mode == "" {
		opts.Mode = ModeImage
	}
	if opts.Mode != ModeImage && opts.Mode != ModeImport {
		return nil, fmt.Errorf("unknown overlay mode %q", opts.Mode)
	}
	if opts.Mode == ModeImport && opts.Source == "" {
		return nil, errors.New("import mode needs the source PDF")
	}
	if opts.LayerName == "" {
		opts.LayerName = DefaultLayerName
	}
	if opts.Font.Name == "" {
		opts.Font.Name = DefaultFont.Name
	}
	if opts.Font.Size <= 0 {
		opts.Font.Size = DefaultFont.Size
	}
	if opts.Font.AscentRatio <= 0 {
		opts.Font.AscentRatio = DefaultFont.AscentRatio
	}
	return &Generator{Options: opts, Log: log}, nil
}

// Render writes the overlay PDF for img with the text of layout to outPath.
func (g *Generator) Render(ctx context.Context, img artifact.PageImage, layout artifact.PageLayout, outPath string) (artifact.PageOverlay, error) {
	if err := ctx.Err(); err != nil {
		return artifact.PageOverlay{}, err
	}
	doc, err := hocr.ParseFile(layout.Path)
	if err != nil {
		return artifact.PageOverlay{}, fmt.Errorf("read layout: %w", err)
	}
	if len(doc.Pages) != 1 {
		return artifact.PageOverlay{}, fmt.Errorf("%w: %s has %d", ErrBadLayout, layout.Path, len(doc.Pages))
	}
	page := doc.Pages[0]
	if err := hocr.ValidatePage(page, img.Width, img.Height); err != nil {
		return artifact.PageOverlay{}, err
	}

	pdf, size, err := g.newPage(img)
	if err != nil {
		return artifact.PageOverlay{}, err
	}
	stats := g.drawOCRLayer(pdf, page, img.Number(), scaler(page, img, size))
	if stats.replaced > 0 {
		g.Log.Warn().Int("page", img.Number()).Int("words", stats.replaced).
			Msg("characters outside the font encoding were replaced")
	}
	if err := write(pdf, outPath); err != nil {
		return artifact.PageOverlay{}, err
	}
	return artifact.PageOverlay{Index: img.Index, Path: outPath, Text: true}, nil
}

// RenderBare writes the page without a text layer.
func (g *Generator) RenderBare(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageOverlay, error) {
	if err := ctx.Err(); err != nil {
		return artifact.PageOverlay{}, err
	}
	pdf, _, err := g.newPage(img)
	if err != nil {
		return artifact.PageOverlay{}, err
	}
	if err := write(pdf, outPath); err != nil {
		return artifact.PageOverlay{}, err
	}
	return artifact.PageOverlay{Index: img.Index, Path: outPath}, nil
}

// scaler maps hOCR pixel coordinates onto a page of size points. The
// mapping is linear per axis.
func scaler(page hocr.Page, img artifact.PageImage, size artifact.PageSize) func(x, y float64) (float64, float64) {
	w, h := float64(img.Width), float64(img.Height)
	if w <= 0 || h <= 0 {
		w, h = page.BBox.X2, page.BBox.Y2
	}
	return func(x, y float64) (float64, float64) {
		return normalizeCoords(x, y, w, h, size.Width, size.Height)
	}
}

// normalizeCoords rescales hOCR bbox coordinates to PDF coordinates.
func normalizeCoords(x, y, hocrW, hocrH, pdfW, pdfH float64) (float64, float64) {
	return x / hocrW * pdfW, y / hocrH * pdfH
}

func write(pdf *fpdf.Fpdf, path string) error {
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render PDF: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
