package extract

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/workspace"
)

// FitzExtractor renders pages in-process with MuPDF.
type FitzExtractor struct {
	DPI float64
}

func (e *FitzExtractor) Name() string { return "fitz" }

func (e *FitzExtractor) Extract(ctx context.Context, doc *Document, ws *workspace.Workspace) ([]artifact.PageImage, error) {
	dpi := e.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	fd, err := fitz.New(doc.Path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer fd.Close()

	if fd.NumPage() != doc.NumPages() {
		return nil, fmt.Errorf("page count mismatch: renderer sees %d pages, document has %d",
			fd.NumPage(), doc.NumPages())
	}

	images := make([]artifact.PageImage, 0, doc.NumPages())
	for i := 0; i < doc.NumPages(); i++ {
		if err := checkContext(ctx); err != nil {
			return nil, err
		}
		rgba, err := fd.ImageDPI(i, dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		path := ws.PagePath(i, ".png")
		if err := writePNG(path, rgba); err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		images = append(images, artifact.PageImage{
			Index:  i,
			Path:   path,
			Width:  rgba.Bounds().Dx(),
			Height: rgba.Bounds().Dy(),
			DPI:    dpi,
			Page:   doc.PageSize(i),
		})
	}
	return images, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
