// Package artifact defines the per-page files that flow through a run.
// Each record carries its page index explicitly; nothing downstream infers
// page order from file names.
package artifact

import "fmt"

// PageSize is a page's dimensions in PDF points (1/72 inch).
type PageSize struct {
	Width  float64
	Height float64
}

// IsZero reports whether the size is unknown.
func (s PageSize) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// PageImage is the raster image of one source page.
type PageImage struct {
	Index  int      // zero-based page index
	Path   string   // image file inside the workspace
	Width  int      // pixels
	Height int      // pixels
	DPI    float64  // effective resolution, zero if unknown
	Page   PageSize // source page size, zero if unknown
}

// Number returns the one-based page number used in messages and file names.
func (p PageImage) Number() int { return p.Index + 1 }

// Size returns the size the overlay page should have: the source page size
// when known, otherwise the image size at its DPI (72 DPI when unknown).
func (p PageImage) Size() PageSize {
	if !p.Page.IsZero() {
		return p.Page
	}
	dpi := p.DPI
	if dpi <= 0 {
		dpi = 72
	}
	return PageSize{
		Width:  float64(p.Width) * 72 / dpi,
		Height: float64(p.Height) * 72 / dpi,
	}
}

func (p PageImage) String() string {
	return fmt.Sprintf("page %d image %s (%dx%d)", p.Number(), p.Path, p.Width, p.Height)
}

// PageLayout is the hOCR file recognized from a PageImage.
type PageLayout struct {
	Index int
	Path  string
	Words int // number of recognized words, -1 if not counted
}

// PageOverlay is the single-page searchable PDF for one page.
type PageOverlay struct {
	Index int
	Path  string
	Text  bool // false when the page was emitted without a text layer
}
