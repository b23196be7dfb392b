package extract

import (
	"errors"
	"fmt"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/gardar/ocrsandwich/pkg/artifact"
)

var (
	// ErrNotPDF is returned when the input cannot be read as a PDF document.
	ErrNotPDF = errors.New("not a valid PDF document")

	// ErrNoPages is returned when the input PDF has no pages.
	ErrNoPages = errors.New("PDF document has no pages")
)

// Document describes a source PDF.
type Document struct {
	Path  string
	Pages []artifact.PageSize // MediaBox size per page, zero when unreadable
}

// NumPages returns the page count.
func (d *Document) NumPages() int { return len(d.Pages) }

// PageSize returns the size of the page at zero-based index.
func (d *Document) PageSize(index int) artifact.PageSize {
	if index < 0 || index >= len(d.Pages) {
		return artifact.PageSize{}
	}
	return d.Pages[index]
}

// Inspect opens path as a PDF and reads its page count and page sizes.
func Inspect(path string) (doc *Document, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrNotPDF, r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	defer f.Close()

	n := reader.NumPage()
	if n == 0 {
		return nil, ErrNoPages
	}
	doc = &Document{Path: path, Pages: make([]artifact.PageSize, n)}
	for i := 1; i <= n; i++ {
		doc.Pages[i-1] = mediaBox(reader.Page(i).V)
	}
	return doc, nil
}

// mediaBox returns the page's MediaBox, following Parent links for
// inherited values. Rotation by 90 or 270 degrees swaps the dimensions.
func mediaBox(page pdflib.Value) artifact.PageSize {
	var size artifact.PageSize
	rotate := 0
	rotateSet := false
	for v, depth := page, 0; v.Kind() == pdflib.Dict && depth < 32; v, depth = v.Key("Parent"), depth+1 {
		if r := v.Key("Rotate"); !rotateSet && r.Kind() == pdflib.Integer {
			rotate, rotateSet = int(r.Int64()), true
		}
		box := v.Key("MediaBox")
		if size.IsZero() && box.Kind() == pdflib.Array && box.Len() == 4 {
			size = artifact.PageSize{
				Width:  box.Index(2).Float64() - box.Index(0).Float64(),
				Height: box.Index(3).Float64() - box.Index(1).Float64(),
			}
		}
	}
	if size.Width < 0 {
		size.Width = -size.Width
	}
	if size.Height < 0 {
		size.Height = -size.Height
	}
	if ((rotate%360)+360)%180 == 90 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size
}
