package pdfocr

import (
	"fmt"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"

	"github.com/gardar/ocrsandwich/pkg/artifact"
)

// importPage places page pageNum of the source PDF on the current page as a
// template scaled to size.
func importPage(pdf *fpdf.Fpdf, source string, pageNum int, size artifact.PageSize) (err error) {
	// gofpdi panics on unreadable sources.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d of %s: %v", pageNum, source, r)
		}
	}()
	importer := gofpdi.NewImporter()
	tpl := importer.ImportPage(pdf, source, pageNum, "/MediaBox")
	importer.UseImportedTemplate(pdf, tpl, 0, 0, size.Width, size.Height)
	return pdf.Error()
}
