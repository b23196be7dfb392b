package pdfocr

import (
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/gardar/ocrsandwich/pkg/hocr"
)

type layerStats struct {
	words    int // words drawn
	replaced int // words with characters the font could not encode
}

// layerTitle formats the optional content group name of a page.
func layerTitle(layerName string, pageNum int) string {
	if pageNum > 0 {
		return fmt.Sprintf("%s (Page %d)", layerName, pageNum)
	}
	return layerName
}

// drawOCRLayer draws the words of page onto their own layer of the
// current PDF page.
func (g *Generator) drawOCRLayer(pdf *fpdf.Fpdf, page hocr.Page, pageNum int, transform func(x, y float64) (float64, float64)) layerStats {
	var stats layerStats

	layer := pdf.AddLayer(layerTitle(g.LayerName, pageNum), true)
	pdf.BeginLayer(layer)
	pdf.SetFont(g.Font.Name, g.Font.Style, g.Font.Size)

	if g.Debug {
		pdf.SetTextColor(255, 0, 0) // highlight text in red
		pdf.SetDrawColor(255, 0, 0)
	} else {
		pdf.SetAlpha(0.0, "Normal") // hide text from normal view
	}

	for _, word := range page.AllWords() {
		text := strings.TrimSpace(word.Text)
		if text == "" || word.BBox.IsEmpty() {
			continue
		}
		if g.Font.File == "" {
			var ok bool
			if text, ok = encodeCP1252(text); !ok {
				stats.replaced++
			}
		}
		g.drawWord(pdf, word.BBox, text, transform)
		stats.words++
	}

	if !g.Debug {
		pdf.SetAlpha(1.0, "Normal")
	}
	pdf.EndLayer()
	return stats
}

// drawWord renders a single word stretched to the width of its box.
func (g *Generator) drawWord(pdf *fpdf.Fpdf, box hocr.BoundingBox, text string, transform func(x, y float64) (float64, float64)) {
	x, y := transform(box.X1, box.Y1)
	x2, y2 := transform(box.X2, box.Y2)
	wordWidth := x2 - x

	pdf.SetFontSize(g.Font.Size)
	if strWidth := pdf.GetStringWidth(text); strWidth > 0 {
		pdf.SetFontSize(g.Font.Size * wordWidth / strWidth)
	}

	fontSize, _ := pdf.GetFontSize()
	pdf.Text(x, y+fontSize*g.Font.AscentRatio, text)
	pdf.SetFontSize(g.Font.Size)

	if g.Debug {
		pdf.Rect(x, y, wordWidth, y2-y, "D")
	}
}

// encodeCP1252 converts text to the Windows-1252 encoding of the core PDF
// fonts. Characters without a mapping become '?' and ok is false.
func encodeCP1252(text string) (string, bool) {
	ok := true
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, found := charmap.Windows1252.EncodeRune(r)
		if !found {
			b, ok = '?', false
		}
		out = append(out, b)
	}
	return string(out), ok
}
