// Package testpdf builds small scanned-looking PDFs for tests: every page is
// a single full-page raster image with text drawn in a bitmap font.
package testpdf

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"codeberg.org/go-pdf/fpdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Page describes one page: its size in points and the text in its scan.
type Page struct {
	Width  float64
	Height float64
	Text   string
}

// Letter is a US letter page with the given text.
func Letter(text string) Page { return Page{Width: 612, Height: 792, Text: text} }

// TextImage returns a white w x h image with text drawn in black near the
// top-left corner. Glyphs are the 7x13 basic font enlarged scale times.
func TextImage(text string, w, h, scale int) *image.Gray {
	if scale < 1 {
		scale = 1
	}
	small := image.NewGray(image.Rect(0, 0, w/scale, h/scale))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{
		Dst:  small,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 20),
	}
	d.DrawString(text)

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, small.GrayAt(x/scale, y/scale))
		}
	}
	return img
}

// PNG encodes img.
func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Write creates a PDF at path with one scanned page per entry. Each page's
// image is rendered at 100 DPI.
func Write(path string, pages ...Page) error {
	doc := fpdf.New("P", "pt", "A4", "")
	for i, p := range pages {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: p.Width, Ht: p.Height})
		w := int(p.Width * 100 / 72)
		h := int(p.Height * 100 / 72)
		name := fmt.Sprintf("scan%d", i)
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(PNG(TextImage(p.Text, w, h, 5))))
		doc.ImageOptions(name, 0, 0, p.Width, p.Height, false, opts, 0, "")
	}
	return doc.OutputFileAndClose(path)
}
