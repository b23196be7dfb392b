package pdfocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"codeberg.org/go-pdf/fpdf"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/gardar/ocrsandwich/pkg/artifact"
)

// newPage starts a one-page document sized for img and draws the page
// content: the page image, or the imported source page in import mode.
func (g *Generator) newPage(img artifact.PageImage) (*fpdf.Fpdf, artifact.PageSize, error) {
	size := img.Size()
	if size.IsZero() {
		return nil, size, fmt.Errorf("page %d: unknown page size", img.Number())
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreator("ocrsandwich", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	if g.Font.File != "" {
		pdf.AddUTF8Font(g.Font.Name, g.Font.Style, g.Font.File)
	}
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})

	if g.Mode == ModeImport {
		if err := importPage(pdf, g.Source, img.Number(), size); err != nil {
			return nil, size, err
		}
		return pdf, size, nil
	}

	data, imageType, err := loadImage(img.Path)
	if err != nil {
		return nil, size, fmt.Errorf("page %d: %w", img.Number(), err)
	}
	name := fmt.Sprintf("img%d", img.Index)
	opts := fpdf.ImageOptions{ReadDpi: false, ImageType: imageType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	pdf.ImageOptions(name, 0, 0, size.Width, size.Height, false, opts, 0, "")
	return pdf, size, pdf.Error()
}

// loadImage reads an image file in a form fpdf can embed. JPEG and 8-bit
// PNG pass through unchanged; anything else is re-encoded as PNG.
func loadImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image config: %w", err)
	}
	switch {
	case format == "jpeg":
		return data, "JPEG", nil
	case format == "png" && !wide(cfg):
		return data, "PNG", nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s image: %w", format, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, flatten(img)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "PNG", nil
}

// wide reports 16 bits per channel, which fpdf cannot embed.
func wide(cfg image.Config) bool {
	switch cfg.ColorModel {
	case color.Gray16Model, color.RGBA64Model, color.NRGBA64Model:
		return true
	}
	return false
}

// flatten converts 16-bit images to 8 bits per channel.
func flatten(img image.Image) image.Image {
	var dst draw.Image
	switch img.ColorModel() {
	case color.Gray16Model:
		dst = image.NewGray(img.Bounds())
	case color.RGBA64Model, color.NRGBA64Model:
		dst = image.NewNRGBA(img.Bounds())
	default:
		return img
	}
	draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	return dst
}
