// Package recognize runs OCR on page images and writes one hOCR file per
// page.
//
// Local engines (the tesseract binary and libtesseract through gosseract)
// emit hOCR directly. The Google Cloud engines return their own layout
// model, which is converted into the hocr object model and serialized with
// hocr.GenerateHOCRDocument so every engine hands the same format to the
// overlay step.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
)

// DefaultLanguage is the tesseract language used when none is configured.
const DefaultLanguage = "eng"

// ErrNoOutput is returned when an engine finished without producing hOCR.
var ErrNoOutput = errors.New("OCR engine produced no hOCR output")

// Engine recognizes the text of one page image and writes it as hOCR to
// outPath.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error)
	Close() error
}

// Options configures engine construction.
type Options struct {
	Language  string // tesseract language, e.g. "eng" or "eng+deu"
	Tesseract string // tesseract binary, "tesseract" when empty
	Runner    command.Runner
	Google    GoogleOptions
	DebugDir  string // when set, cloud engines dump raw API responses here
}

// GoogleOptions holds Google Cloud settings shared by the cloud engines.
type GoogleOptions struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	CredentialsJSON string
}

// New returns the engine registered under name. Cloud engines dial their
// API here; the caller owns the engine and must Close it.
func New(ctx context.Context, name string, opts Options) (Engine, error) {
	if opts.Language == "" {
		opts.Language = DefaultLanguage
	}
	switch name {
	case "", "tesseract":
		return &TesseractCLI{Binary: opts.Tesseract, Language: opts.Language, Runner: opts.Runner}, nil
	case "gosseract":
		return newGosseract(opts)
	case "vision":
		return NewVision(ctx, opts)
	case "documentai":
		return NewDocumentAI(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", name)
	}
}

// layoutFor parses the hOCR file written for img and checks it describes
// a page.
func layoutFor(img artifact.PageImage, path string) (artifact.PageLayout, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return artifact.PageLayout{}, fmt.Errorf("%w: %s", ErrNoOutput, path)
		}
		return artifact.PageLayout{}, err
	}
	doc, err := hocr.ParseFile(path)
	if err != nil {
		return artifact.PageLayout{}, fmt.Errorf("%w: %v", ErrNoOutput, err)
	}
	words := 0
	for _, p := range doc.Pages {
		words += len(p.AllWords())
	}
	return artifact.PageLayout{Index: img.Index, Path: path, Words: words}, nil
}

// writeHOCR serializes a single converted page to path.
func writeHOCR(path, system string, page hocr.Page) error {
	doc := &hocr.HOCR{
		Title:    "OCR output",
		Language: page.Lang,
		Metadata: map[string]string{
			"ocr-system":          system,
			"ocr-number-of-pages": "1",
			"ocr-capabilities":    "ocr_page ocr_carea ocr_par ocr_line ocrx_word",
		},
		Pages: []hocr.Page{page},
	}
	if page.Lang != "" {
		doc.Metadata["ocr-langs"] = page.Lang
	}
	out, err := hocr.GenerateHOCRDocument(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}
