package hocr

import "math"

// HOCR represents the entire hOCR document structure
type HOCR struct {
	Title       string            // Document title
	Description string            // Document description
	Language    string            // Document language
	Metadata    map[string]string // ocr-system, ocr-capabilities, ...
	Pages       []Page            // Pages in the document
}

// Page is one page of recognized text
// Corresponds to hOCR element with class: 'ocr_page'
type Page struct {
	ID         string
	Title      string            // Original title attribute
	PageNumber int               // ppageno, 0-based in tesseract output
	ImageName  string            // Source image filename
	Lang       string
	BBox       BoundingBox       // Page coordinates, equals the image size
	Areas      []Area            // Content areas (columns)
	Paragraphs []Paragraph       // Paragraphs directly under page
	Lines      []Line            // Lines directly under page (no parent)
	Metadata   map[string]string // Other page properties
}

// Class assign 'ocr_page' to 'Page' struct
func (Page) Class() string { return "ocr_page" }

// Area represents a content area (column or region)
// Corresponds to hOCR element with class: 'ocr_carea'
type Area struct {
	ID         string
	Lang       string
	BBox       BoundingBox
	Paragraphs []Paragraph
	Lines      []Line
	Words      []Word // Words directly under area (no line parent)
	Metadata   map[string]string
}

// Class assign 'ocr_carea' to 'Area' struct
func (Area) Class() string { return "ocr_carea" }

// Paragraph corresponds to hOCR element with class: 'ocr_par'
type Paragraph struct {
	ID       string
	Lang     string
	BBox     BoundingBox
	Lines    []Line
	Words    []Word // Words directly under paragraph (no line parent)
	Metadata map[string]string
}

// Class assign 'ocr_par' to 'Paragraph' struct
func (Paragraph) Class() string { return "ocr_par" }

// Line represents a line of text. Tesseract also emits headers, captions
// and floating text as line-level elements; they all parse into Line.
type Line struct {
	ID       string
	Kind     string // ocr_line, ocr_header, ocr_caption or ocr_textfloat
	Lang     string
	BBox     BoundingBox
	Baseline string
	Words    []Word
	Metadata map[string]string
}

// Class returns the hOCR class the line was parsed from, 'ocr_line' by default.
func (l Line) Class() string {
	if l.Kind == "" {
		return "ocr_line"
	}
	return l.Kind
}

// Word is a recognized word with bounding box
// Corresponds to hOCR element with class: 'ocrx_word'
type Word struct {
	ID         string
	Text       string
	BBox       BoundingBox
	Confidence float64 // x_wconf, 0-100
	Lang       string
	Metadata   map[string]string
}

// Class assign 'ocrx_word' to 'Word' struct
func (Word) Class() string { return "ocrx_word" }

// BoundingBox is the hOCR 'bbox' property: x1, y1 is the top-left corner,
// x2, y2 the bottom-right corner, in image pixels.
type BoundingBox struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// NewBoundingBox creates a bounding box from the x1 y1 x2 y2 coordinates of
// an hOCR 'bbox' property.
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width of the box in pixels.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height of the box in pixels.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// IsEmpty reports whether the box has no area.
func (b BoundingBox) IsEmpty() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Union returns the smallest box containing both b and o. An empty box is
// treated as absent.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if b.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return b
	}
	return BoundingBox{
		X1: math.Min(b.X1, o.X1),
		Y1: math.Min(b.Y1, o.Y1),
		X2: math.Max(b.X2, o.X2),
		Y2: math.Max(b.Y2, o.Y2),
	}
}
