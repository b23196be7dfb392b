package pdfocr

// Overlay modes.
const (
	ModeImage  = "image"
	ModeImport = "import"
)

// DefaultLayerName is the base name of the per-page OCR layers.
const DefaultLayerName = "OCR Text"

// Options holds the overlay settings.
type Options struct {
	Mode      string     // ModeImage or ModeImport
	Source    string     // source PDF, needed in import mode
	LayerName string     // base name of the OCR layer, the page number is appended
	Font      FontConfig // font used for the text layer
	Debug     bool       // draw the text in red with word boxes instead of invisible
	Force     bool       // process input that already carries an OCR layer
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
	File        string  // optional TrueType file, enables text outside cp1252
}

// DefaultFont sets the default font to Helvetica which is tried and tested for the OCR layer
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Style:       "",
	Size:        10,
	AscentRatio: 0.718,
}
