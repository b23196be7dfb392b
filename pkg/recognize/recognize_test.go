package recognize

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/internal/testpdf"
	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
)

func vertices(x1, y1, x2, y2 int32) *visionpb.BoundingPoly {
	return &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
		{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2},
	}}
}

func visionWord(text string, box *visionpb.BoundingPoly, brk visionpb.TextAnnotation_DetectedBreak_BreakType) *visionpb.Word {
	var symbols []*visionpb.Symbol
	for i, r := range text {
		s := &visionpb.Symbol{Text: string(r)}
		if i == len(text)-1 {
			s.Property = &visionpb.TextAnnotation_TextProperty{
				DetectedBreak: &visionpb.TextAnnotation_DetectedBreak{Type: brk},
			}
		}
		symbols = append(symbols, s)
	}
	return &visionpb.Word{BoundingBox: box, Symbols: symbols, Confidence: 0.97}
}

func TestVisionPage(t *testing.T) {
	ann := &visionpb.TextAnnotation{
		Pages: []*visionpb.Page{{
			Width:  1000,
			Height: 800,
			Property: &visionpb.TextAnnotation_TextProperty{
				DetectedLanguages: []*visionpb.TextAnnotation_DetectedLanguage{{LanguageCode: "en"}},
			},
			Blocks: []*visionpb.Block{{
				BoundingBox: vertices(10, 10, 400, 120),
				Paragraphs: []*visionpb.Paragraph{{
					BoundingBox: vertices(10, 10, 400, 120),
					Words: []*visionpb.Word{
						visionWord("HELLO", vertices(10, 10, 150, 50), visionpb.TextAnnotation_DetectedBreak_SPACE),
						visionWord("WORLD", vertices(170, 10, 320, 50), visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE),
						visionWord("again", vertices(10, 70, 200, 120), visionpb.TextAnnotation_DetectedBreak_LINE_BREAK),
					},
				}},
			}},
		}},
	}
	img := artifact.PageImage{Index: 1, Path: "/tmp/page-0002.png", Width: 1000, Height: 800}

	page := visionPage(ann, img)
	if page.PageNumber != 2 || page.ImageName != "page-0002.png" || page.Lang != "en" {
		t.Fatalf("unexpected page header: %+v", page)
	}
	lines := page.AllLines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if got := hocr.PageText(page); got != "HELLO WORLD\nagain\n" {
		t.Errorf("PageText() = %q", got)
	}
	if want := hocr.NewBoundingBox(10, 10, 320, 50); lines[0].BBox != want {
		t.Errorf("first line bbox = %+v, want %+v", lines[0].BBox, want)
	}
	if c := lines[0].Words[0].Confidence; c != 97 {
		t.Errorf("confidence = %v, want 97", c)
	}
	if err := hocr.ValidatePage(page, 1000, 800); err != nil {
		t.Errorf("converted page does not validate: %v", err)
	}
}

func TestVisionPageEmpty(t *testing.T) {
	page := visionPage(nil, artifact.PageImage{Path: "p.png", Width: 10, Height: 20})
	if len(page.AllWords()) != 0 {
		t.Fatalf("expected no words")
	}
	if page.BBox != hocr.NewBoundingBox(0, 0, 10, 20) {
		t.Errorf("page bbox = %+v", page.BBox)
	}
}

func anchor(start, end int64) *documentaipb.Document_TextAnchor {
	return &documentaipb.Document_TextAnchor{
		TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: start, EndIndex: end}},
	}
}

func layout(start, end int64, x1, y1, x2, y2 float32) *documentaipb.Document_Page_Layout {
	return &documentaipb.Document_Page_Layout{
		TextAnchor: anchor(start, end),
		Confidence: 0.9,
		BoundingPoly: &documentaipb.BoundingPoly{NormalizedVertices: []*documentaipb.NormalizedVertex{
			{X: x1, Y: y1}, {X: x2, Y: y1}, {X: x2, Y: y2}, {X: x1, Y: y2},
		}},
	}
}

func TestDocumentAIPage(t *testing.T) {
	text := "HELLO WORLD\nfooter\n"
	p := &documentaipb.Document_Page{
		PageNumber: 1,
		Dimension:  &documentaipb.Document_Page_Dimension{Width: 1000, Height: 1000},
		Blocks: []*documentaipb.Document_Page_Block{
			{Layout: layout(0, 12, 0.1, 0.1, 0.5, 0.2)},
		},
		Paragraphs: []*documentaipb.Document_Page_Paragraph{
			{Layout: layout(0, 12, 0.1, 0.1, 0.5, 0.2)},
		},
		Lines: []*documentaipb.Document_Page_Line{
			{Layout: layout(0, 12, 0.1, 0.1, 0.5, 0.2)},
			{Layout: layout(12, 19, 0.1, 0.9, 0.3, 0.95)},
		},
		Tokens: []*documentaipb.Document_Page_Token{
			{Layout: layout(0, 6, 0.1, 0.1, 0.25, 0.2)},
			{Layout: layout(6, 12, 0.3, 0.1, 0.5, 0.2)},
			{Layout: layout(12, 19, 0.1, 0.9, 0.3, 0.95)},
		},
	}
	img := artifact.PageImage{Index: 0, Path: "page-0001.png", Width: 2000, Height: 2000}

	page := documentAIPage(p, text, img)
	if len(page.Areas) != 1 || len(page.Areas[0].Paragraphs) != 1 {
		t.Fatalf("unexpected structure: %+v", page)
	}
	if len(page.Lines) != 1 {
		t.Fatalf("expected the footer line directly under the page, got %d lines", len(page.Lines))
	}
	if got := hocr.PageText(page); got != "HELLO WORLD\nfooter\n" {
		t.Errorf("PageText() = %q", got)
	}
	// Coordinates follow the image size, not the processor's dimension.
	w := page.Areas[0].Paragraphs[0].Lines[0].Words[0]
	if want := hocr.NewBoundingBox(200, 200, 500, 400); w.BBox != want {
		t.Errorf("word bbox = %+v, want %+v", w.BBox, want)
	}
	if err := hocr.ValidatePage(page, 2000, 2000); err != nil {
		t.Errorf("converted page does not validate: %v", err)
	}
}

func TestWriteHOCRParsesBack(t *testing.T) {
	page := hocr.Page{
		ID:   "page_1",
		BBox: hocr.NewBoundingBox(0, 0, 100, 50),
		Lines: []hocr.Line{{
			ID:   "line_1",
			BBox: hocr.NewBoundingBox(5, 5, 95, 20),
			Words: []hocr.Word{
				{ID: "w1", Text: "café", BBox: hocr.NewBoundingBox(5, 5, 40, 20), Confidence: 88},
				{ID: "w2", Text: "<&>", BBox: hocr.NewBoundingBox(50, 5, 95, 20), Confidence: 70},
			},
		}},
	}
	path := filepath.Join(t.TempDir(), "page-0001.hocr")
	if err := writeHOCR(path, "test", page); err != nil {
		t.Fatalf("writeHOCR() error = %v", err)
	}
	layout, err := layoutFor(artifact.PageImage{Index: 0}, path)
	if err != nil {
		t.Fatalf("layoutFor() error = %v", err)
	}
	if layout.Words != 2 || layout.Path != path {
		t.Errorf("layout = %+v", layout)
	}
	doc, err := hocr.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := hocr.ExtractHOCRText(&doc); !strings.Contains(got, "café <&>") {
		t.Errorf("text = %q", got)
	}
}

func TestLayoutForMissingFile(t *testing.T) {
	_, err := layoutFor(artifact.PageImage{}, filepath.Join(t.TempDir(), "none.hocr"))
	if !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestLanguageHints(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"eng", []string{"en"}},
		{"eng+deu", []string{"en", "de"}},
		{"chi_sim", nil},
	}
	for _, tt := range tests {
		if got := languageHints(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("languageHints(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSettle(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "page-0001")
	out := base + ".hocr"

	// Old tesseract releases write .html.
	if err := os.WriteFile(base+".html", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := settle(base, out); err != nil {
		t.Fatalf("settle() error = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected %s: %v", out, err)
	}
	if err := settle(filepath.Join(dir, "page-0002"), filepath.Join(dir, "page-0002.hocr")); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("expected ErrNoOutput, got %v", err)
	}
}

func TestNewUnknownEngine(t *testing.T) {
	if _, err := New(context.Background(), "abbyy", Options{}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
	e, err := New(context.Background(), "", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if e.Name() != "tesseract" {
		t.Errorf("default engine = %s", e.Name())
	}
	if _, err := New(context.Background(), "documentai", Options{}); err == nil {
		t.Fatal("expected error for documentai without processor settings")
	}
}

func TestTesseractCLI(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "page-0001.png")
	if err := os.WriteFile(imgPath, testpdf.PNG(testpdf.TextImage("HELLO WORLD", 1200, 300, 6)), 0o644); err != nil {
		t.Fatal(err)
	}
	img := artifact.PageImage{Index: 0, Path: imgPath, Width: 1200, Height: 300, DPI: 300}
	e := &TesseractCLI{Runner: command.Runner{Log: zerolog.Nop()}}

	out := filepath.Join(dir, "page-0001.hocr")
	layout, err := e.Recognize(context.Background(), img, out)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	doc, err := hocr.ParseFile(layout.Path)
	if err != nil {
		t.Fatal(err)
	}
	text := hocr.ExtractHOCRText(&doc)
	for _, want := range []string{"HELLO", "WORLD"} {
		if !strings.Contains(text, want) {
			t.Errorf("recognized text %q does not contain %q", text, want)
		}
	}
	if err := hocr.ValidatePage(doc.Pages[0], img.Width, img.Height); err != nil {
		t.Errorf("tesseract page does not validate: %v", err)
	}
}

func TestTesseractCLIFailure(t *testing.T) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
	dir := t.TempDir()
	bad := filepath.Join(dir, "page-0002.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := &TesseractCLI{}
	_, err := e.Recognize(context.Background(), artifact.PageImage{Index: 1, Path: bad}, filepath.Join(dir, "page-0002.hocr"))
	if err == nil {
		t.Fatal("expected error for corrupt image")
	}
}
