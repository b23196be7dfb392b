package recognize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
)

// DocumentAI recognizes pages with a Google Document AI OCR processor.
type DocumentAI struct {
	client   *documentai.DocumentProcessorClient
	name     string
	debugDir string
}

// NewDocumentAI dials the regional Document AI endpoint for the configured
// processor.
func NewDocumentAI(ctx context.Context, opts Options) (*DocumentAI, error) {
	g := opts.Google
	if g.ProjectID == "" || g.Location == "" || g.ProcessorID == "" {
		return nil, errors.New("document AI needs project_id, location and processor_id")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", g.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions(g, endpoint)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}
	return &DocumentAI{
		client:   client,
		name:     fmt.Sprintf("projects/%s/locations/%s/processors/%s", g.ProjectID, g.Location, g.ProcessorID),
		debugDir: opts.DebugDir,
	}, nil
}

func (d *DocumentAI) Name() string { return "documentai" }

func (d *DocumentAI) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

func (d *DocumentAI) Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return artifact.PageLayout{}, err
	}
	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: imageMIME(img.Path),
			},
		},
		SkipHumanReview: true,
	}
	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return artifact.PageLayout{}, fmt.Errorf("failed to process document: %w", err)
	}
	doc := resp.GetDocument()
	if err := dumpResponse(d.debugDir, "documentai", img, doc); err != nil {
		return artifact.PageLayout{}, err
	}
	if len(doc.GetPages()) != 1 {
		return artifact.PageLayout{}, fmt.Errorf("%w: expected 1 page, got %d", ErrNoOutput, len(doc.GetPages()))
	}

	page := documentAIPage(doc.GetPages()[0], doc.GetText(), img)
	if err := writeHOCR(outPath, "Google Document AI", page); err != nil {
		return artifact.PageLayout{}, err
	}
	return layoutFor(img, outPath)
}

// documentAIPage converts a Document AI page to an hOCR page. Elements are
// nested by text anchor: a paragraph belongs to the block whose text span
// contains its own, and so on down to tokens. Lines outside every
// paragraph are kept directly under the page.
func documentAIPage(p *documentaipb.Document_Page, text string, img artifact.PageImage) hocr.Page {
	w, h := float64(img.Width), float64(img.Height)
	if dim := p.GetDimension(); w == 0 || h == 0 {
		w, h = float64(dim.GetWidth()), float64(dim.GetHeight())
	}
	page := newPage(img, w, h)
	if langs := p.GetDetectedLanguages(); len(langs) > 0 {
		page.Lang = langs[0].GetLanguageCode()
	}
	c := docConverter{page: p, text: []rune(text), w: w, h: h, n: img.Number(), assigned: map[int]bool{}}

	paraUsed := map[int]bool{}
	for b, block := range p.GetBlocks() {
		area := hocr.Area{ID: fmt.Sprintf("carea_%d_%d", c.n, b), BBox: c.box(block.GetLayout())}
		for i, para := range p.GetParagraphs() {
			if paraUsed[i] || !within(para.GetLayout(), block.GetLayout()) {
				continue
			}
			paraUsed[i] = true
			area.Paragraphs = append(area.Paragraphs, c.paragraph(para, b, i))
		}
		page.Areas = append(page.Areas, area)
	}
	for i, para := range p.GetParagraphs() {
		if !paraUsed[i] {
			page.Paragraphs = append(page.Paragraphs, c.paragraph(para, -1, i))
		}
	}
	for i, line := range p.GetLines() {
		if !c.assigned[i] {
			page.Lines = append(page.Lines, c.line(line, fmt.Sprintf("%d_page_%d", c.n, i)))
		}
	}
	return page
}

type docConverter struct {
	page     *documentaipb.Document_Page
	text     []rune
	w, h     float64
	n        int
	assigned map[int]bool // line indexes already placed in a paragraph
}

func (c *docConverter) paragraph(para *documentaipb.Document_Page_Paragraph, block, index int) hocr.Paragraph {
	prefix := fmt.Sprintf("%d_%d_%d", c.n, block, index)
	if block < 0 {
		prefix = fmt.Sprintf("%d_direct_%d", c.n, index)
	}
	out := hocr.Paragraph{ID: "par_" + prefix, BBox: c.box(para.GetLayout())}
	for i, line := range c.page.GetLines() {
		if c.assigned[i] || !within(line.GetLayout(), para.GetLayout()) {
			continue
		}
		c.assigned[i] = true
		out.Lines = append(out.Lines, c.line(line, fmt.Sprintf("%s_%d", prefix, i)))
	}
	return out
}

func (c *docConverter) line(line *documentaipb.Document_Page_Line, id string) hocr.Line {
	out := hocr.Line{ID: "line_" + id, BBox: c.box(line.GetLayout())}
	if langs := line.GetDetectedLanguages(); len(langs) > 0 {
		out.Lang = langs[0].GetLanguageCode()
	}
	for t, token := range c.page.GetTokens() {
		if !within(token.GetLayout(), line.GetLayout()) {
			continue
		}
		word := hocr.Word{
			ID:         fmt.Sprintf("word_%s_%d", id, t),
			Text:       cleanToken(c.anchorText(token.GetLayout())),
			BBox:       c.box(token.GetLayout()),
			Confidence: math.Round(float64(token.GetLayout().GetConfidence()) * 100),
		}
		if langs := token.GetDetectedLanguages(); len(langs) > 0 {
			word.Lang = langs[0].GetLanguageCode()
		}
		if word.Text == "" {
			continue
		}
		out.Words = append(out.Words, word)
	}
	return out
}

// box scales the normalized vertices of layout to image pixels.
func (c *docConverter) box(layout *documentaipb.Document_Page_Layout) hocr.BoundingBox {
	vs := layout.GetBoundingPoly().GetNormalizedVertices()
	if len(vs) == 0 {
		return hocr.BoundingBox{}
	}
	box := hocr.BoundingBox{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	for _, v := range vs {
		x, y := math.Round(float64(v.GetX())*c.w), math.Round(float64(v.GetY())*c.h)
		box.X1, box.Y1 = math.Min(box.X1, x), math.Min(box.Y1, y)
		box.X2, box.Y2 = math.Max(box.X2, x), math.Max(box.Y2, y)
	}
	return box
}

// anchorText returns the document text covered by layout's text anchor.
func (c *docConverter) anchorText(layout *documentaipb.Document_Page_Layout) string {
	var sb strings.Builder
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start := max(0, min(int(seg.GetStartIndex()), len(c.text)))
		end := max(start, min(int(seg.GetEndIndex()), len(c.text)))
		sb.WriteString(string(c.text[start:end]))
	}
	return sb.String()
}

// within reports whether the first text segment of child lies inside the
// first text segment of parent.
func within(child, parent *documentaipb.Document_Page_Layout) bool {
	cs := child.GetTextAnchor().GetTextSegments()
	ps := parent.GetTextAnchor().GetTextSegments()
	if len(cs) == 0 || len(ps) == 0 {
		return false
	}
	return cs[0].GetStartIndex() >= ps[0].GetStartIndex() && cs[0].GetEndIndex() <= ps[0].GetEndIndex()
}

func cleanToken(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
