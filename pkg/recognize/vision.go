package recognize

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/hocr"
)

// Vision recognizes pages with Google Cloud Vision DOCUMENT_TEXT_DETECTION.
type Vision struct {
	client   *vision.ImageAnnotatorClient
	hints    []string
	debugDir string
}

// NewVision dials the Vision API.
func NewVision(ctx context.Context, opts Options) (*Vision, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, clientOptions(opts.Google, "")...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return &Vision{
		client:   client,
		hints:    languageHints(opts.Language),
		debugDir: opts.DebugDir,
	}, nil
}

func (v *Vision) Name() string { return "vision" }

// Close closes the underlying Vision client.
func (v *Vision) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

func (v *Vision) Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return artifact.PageLayout{}, err
	}
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: data},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: v.hints},
		}},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return artifact.PageLayout{}, fmt.Errorf("Vision API call failed: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return artifact.PageLayout{}, fmt.Errorf("%w: empty Vision response", ErrNoOutput)
	}
	r := resp.GetResponses()[0]
	if st := r.GetError(); st != nil && st.GetCode() != 0 {
		return artifact.PageLayout{}, fmt.Errorf("Vision API error: %s", st.GetMessage())
	}
	if err := dumpResponse(v.debugDir, "vision", img, r); err != nil {
		return artifact.PageLayout{}, err
	}

	if err := writeHOCR(outPath, "Google Cloud Vision", visionPage(r.GetFullTextAnnotation(), img)); err != nil {
		return artifact.PageLayout{}, err
	}
	return layoutFor(img, outPath)
}

// visionPage converts a Vision text annotation to an hOCR page. Vision has
// no line level; lines are split at end-of-line breaks on the last symbol
// of a word.
func visionPage(ann *visionpb.TextAnnotation, img artifact.PageImage) hocr.Page {
	pages := ann.GetPages()
	w, h := float64(img.Width), float64(img.Height)
	if len(pages) > 0 && (w == 0 || h == 0) {
		w, h = float64(pages[0].GetWidth()), float64(pages[0].GetHeight())
	}
	page := newPage(img, w, h)
	if len(pages) == 0 {
		return page
	}
	vp := pages[0]
	page.Lang = visionLanguage(vp.GetProperty())

	n := img.Number()
	for b, block := range vp.GetBlocks() {
		area := hocr.Area{
			ID:   fmt.Sprintf("block_%d_%d", n, b),
			BBox: polyBox(block.GetBoundingBox()),
		}
		for p, para := range block.GetParagraphs() {
			prefix := fmt.Sprintf("%d_%d_%d", n, b, p)
			area.Paragraphs = append(area.Paragraphs, hocr.Paragraph{
				ID:    "par_" + prefix,
				Lang:  visionLanguage(para.GetProperty()),
				BBox:  polyBox(para.GetBoundingBox()),
				Lines: visionLines(para, prefix),
			})
		}
		page.Areas = append(page.Areas, area)
	}
	return page
}

func visionLines(para *visionpb.Paragraph, prefix string) []hocr.Line {
	var lines []hocr.Line
	var cur hocr.Line
	flush := func() {
		if len(cur.Words) > 0 {
			cur.ID = fmt.Sprintf("line_%s_%d", prefix, len(lines))
			lines = append(lines, cur)
		}
		cur = hocr.Line{}
	}

	for _, vw := range para.GetWords() {
		var text strings.Builder
		endsLine := false
		for _, s := range vw.GetSymbols() {
			text.WriteString(s.GetText())
			switch s.GetProperty().GetDetectedBreak().GetType() {
			case visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE,
				visionpb.TextAnnotation_DetectedBreak_LINE_BREAK,
				visionpb.TextAnnotation_DetectedBreak_HYPHEN:
				endsLine = true
			}
		}
		word := hocr.Word{
			ID:         fmt.Sprintf("word_%s_%d_%d", prefix, len(lines), len(cur.Words)),
			Text:       text.String(),
			BBox:       polyBox(vw.GetBoundingBox()),
			Confidence: math.Round(float64(vw.GetConfidence()) * 100),
			Lang:       visionLanguage(vw.GetProperty()),
		}
		cur.Words = append(cur.Words, word)
		cur.BBox = cur.BBox.Union(word.BBox)
		if endsLine {
			flush()
		}
	}
	flush()
	return lines
}

// polyBox returns the axis-aligned box around a polygon in pixels.
func polyBox(p *visionpb.BoundingPoly) hocr.BoundingBox {
	vs := p.GetVertices()
	if len(vs) == 0 {
		return hocr.BoundingBox{}
	}
	box := hocr.BoundingBox{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	for _, v := range vs {
		x, y := float64(v.GetX()), float64(v.GetY())
		box.X1, box.Y1 = math.Min(box.X1, x), math.Min(box.Y1, y)
		box.X2, box.Y2 = math.Max(box.X2, x), math.Max(box.Y2, y)
	}
	return box
}

func visionLanguage(p *visionpb.TextAnnotation_TextProperty) string {
	if langs := p.GetDetectedLanguages(); len(langs) > 0 {
		return langs[0].GetLanguageCode()
	}
	return ""
}
