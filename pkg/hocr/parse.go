package hocr

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/htmlindex"
)

// ErrNoPages is returned when a document contains no ocr_page element.
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

// lineClasses are the hOCR classes tesseract uses for line-level elements.
var lineClasses = []string{"ocr_line", "ocr_header", "ocr_caption", "ocr_textfloat"}

// ParseFile reads and parses an hOCR file.
func ParseFile(path string) (HOCR, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HOCR{}, err
	}
	return ParseHOCR(data)
}

// ParseHOCR converts raw hOCR data into a structured HOCR object.
func ParseHOCR(data []byte) (HOCR, error) {
	result := HOCR{Metadata: make(map[string]string)}

	decoded, err := decodeCharset(data)
	if err != nil {
		return result, err
	}

	doc, err := html.Parse(bytes.NewReader(decoded))
	if err != nil {
		return result, fmt.Errorf("parse hOCR markup: %w", err)
	}

	extractDocumentMeta(&result, doc)

	for _, n := range collect(doc, "ocr_page") {
		result.Pages = append(result.Pages, processPage(n))
	}
	if len(result.Pages) == 0 {
		return result, ErrNoPages
	}
	return result, nil
}

// decodeCharset converts the document to UTF-8 according to its meta charset.
func decodeCharset(data []byte) ([]byte, error) {
	const marker = "charset="
	idx := bytes.Index(bytes.ToLower(data), []byte(marker))
	if idx < 0 {
		return data, nil
	}
	snippet := string(data[idx+len(marker):])
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	fields := strings.FieldsFunc(snippet, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return data, nil
	}
	name := strings.ToLower(fields[0])
	if name == "utf-8" || name == "utf8" {
		return data, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported hOCR charset %q: %w", name, err)
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return decoded, nil
}

// ParseTitle breaks down an hOCR title attribute into its components
// Example input: "bbox 100 200 300 400; x_wconf 95"
func ParseTitle(title string) map[string][]string {
	result := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			result[items[0]] = items[1:]
		}
	}
	return result
}

// ParseBoundingBoxFromTitle extracts a bounding box from a title string.
// It returns nil if there is no bbox property or it is malformed.
func ParseBoundingBoxFromTitle(title string) *BoundingBox {
	bbox, ok := ParseTitle(title)["bbox"]
	if !ok || len(bbox) < 4 {
		return nil
	}
	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(bbox[i], 64)
		if err != nil {
			return nil
		}
		coords[i] = v
	}
	result := NewBoundingBox(coords[0], coords[1], coords[2], coords[3])
	return &result
}

// extractDocumentMeta extracts document-level metadata from the html and
// head elements.
func extractDocumentMeta(result *HOCR, doc *html.Node) {
	root := findElement(doc, "html")
	if root == nil {
		return
	}
	for _, a := range root.Attr {
		if a.Key == "lang" || a.Key == "xml:lang" {
			result.Language = a.Val
		}
	}

	head := findElement(root, "head")
	if head == nil {
		return
	}
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "title":
			if c.FirstChild != nil {
				result.Title = strings.TrimSpace(c.FirstChild.Data)
			}
		case "meta":
			name, content := getAttrVal(c, "name"), getAttrVal(c, "content")
			if name == "" || content == "" {
				continue
			}
			switch name {
			case "ocr-system", "ocr-capabilities", "ocr-number-of-pages", "ocr-langs":
				result.Metadata[name] = content
			case "description":
				result.Description = content
			case "dc.language":
				result.Language = content
			}
		}
	}
}

// element holds the attributes shared by every hOCR element.
type element struct {
	id       string
	lang     string
	title    string
	bbox     BoundingBox
	props    map[string][]string
	metadata map[string]string
}

// readElement extracts id, lang and title properties. Properties listed in
// known are left out of the metadata map.
func readElement(n *html.Node, known ...string) element {
	e := element{metadata: make(map[string]string)}
	e.id = getAttrVal(n, "id")
	e.lang = getAttrVal(n, "lang")
	e.title = getAttrVal(n, "title")
	e.props = ParseTitle(e.title)
	if bbox := ParseBoundingBoxFromTitle(e.title); bbox != nil {
		e.bbox = *bbox
	}
	skip := map[string]bool{"bbox": true}
	for _, k := range known {
		skip[k] = true
	}
	for k, v := range e.props {
		if !skip[k] {
			e.metadata[k] = strings.Join(v, " ")
		}
	}
	return e
}

func processPage(n *html.Node) Page {
	e := readElement(n, "image", "ppageno")
	page := Page{
		ID:       e.id,
		Title:    e.title,
		Lang:     e.lang,
		BBox:     e.bbox,
		Metadata: e.metadata,
	}
	if image := e.props["image"]; len(image) > 0 {
		page.ImageName = strings.Trim(strings.Join(image, " "), `"`)
	}
	if ppageno := e.props["ppageno"]; len(ppageno) > 0 {
		page.PageNumber, _ = strconv.Atoi(ppageno[0])
	}

	for _, c := range collect(n, withLines("ocr_carea", "ocr_par")...) {
		switch {
		case hasClass(c, "ocr_carea"):
			page.Areas = append(page.Areas, processArea(c))
		case hasClass(c, "ocr_par"):
			page.Paragraphs = append(page.Paragraphs, processParagraph(c))
		default:
			page.Lines = append(page.Lines, processLine(c))
		}
	}
	return page
}

func processArea(n *html.Node) Area {
	e := readElement(n)
	area := Area{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata}

	for _, c := range collect(n, withLines("ocr_par", "ocrx_word")...) {
		switch {
		case hasClass(c, "ocr_par"):
			area.Paragraphs = append(area.Paragraphs, processParagraph(c))
		case hasClass(c, "ocrx_word"):
			area.Words = append(area.Words, processWord(c))
		default:
			area.Lines = append(area.Lines, processLine(c))
		}
	}
	return area
}

func processParagraph(n *html.Node) Paragraph {
	e := readElement(n)
	paragraph := Paragraph{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata}

	for _, c := range collect(n, withLines("ocrx_word")...) {
		if hasClass(c, "ocrx_word") {
			paragraph.Words = append(paragraph.Words, processWord(c))
		} else {
			paragraph.Lines = append(paragraph.Lines, processLine(c))
		}
	}
	return paragraph
}

func processLine(n *html.Node) Line {
	e := readElement(n, "baseline")
	line := Line{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata}
	for _, cls := range lineClasses {
		if hasClass(n, cls) {
			line.Kind = cls
			break
		}
	}
	if baseline := e.props["baseline"]; len(baseline) > 0 {
		line.Baseline = strings.Join(baseline, " ")
	}

	for _, c := range collect(n, "ocrx_word") {
		line.Words = append(line.Words, processWord(c))
	}
	return line
}

func processWord(n *html.Node) Word {
	e := readElement(n, "x_wconf", "lang")
	word := Word{ID: e.id, Lang: e.lang, BBox: e.bbox, Metadata: e.metadata}
	if conf := e.props["x_wconf"]; len(conf) > 0 {
		word.Confidence, _ = strconv.ParseFloat(conf[0], 64)
	}
	if lang := e.props["lang"]; len(lang) > 0 {
		word.Lang = lang[0]
	}
	word.Text = extractTextContent(n)
	return word
}

// collect returns the outermost descendants of n that carry one of the given
// classes, in document order. Matching nodes are not searched further, their
// children belong to them.
func collect(n *html.Node, classes ...string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				matched := false
				for _, cls := range classes {
					if hasClass(c, cls) {
						matched = true
						break
					}
				}
				if matched {
					found = append(found, c)
					continue
				}
			}
			walk(c)
		}
	}
	walk(n)
	return found
}

func withLines(classes ...string) []string {
	return append(classes, lineClasses...)
}

// hasClass reports whether the class attribute of n contains cls as a token.
func hasClass(n *html.Node, cls string) bool {
	for _, c := range strings.Fields(getAttrVal(n, "class")) {
		if c == cls {
			return true
		}
	}
	return false
}

// extractTextContent gets all text from a node and its children
func extractTextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(extractTextContent(c))
	}
	return strings.TrimSpace(sb.String())
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Get the value of a specific attribute from a node
func getAttrVal(n *html.Node, attrName string) string {
	for _, attr := range n.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}
