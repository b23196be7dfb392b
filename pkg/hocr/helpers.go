package hocr

import (
	"strings"
)

// AllLines returns every line on the page in reading order: areas first, then
// paragraphs and lines attached directly to the page. Words that have no
// line parent are grouped into a synthetic line per container.
func (p Page) AllLines() []Line {
	var lines []Line
	for _, area := range p.Areas {
		for _, para := range area.Paragraphs {
			lines = append(lines, para.lines()...)
		}
		lines = append(lines, area.Lines...)
		lines = appendLoose(lines, area.ID, area.Words)
	}
	for _, para := range p.Paragraphs {
		lines = append(lines, para.lines()...)
	}
	return append(lines, p.Lines...)
}

// AllWords returns every word on the page in reading order.
func (p Page) AllWords() []Word {
	var words []Word
	for _, line := range p.AllLines() {
		words = append(words, line.Words...)
	}
	return words
}

func (para Paragraph) lines() []Line {
	return appendLoose(append([]Line(nil), para.Lines...), para.ID, para.Words)
}

func appendLoose(lines []Line, parentID string, words []Word) []Line {
	if len(words) == 0 {
		return lines
	}
	loose := Line{ID: parentID + "_words", Words: words}
	for _, w := range words {
		loose.BBox = loose.BBox.Union(w.BBox)
	}
	return append(lines, loose)
}

// ExtractHOCRText extracts all text from an hOCR document. Words are
// separated by spaces, lines by newlines and pages by a blank line.
func ExtractHOCRText(hocrDoc *HOCR) string {
	var builder strings.Builder
	for i, page := range hocrDoc.Pages {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(PageText(page))
	}
	return builder.String()
}

// PageText returns the text of a single page, one line per hOCR line.
func PageText(page Page) string {
	var builder strings.Builder
	seen := make(map[string]bool)
	for _, line := range page.AllLines() {
		if line.ID != "" {
			if seen[line.ID] {
				continue
			}
			seen[line.ID] = true
		}
		texts := make([]string, 0, len(line.Words))
		for _, w := range line.Words {
			if w.Text != "" {
				texts = append(texts, w.Text)
			}
		}
		if len(texts) == 0 {
			continue
		}
		builder.WriteString(strings.Join(texts, " "))
		builder.WriteString("\n")
	}
	return builder.String()
}
