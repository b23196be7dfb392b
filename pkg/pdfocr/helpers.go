package pdfocr

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var pdfEscapes = strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\r`, "\r", `\n`, "\n")

func unescapePDFString(s string) string {
	return pdfEscapes.Replace(s)
}

// decodePDFString decodes a PDF text string, which is UTF-16BE when it
// starts with a byte order mark.
func decodePDFString(s string) string {
	if !strings.HasPrefix(s, "\xfe\xff") {
		return s
	}
	dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	out, err := dec.String(s)
	if err != nil {
		return s
	}
	return out
}
