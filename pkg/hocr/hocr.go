// Package hocr parses, validates and generates hOCR, the HTML-based layout
// format tesseract emits and the overlay generator consumes.
//
// The object model mirrors the hOCR hierarchy:
// Document → Pages → Areas → Paragraphs → Lines → Words.
// Every element carries a BoundingBox in the pixel space of the page image
// it was recognized from.
//
// Main Functions:
//
// - ParseHOCR / ParseFile: read hOCR markup into the object model
// - GenerateHOCRDocument: render the object model back to hOCR markup
// - ValidatePage: check a page is usable for placing an invisible text layer
// - ExtractHOCRText: linearize recognized text, page by page
package hocr
