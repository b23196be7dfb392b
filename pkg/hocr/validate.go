package hocr

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrMissingBBox is returned when a page or word has no usable bounding box.
	ErrMissingBBox = errors.New("missing bounding box")

	// ErrPageSizeMismatch is returned when the hOCR page box does not match
	// the dimensions of the image it was recognized from.
	ErrPageSizeMismatch = errors.New("hOCR page size does not match image size")
)

// sizeTolerance is the number of pixels the hOCR page box may differ from
// the image dimensions. Some engines report the last pixel index instead of
// the width.
const sizeTolerance = 1

// ValidatePage checks that page can be laid over an image of imageW x imageH
// pixels: the page box must match the image and every word carrying text
// must have a non-empty bounding box. A zero image size skips the size check.
func ValidatePage(page Page, imageW, imageH int) error {
	if page.BBox.IsEmpty() {
		return fmt.Errorf("page %q: %w", page.ID, ErrMissingBBox)
	}
	if imageW > 0 && imageH > 0 {
		if math.Abs(page.BBox.Width()-float64(imageW)) > sizeTolerance ||
			math.Abs(page.BBox.Height()-float64(imageH)) > sizeTolerance {
			return fmt.Errorf("%w: page box %.0fx%.0f, image %dx%d",
				ErrPageSizeMismatch, page.BBox.Width(), page.BBox.Height(), imageW, imageH)
		}
	}
	for _, w := range page.AllWords() {
		if w.Text == "" {
			continue
		}
		if w.BBox.IsEmpty() {
			return fmt.Errorf("word %q (%s): %w", w.Text, w.ID, ErrMissingBBox)
		}
	}
	return nil
}
