package extract

import "math"

// ComputeDPI deduces the scan resolution of an image that fills a page of
// pageW x pageH points and measures imageW x imageH pixels.
func ComputeDPI(pageW, pageH float64, imageW, imageH int) (int, int) {
	if pageW <= 0 || pageH <= 0 {
		return 0, 0
	}
	dpiW := int(math.Round(float64(imageW) * 72 / pageW))
	dpiH := int(math.Round(float64(imageH) * 72 / pageH))
	return dpiW, dpiH
}
