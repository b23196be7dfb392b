package pdfocr

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// ErrExistingOCR is returned when the input already carries an OCR layer.
var ErrExistingOCR = errors.New("file already has OCR")

// ocgPatterns find optional content group names in raw PDF bytes. They
// only see uncompressed objects.
var ocgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/Type\s*/OCG\s*/Name\s*\(((?:\\.|[^\\)])*)\)`),
	regexp.MustCompile(`/Name\s*\(((?:\\.|[^\\)])*)\)[\s\S]{0,50}?/Type\s*/OCG`),
}

// LayerCheckResult contains the results of checking for OCR layers
type LayerCheckResult struct {
	Layers       []string // All detected layers
	HasOCRLayer  bool     // True if the specified OCR layer exists
	OCRLayerName string   // Name of the detected OCR layer (if any)
	Warnings     []string // Any warnings about potential OCR layers
}

// Check fails with ErrExistingOCR when the PDF at path has an OCR layer of
// the generator's layer name and Force is not set.
func (g *Generator) Check(path string) error {
	res, err := DetectOCR(path, g.LayerName)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		g.Log.Warn().Str("path", path).Msg(w)
	}
	if !res.HasOCRLayer {
		return nil
	}
	if !g.Force {
		return fmt.Errorf("%w (layer %q), use --force to reapply", ErrExistingOCR, res.OCRLayerName)
	}
	g.Log.Warn().Str("layer", res.OCRLayerName).
		Msg("file already has OCR; reapplying due to --force will result in duplicate OCR data")
	return nil
}

// DetectOCR lists the optional content groups of the PDF at path and
// reports whether one of them is an OCR layer named after layerName.
func DetectOCR(path, layerName string) (LayerCheckResult, error) {
	var result LayerCheckResult

	layers, err := catalogLayers(path)
	if err != nil || len(layers) == 0 {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return result, fmt.Errorf("cannot analyze layers: %w", readErr)
		}
		layers = scanLayers(data)
	}
	result.Layers = layers

	pageLayer := regexp.MustCompile(fmt.Sprintf(`^%s\s*\(Page\s*\d+\)$`, regexp.QuoteMeta(layerName)))
	for _, layer := range layers {
		if layer == layerName || pageLayer.MatchString(layer) {
			result.HasOCRLayer = true
			result.OCRLayerName = layer
			break
		}
		if strings.Contains(strings.ToLower(layer), "ocr") {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Existing layer detected that might contain OCR: %s", layer))
		}
	}
	return result, nil
}

// catalogLayers reads the OCG names listed in the document catalog.
func catalogLayers(path string) (layers []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			layers, err = nil, fmt.Errorf("read %s: %v", path, r)
		}
	}()
	f, r, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ocgs := r.Trailer().Key("Root").Key("OCProperties").Key("OCGs")
	for i := 0; i < ocgs.Len(); i++ {
		if name := ocgs.Index(i).Key("Name").Text(); name != "" {
			layers = append(layers, name)
		}
	}
	return dedupe(layers), nil
}

// scanLayers attempts to find layer names in the raw PDF data.
func scanLayers(data []byte) []string {
	var layers []string
	for _, re := range ocgPatterns {
		for _, m := range re.FindAllSubmatch(data, -1) {
			layers = append(layers, decodePDFString(unescapePDFString(string(m[1]))))
		}
	}
	return dedupe(layers)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
