package recognize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/pkg/artifact"
)

// TesseractCLI runs the tesseract binary with its hocr config.
type TesseractCLI struct {
	Binary   string
	Language string
	Runner   command.Runner
}

func (t *TesseractCLI) Name() string { return "tesseract" }

func (t *TesseractCLI) Close() error { return nil }

func (t *TesseractCLI) Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	base := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	args := []string{img.Path, base, "-l", t.language()}
	if img.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(int(math.Round(img.DPI))))
	}
	args = append(args, "hocr")
	if err := t.Runner.Run(ctx, bin, args...); err != nil {
		return artifact.PageLayout{}, err
	}
	if err := settle(base, outPath); err != nil {
		return artifact.PageLayout{}, err
	}
	return layoutFor(img, outPath)
}

func (t *TesseractCLI) language() string {
	if t.Language == "" {
		return DefaultLanguage
	}
	return t.Language
}

// settle moves tesseract's output to outPath. Releases before 3.03 name
// the file .html instead of .hocr.
func settle(base, outPath string) error {
	for _, ext := range []string{".hocr", ".html"} {
		src := base + ext
		if _, err := os.Stat(src); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if src == outPath {
			return nil
		}
		return os.Rename(src, outPath)
	}
	return fmt.Errorf("%w: %s.hocr", ErrNoOutput, base)
}
