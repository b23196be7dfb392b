//go:build gosseract

package recognize

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/gardar/ocrsandwich/pkg/artifact"
)

// Gosseract recognizes pages in-process through libtesseract. A client is
// created per page so no recognition state carries over between pages.
type Gosseract struct {
	Language string
}

func newGosseract(opts Options) (Engine, error) {
	return &Gosseract{Language: opts.Language}, nil
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) Close() error { return nil }

func (g *Gosseract) Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error) {
	if err := ctx.Err(); err != nil {
		return artifact.PageLayout{}, err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetImage(img.Path); err != nil {
		return artifact.PageLayout{}, fmt.Errorf("set image: %w", err)
	}
	lang := g.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	if err := c.SetLanguage(strings.Split(lang, "+")...); err != nil {
		return artifact.PageLayout{}, fmt.Errorf("set languages: %w", err)
	}
	if img.DPI > 0 {
		dpi := strconv.Itoa(int(math.Round(img.DPI)))
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), dpi); err != nil {
			return artifact.PageLayout{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	out, err := c.HOCRText()
	if err != nil {
		return artifact.PageLayout{}, fmt.Errorf("recognize: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return artifact.PageLayout{}, err
	}
	return layoutFor(img, outPath)
}
