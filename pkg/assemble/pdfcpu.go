package assemble

import (
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating its config directory under the user's home.
	api.DisableConfigDir()
}

// Pdfcpu merges in-process with pdfcpu.
type Pdfcpu struct{}

func (Pdfcpu) Name() string { return "pdfcpu" }

func (Pdfcpu) Merge(ctx context.Context, pages []string, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conf := model.NewDefaultConfiguration()
	// Plain objects keep the OCR layer dictionaries visible to a raw scan.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	if len(pages) == 1 {
		return api.OptimizeFile(pages[0], out, conf)
	}
	return api.MergeCreateFile(pages, out, false, conf)
}
