package assemble

import (
	"context"

	"github.com/gardar/ocrsandwich/internal/command"
)

// Ghostscript merges with gs and its pdfwrite device.
type Ghostscript struct {
	Binary string
	Runner command.Runner
}

func (g *Ghostscript) Name() string { return "gs" }

func (g *Ghostscript) Merge(ctx context.Context, pages []string, out string) error {
	bin := g.Binary
	if bin == "" {
		bin = "gs"
	}
	args := []string{"-q", "-dNOPAUSE", "-dBATCH", "-dSAFER", "-sDEVICE=pdfwrite", "-sOutputFile=" + out}
	return g.Runner.Run(ctx, bin, append(args, pages...)...)
}

// Pdfunite merges with Poppler's pdfunite.
type Pdfunite struct {
	Binary string
	Runner command.Runner
}

func (p *Pdfunite) Name() string { return "pdfunite" }

func (p *Pdfunite) Merge(ctx context.Context, pages []string, out string) error {
	bin := p.Binary
	if bin == "" {
		bin = "pdfunite"
	}
	args := append(append([]string(nil), pages...), out)
	return p.Runner.Run(ctx, bin, args...)
}
