// Package pipeline drives one scanned PDF through extraction, recognition,
// overlay rendering and assembly inside a private workspace.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/assemble"
	"github.com/gardar/ocrsandwich/pkg/extract"
	"github.com/gardar/ocrsandwich/pkg/workspace"
)

// Policy decides what happens when a page cannot be recognized.
type Policy string

const (
	// Abort fails the whole run on the first recognition error.
	Abort Policy = "abort"
	// Skip renders the page without a text layer and carries on.
	Skip Policy = "skip"
)

// Recognizer turns one page image into an hOCR file at outPath.
type Recognizer interface {
	Recognize(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageLayout, error)
}

// Renderer builds single-page overlay PDFs.
type Renderer interface {
	// Check rejects inputs that must not be processed, such as documents
	// that already carry a text layer.
	Check(path string) error
	Render(ctx context.Context, img artifact.PageImage, layout artifact.PageLayout, outPath string) (artifact.PageOverlay, error)
	RenderBare(ctx context.Context, img artifact.PageImage, outPath string) (artifact.PageOverlay, error)
}

// Options tunes a run.
type Options struct {
	TempRoot   string // parent of the workspace, os.TempDir() when empty
	KeepTemp   bool
	OnOCRError Policy // Abort when empty
}

// Pipeline wires the components of a run together. All component fields
// are required.
type Pipeline struct {
	Extractor extract.Extractor
	Engine    Recognizer
	Overlay   Renderer
	Merger    assemble.Merger
	Options   Options
	Log       zerolog.Logger
}

// Result summarizes a finished run.
type Result struct {
	Input     string
	Output    string
	Pages     int
	Skipped   []int // one-based numbers of pages rendered without text
	Words     int
	Workspace string // set when the workspace was kept
	States    []State
	Duration  time.Duration
}

type run struct {
	p      *Pipeline
	log    zerolog.Logger
	result *Result
	ws     *workspace.Workspace
}

func (r *run) enter(s State) {
	r.result.States = append(r.result.States, s)
	r.log.Debug().Str("state", string(s)).Msg("Entering state")
}

// Run processes input into output. Pages are handled strictly in order and
// the output path is only written once every page succeeded. The workspace
// is removed before Run returns unless KeepTemp is set, whatever the
// outcome.
func (p *Pipeline) Run(ctx context.Context, input, output string) (*Result, error) {
	if p.Extractor == nil || p.Engine == nil || p.Overlay == nil || p.Merger == nil {
		return nil, errors.New("pipeline: missing component")
	}
	started := time.Now()
	r := &run{
		p:      p,
		log:    p.Log.With().Str("input", input).Logger(),
		result: &Result{Input: input, Output: output},
	}

	err := r.execute(ctx, input, output)
	if err != nil {
		r.enter(Failed)
	}
	if r.ws != nil {
		r.enter(Cleanup)
		if cerr := r.ws.Close(); cerr != nil {
			r.log.Error().Err(cerr).Str("workspace", r.ws.Dir()).Msg("Failed to remove workspace")
			if err == nil {
				err = newError(Workspace, Cleanup, 0, cerr)
				r.enter(Failed)
			}
		} else if r.ws.Kept() {
			r.result.Workspace = r.ws.Dir()
			r.log.Info().Str("workspace", r.ws.Dir()).Msg("Keeping workspace")
		}
	}
	r.result.Duration = time.Since(started)
	if err != nil {
		return r.result, err
	}
	r.enter(Done)
	r.log.Info().
		Str("output", output).
		Int("pages", r.result.Pages).
		Int("words", r.result.Words).
		Ints("skipped", r.result.Skipped).
		Dur("duration", r.result.Duration).
		Msg("OCR complete")
	return r.result, nil
}

// fail builds the error for a failed step. Once ctx is done the failure is
// reported as an interruption, even when the component returned its own
// error, such as a tool killed by the context.
func (r *run) fail(ctx context.Context, kind Kind, step State, page int, err error) *Error {
	if cerr := ctx.Err(); cerr != nil {
		kind = Interrupted
		if !errors.Is(err, cerr) {
			err = fmt.Errorf("%w: %w", cerr, err)
		}
	}
	return newError(kind, step, page, err)
}

func (r *run) execute(ctx context.Context, input, output string) error {
	r.enter(Init)
	doc, err := r.validate(input, output)
	if err != nil {
		return newError(InvalidInput, Init, 0, err)
	}
	r.result.Pages = doc.NumPages()
	r.log.Info().Int("pages", doc.NumPages()).Str("output", output).Msg("Starting OCR")

	ws, err := workspace.New(workspace.Options{Root: r.p.Options.TempRoot, Keep: r.p.Options.KeepTemp})
	if err != nil {
		return newError(Workspace, Init, 0, err)
	}
	r.ws = ws
	r.log.Debug().Str("workspace", ws.Dir()).Msg("Created workspace")

	r.enter(Extracting)
	images, err := r.extract(ctx, doc)
	if err != nil {
		return err
	}

	r.enter(Recognizing)
	layouts, err := r.recognize(ctx, images)
	if err != nil {
		return err
	}

	r.enter(Rendering)
	overlays, err := r.render(ctx, images, layouts)
	if err != nil {
		return err
	}

	r.enter(Assembling)
	if err := assemble.Assemble(ctx, r.p.Merger, overlays, output); err != nil {
		return r.fail(ctx, Assembly, Assembling, 0, err)
	}
	r.log.Debug().Str("merger", r.p.Merger.Name()).Str("output", output).Msg("Assembled output")
	return nil
}

func (r *run) validate(input, output string) (*extract.Document, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", input)
	}
	if err := distinct(input, output); err != nil {
		return nil, err
	}
	dir, err := os.Stat(filepath.Dir(output))
	if err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if !dir.IsDir() {
		return nil, fmt.Errorf("output directory %s is not a directory", filepath.Dir(output))
	}
	doc, err := extract.Inspect(input)
	if err != nil {
		return nil, err
	}
	if err := r.p.Overlay.Check(input); err != nil {
		return nil, err
	}
	return doc, nil
}

func distinct(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if in == out {
		return errors.New("input and output are the same file")
	}
	a, errA := os.Stat(in)
	b, errB := os.Stat(out)
	if errA == nil && errB == nil && os.SameFile(a, b) {
		return errors.New("input and output are the same file")
	}
	return nil
}

func (r *run) extract(ctx context.Context, doc *extract.Document) ([]artifact.PageImage, error) {
	started := time.Now()
	images, err := r.p.Extractor.Extract(ctx, doc, r.ws)
	if err != nil {
		return nil, r.fail(ctx, InvalidInput, Extracting, 0, err)
	}
	if len(images) != doc.NumPages() {
		return nil, newError(InvalidInput, Extracting, 0,
			fmt.Errorf("extracted %d images from %d pages", len(images), doc.NumPages()))
	}
	for i, img := range images {
		if img.Index != i {
			return nil, newError(InvalidInput, Extracting, i+1,
				fmt.Errorf("image %s out of order", img.Path))
		}
	}
	r.log.Info().
		Str("extractor", r.p.Extractor.Name()).
		Int("pages", len(images)).
		Dur("duration", time.Since(started)).
		Msg("Extracted page images")
	return images, nil
}

func (r *run) recognize(ctx context.Context, images []artifact.PageImage) ([]*artifact.PageLayout, error) {
	layouts := make([]*artifact.PageLayout, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(ctx, OCREngine, Recognizing, img.Number(), err)
		}
		started := time.Now()
		layout, err := r.p.Engine.Recognize(ctx, img, r.ws.PagePath(i, ".hocr"))
		if err != nil {
			if r.p.Options.OnOCRError != Skip || ctx.Err() != nil {
				return nil, r.fail(ctx, OCREngine, Recognizing, img.Number(), err)
			}
			r.log.Warn().Err(err).Int("page", img.Number()).Msg("Recognition failed, page will have no text layer")
			r.result.Skipped = append(r.result.Skipped, img.Number())
			continue
		}
		layouts[i] = &layout
		if layout.Words > 0 {
			r.result.Words += layout.Words
		}
		r.log.Info().
			Int("page", img.Number()).
			Int("words", layout.Words).
			Dur("duration", time.Since(started)).
			Msg("Recognized page")
	}
	return layouts, nil
}

func (r *run) render(ctx context.Context, images []artifact.PageImage, layouts []*artifact.PageLayout) ([]artifact.PageOverlay, error) {
	overlays := make([]artifact.PageOverlay, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(ctx, OverlayGeneration, Rendering, img.Number(), err)
		}
		out := r.ws.PagePath(i, ".pdf")
		var (
			overlay artifact.PageOverlay
			err     error
		)
		if layouts[i] == nil {
			overlay, err = r.p.Overlay.RenderBare(ctx, img, out)
		} else {
			overlay, err = r.p.Overlay.Render(ctx, img, *layouts[i], out)
		}
		if err != nil {
			return nil, r.fail(ctx, OverlayGeneration, Rendering, img.Number(), err)
		}
		r.log.Debug().Int("page", img.Number()).Str("path", overlay.Path).Bool("text", overlay.Text).Msg("Rendered overlay")
		overlays = append(overlays, overlay)
	}
	return overlays, nil
}
