// ocr turns a scanned PDF into a searchable one.
//
// Every page is rasterized, run through an OCR engine and rebuilt as a PDF
// page that shows the original image with an invisible, selectable text
// layer on top. The pages are then merged into the output document. The
// output is only written when every page succeeded.
//
// Usage:
//
//	ocr <input.pdf> <output.pdf> [flags]
//
// Settings are read, in increasing priority, from built-in defaults, an
// optional YAML file (--config), a .env file and OCR_* environment
// variables, and finally the flags. A minimal configuration file:
//
//	language: eng+deu
//	dpi: 300
//	engine: tesseract
//	on_ocr_error: abort
//
// Examples:
//
//	ocr scan.pdf scan-searchable.pdf
//	ocr -l deu --dpi 400 brief.pdf brief-ocr.pdf
//	ocr --engine documentai --config gcp.yml invoice.pdf invoice-ocr.pdf
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/internal/config"
	"github.com/gardar/ocrsandwich/internal/logger"
	"github.com/gardar/ocrsandwich/pkg/assemble"
	"github.com/gardar/ocrsandwich/pkg/extract"
	"github.com/gardar/ocrsandwich/pkg/pdfocr"
	"github.com/gardar/ocrsandwich/pkg/pipeline"
	"github.com/gardar/ocrsandwich/pkg/recognize"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "ocr <input.pdf> <output.pdf>",
		Short: "Make a scanned PDF searchable",
		Long: `ocr extracts the page images of a scanned PDF, recognizes their text and
writes a new PDF in which every page carries an invisible text layer over the
original image. The output file is replaced only after all pages succeeded.`,
		Version:       version,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.String("config", "", "YAML configuration file")
	f.String("env-file", ".env", "environment file to load if present")
	f.StringP("lang", "l", defaults.Language, "OCR language, e.g. eng or eng+deu")
	f.Int("dpi", defaults.DPI, "page rasterization resolution")
	f.Bool("keep-temp", false, "keep the workspace with intermediate files")
	f.String("temp-dir", "", "parent directory for the workspace (default system temp dir)")
	f.String("engine", defaults.Engine, "OCR engine: tesseract, gosseract, vision or documentai")
	f.String("extractor", defaults.Extractor, "page image extractor: pdftoppm, pdfimages or fitz")
	f.String("assembler", defaults.Assembler, "page merger: pdfcpu, gs or pdfunite")
	f.String("mode", defaults.Overlay.Mode, "overlay mode: image redraws the page image, import keeps the original page")
	f.String("on-ocr-error", defaults.OnOCRError, "abort the run or skip the text layer of pages that fail OCR")
	f.Bool("force", false, "process input that already has an OCR layer")
	f.Bool("debug", false, "draw recognized text visibly with word boxes")
	f.String("layer-name", defaults.Overlay.LayerName, "base name of the OCR text layer")
	f.String("font-file", "", "TrueType font for text outside Latin-1")
	f.Duration("timeout", 0, "abort the run after this long (0 means no limit)")
	f.String("log-level", defaults.Log.Level, "log level: trace, debug, info, warn or error")
	f.String("log-format", defaults.Log.Format, "log format: console or json")
	return cmd
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set explicitly.
func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	envFile, _ := flags.GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	applyFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	strs := map[string]*string{
		"lang":         &cfg.Language,
		"temp-dir":     &cfg.TempDir,
		"engine":       &cfg.Engine,
		"extractor":    &cfg.Extractor,
		"assembler":    &cfg.Assembler,
		"mode":         &cfg.Overlay.Mode,
		"on-ocr-error": &cfg.OnOCRError,
		"layer-name":   &cfg.Overlay.LayerName,
		"font-file":    &cfg.Overlay.FontFile,
		"log-level":    &cfg.Log.Level,
		"log-format":   &cfg.Log.Format,
	}
	for name, dst := range strs {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	bools := map[string]*bool{
		"keep-temp": &cfg.KeepTemp,
		"force":     &cfg.Overlay.Force,
		"debug":     &cfg.Overlay.Debug,
	}
	for name, dst := range bools {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}
	if flags.Changed("dpi") {
		cfg.DPI, _ = flags.GetInt("dpi")
	}
	if flags.Changed("timeout") {
		cfg.Timeout, _ = flags.GetDuration("timeout")
	}
}

func run(parent context.Context, cfg *config.Config, input, output string) error {
	closer, err := logger.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := logger.WithComponent("ocr")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	p, closeEngine, err := build(ctx, cfg, input)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEngine(); err != nil {
			log.Warn().Err(err).Msg("Failed to close OCR engine")
		}
	}()

	log.Info().
		Str("input", input).
		Str("output", output).
		Str("engine", cfg.Engine).
		Str("language", cfg.Language).
		Int("dpi", cfg.DPI).
		Msg("Starting")

	res, err := p.Run(ctx, input, output)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error().Dur("timeout", cfg.Timeout).Msg("Run timed out")
		}
		return err
	}

	ev := log.Info().
		Str("output", res.Output).
		Int("pages", res.Pages).
		Int("words", res.Words).
		Dur("elapsed", res.Duration)
	if info, err := os.Stat(res.Output); err == nil {
		ev = ev.Int64("bytes", info.Size())
	}
	if len(res.Skipped) > 0 {
		ev = ev.Ints("pages_without_text", res.Skipped)
	}
	if res.Workspace != "" {
		ev = ev.Str("workspace", res.Workspace)
	}
	ev.Msg("Searchable PDF written")
	return nil
}

// build wires the configured components into a pipeline. The returned
// function releases the OCR engine.
func build(ctx context.Context, cfg *config.Config, input string) (*pipeline.Pipeline, func() error, error) {
	runner := command.Runner{Log: logger.WithComponent("exec")}

	extractor, err := extract.New(cfg.Extractor, extract.Options{
		DPI:       cfg.DPI,
		Pdftoppm:  cfg.Tools.Pdftoppm,
		Pdfimages: cfg.Tools.Pdfimages,
		Runner:    runner,
	})
	if err != nil {
		return nil, nil, err
	}

	font := pdfocr.DefaultFont
	font.Name = cfg.Overlay.FontName
	font.Size = cfg.Overlay.FontSize
	font.File = cfg.Overlay.FontFile
	overlay, err := pdfocr.New(pdfocr.Options{
		Mode:      cfg.Overlay.Mode,
		Source:    input,
		LayerName: cfg.Overlay.LayerName,
		Font:      font,
		Debug:     cfg.Overlay.Debug,
		Force:     cfg.Overlay.Force,
	}, logger.WithComponent("overlay"))
	if err != nil {
		return nil, nil, err
	}

	merger, err := assemble.New(cfg.Assembler, assemble.Options{
		Ghostscript: cfg.Tools.Ghostscript,
		Pdfunite:    cfg.Tools.Pdfunite,
		Runner:      runner,
	})
	if err != nil {
		return nil, nil, err
	}

	engine, err := recognize.New(ctx, cfg.Engine, recognize.Options{
		Language:  cfg.Language,
		Tesseract: cfg.Tools.Tesseract,
		Runner:    runner,
		Google: recognize.GoogleOptions{
			ProjectID:       cfg.Google.ProjectID,
			Location:        cfg.Google.Location,
			ProcessorID:     cfg.Google.ProcessorID,
			CredentialsFile: cfg.Google.CredentialsFile,
		},
		DebugDir: cfg.Google.DebugDir,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", pipeline.ErrOCREngine, err)
	}

	p := &pipeline.Pipeline{
		Extractor: extractor,
		Engine:    engine,
		Overlay:   overlay,
		Merger:    merger,
		Options: pipeline.Options{
			TempRoot:   cfg.TempDir,
			KeepTemp:   cfg.KeepTemp,
			OnOCRError: pipeline.Policy(cfg.OnOCRError),
		},
		Log: logger.WithComponent("pipeline"),
	}
	return p, engine.Close, nil
}
