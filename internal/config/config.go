// Package config holds the settings of the ocr command. Values come from
// built-in defaults, an optional YAML file, the environment and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gardar/ocrsandwich/internal/logger"
)

type Config struct {
	Language   string        `yaml:"language"`
	DPI        int           `yaml:"dpi"`
	KeepTemp   bool          `yaml:"keep_temp"`
	TempDir    string        `yaml:"temp_dir"`
	Engine     string        `yaml:"engine"`
	Extractor  string        `yaml:"extractor"`
	Assembler  string        `yaml:"assembler"`
	OnOCRError string        `yaml:"on_ocr_error"`
	Timeout    time.Duration `yaml:"timeout"`

	Overlay Overlay          `yaml:"overlay"`
	Tools   Tools            `yaml:"tools"`
	Google  Google           `yaml:"google"`
	Log     logger.LogConfig `yaml:"log"`
}

type Overlay struct {
	Mode      string  `yaml:"mode"` // image or import
	LayerName string  `yaml:"layer_name"`
	Force     bool    `yaml:"force"`
	Debug     bool    `yaml:"debug"`
	FontName  string  `yaml:"font_name"`
	FontSize  float64 `yaml:"font_size"`
	FontFile  string  `yaml:"font_file"` // TrueType font for non Latin-1 text
}

// Tools names the external binaries. Plain names are looked up in PATH.
type Tools struct {
	Pdftoppm    string `yaml:"pdftoppm"`
	Pdfimages   string `yaml:"pdfimages"`
	Tesseract   string `yaml:"tesseract"`
	Ghostscript string `yaml:"ghostscript"`
	Pdfunite    string `yaml:"pdfunite"`
}

type Google struct {
	ProjectID       string `yaml:"project_id"`
	Location        string `yaml:"location"`
	ProcessorID     string `yaml:"processor_id"`
	CredentialsFile string `yaml:"credentials_file"`
	DebugDir        string `yaml:"debug_dir"` // raw API responses are written here when set
}

var (
	Engines    = []string{"tesseract", "gosseract", "vision", "documentai"}
	Extractors = []string{"pdftoppm", "pdfimages", "fitz"}
	Assemblers = []string{"pdfcpu", "gs", "ghostscript", "pdfunite"}
	Modes      = []string{"image", "import"}
	Policies   = []string{"abort", "skip"}
)

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		Language:   "eng",
		DPI:        300,
		Engine:     "tesseract",
		Extractor:  "pdftoppm",
		Assembler:  "pdfcpu",
		OnOCRError: "abort",
		Overlay: Overlay{
			Mode:      "image",
			LayerName: "OCR Text",
			FontName:  "Helvetica",
			FontSize:  10,
		},
		Tools: Tools{
			Pdftoppm:    "pdftoppm",
			Pdfimages:   "pdfimages",
			Tesseract:   "tesseract",
			Ghostscript: "gs",
			Pdfunite:    "pdfunite",
		},
		Google: Google{Location: "us"},
		Log:    logger.DefaultConfig(),
	}
}

// LoadFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays OCR_* variables, the Google Cloud variables and the
// LOG_* variables onto c.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"OCR_LANGUAGE":             &c.Language,
		"OCR_TEMP_DIR":             &c.TempDir,
		"OCR_ENGINE":               &c.Engine,
		"OCR_EXTRACTOR":            &c.Extractor,
		"OCR_ASSEMBLER":            &c.Assembler,
		"OCR_ON_OCR_ERROR":         &c.OnOCRError,
		"OCR_OVERLAY_MODE":         &c.Overlay.Mode,
		"OCR_LAYER_NAME":           &c.Overlay.LayerName,
		"OCR_FONT_FILE":            &c.Overlay.FontFile,
		"OCR_PDFTOPPM":             &c.Tools.Pdftoppm,
		"OCR_PDFIMAGES":            &c.Tools.Pdfimages,
		"OCR_TESSERACT":            &c.Tools.Tesseract,
		"OCR_GHOSTSCRIPT":          &c.Tools.Ghostscript,
		"OCR_PDFUNITE":             &c.Tools.Pdfunite,
		"OCR_DEBUG_DIR":            &c.Google.DebugDir,
		"GOOGLE_CLOUD_PROJECT":     &c.Google.ProjectID,
		"GOOGLE_CLOUD_LOCATION":    &c.Google.Location,
		"DOCUMENT_AI_PROCESSOR_ID": &c.Google.ProcessorID,
		"LOG_LEVEL":                &c.Log.Level,
		"LOG_FORMAT":               &c.Log.Format,
		"LOG_TIME_FORMAT":          &c.Log.TimeFormat,
		"LOG_OUTPUT":               &c.Log.Output,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"OCR_KEEP_TEMP": &c.KeepTemp,
		"OCR_FORCE":     &c.Overlay.Force,
		"OCR_DEBUG":     &c.Overlay.Debug,
	}
	for key, dst := range bools {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("OCR_DPI"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OCR_DPI: %w", err)
		}
		c.DPI = n
	}
	if v := os.Getenv("OCR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OCR_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	oneOf := func(field, value string, allowed []string) {
		if !slices.Contains(allowed, value) {
			errs = append(errs, fmt.Errorf("%s: unknown value %q (want one of %s)", field, value, strings.Join(allowed, ", ")))
		}
	}
	oneOf("engine", c.Engine, Engines)
	oneOf("extractor", c.Extractor, Extractors)
	oneOf("assembler", c.Assembler, Assemblers)
	oneOf("overlay.mode", c.Overlay.Mode, Modes)
	oneOf("on_ocr_error", c.OnOCRError, Policies)

	if c.DPI <= 0 {
		errs = append(errs, fmt.Errorf("dpi must be positive, got %d", c.DPI))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Overlay.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("overlay.font_size must be positive, got %g", c.Overlay.FontSize))
	}
	if c.Language == "" && c.Engine != "documentai" {
		errs = append(errs, errors.New("language is required"))
	}

	if c.Engine == "documentai" && (c.Google.ProjectID == "" || c.Google.Location == "" || c.Google.ProcessorID == "") {
		errs = append(errs, errors.New("documentai engine needs google.project_id, google.location and google.processor_id"))
	}
	return errors.Join(errs...)
}
