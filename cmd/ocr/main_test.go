package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gardar/ocrsandwich/pkg/extract"
	"github.com/gardar/ocrsandwich/pkg/pipeline"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ocr.yml")
	if err := os.WriteFile(cfgPath, []byte("dpi: 200\nlanguage: fra\nassembler: pdfunite\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envPath, []byte("OCR_EXTRACTOR=fitz\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("OCR_EXTRACTOR") })
	t.Setenv("OCR_LANGUAGE", "deu")

	cmd := newRootCmd()
	err := cmd.Flags().Parse([]string{
		"--config", cfgPath,
		"--env-file", envPath,
		"--dpi", "400",
		"--keep-temp",
		"--timeout", "2m",
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if cfg.DPI != 400 {
		t.Errorf("DPI = %d, want flag value 400", cfg.DPI)
	}
	if cfg.Language != "deu" {
		t.Errorf("Language = %q, want environment value deu", cfg.Language)
	}
	if cfg.Assembler != "pdfunite" {
		t.Errorf("Assembler = %q, want file value pdfunite", cfg.Assembler)
	}
	if cfg.Extractor != "fitz" {
		t.Errorf("Extractor = %q, want .env value fitz", cfg.Extractor)
	}
	if !cfg.KeepTemp || cfg.Timeout != 2*time.Minute {
		t.Errorf("KeepTemp = %v, Timeout = %s", cfg.KeepTemp, cfg.Timeout)
	}
	if cfg.Engine != "tesseract" {
		t.Errorf("Engine = %q, want default", cfg.Engine)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.Flags().Parse([]string{"--env-file", "", "--engine", "abbyy"}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd.Flags()); err == nil {
		t.Error("unknown engine accepted")
	}
}

func TestArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"only-one.pdf"})
	cmd.SetOut(os.Stderr)
	if err := cmd.Execute(); err == nil {
		t.Error("single argument accepted")
	}
}

func TestExecuteInvalidInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "notes.pdf")
	if err := os.WriteFile(input, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.pdf")

	cmd := newRootCmd()
	cmd.SetArgs([]string{input, output, "--env-file", "", "--temp-dir", dir, "--log-level", "error"})
	err := cmd.Execute()
	if !errors.Is(err, pipeline.ErrInvalidInput) || !errors.Is(err, extract.ErrNotPDF) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Errorf("output written on failure")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp dir holds %d entries, want only the input", len(entries))
	}
}
