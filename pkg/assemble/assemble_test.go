package assemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/gardar/ocrsandwich/internal/command"
	"github.com/gardar/ocrsandwich/internal/testpdf"
	"github.com/gardar/ocrsandwich/pkg/artifact"
	"github.com/gardar/ocrsandwich/pkg/extract"
)

var pageSizes = []testpdf.Page{
	testpdf.Letter("ONE"),
	{Width: 842, Height: 595, Text: "TWO"},
	{Width: 420, Height: 595, Text: "THREE"},
}

func writePages(t *testing.T) []artifact.PageOverlay {
	t.Helper()
	dir := t.TempDir()
	overlays := make([]artifact.PageOverlay, len(pageSizes))
	for i, p := range pageSizes {
		path := filepath.Join(dir, fmt.Sprintf("page-%04d.pdf", i+1))
		if err := testpdf.Write(path, p); err != nil {
			t.Fatal(err)
		}
		overlays[i] = artifact.PageOverlay{Index: i, Path: path, Text: true}
	}
	return overlays
}

func checkOutput(t *testing.T, output string) {
	t.Helper()
	doc, err := extract.Inspect(output)
	if err != nil {
		t.Fatalf("Inspect(output) error = %v", err)
	}
	if doc.NumPages() != len(pageSizes) {
		t.Fatalf("output has %d pages, want %d", doc.NumPages(), len(pageSizes))
	}
	for i, want := range pageSizes {
		got := doc.PageSize(i)
		if math.Abs(got.Width-want.Width) > 1 || math.Abs(got.Height-want.Height) > 1 {
			t.Errorf("page %d size = %+v, want %vx%v", i+1, got, want.Width, want.Height)
		}
	}
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".*.tmp"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func TestAssemblePdfcpu(t *testing.T) {
	overlays := writePages(t)
	// Out of order input is sorted by page index.
	overlays[0], overlays[2] = overlays[2], overlays[0]
	dir := t.TempDir()
	output := filepath.Join(dir, "out.pdf")

	if err := Assemble(context.Background(), Pdfcpu{}, overlays, output); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	checkOutput(t, output)
	if left := leftovers(t, dir); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

func TestAssembleSinglePage(t *testing.T) {
	overlays := writePages(t)[:1]
	output := filepath.Join(t.TempDir(), "out.pdf")
	if err := Assemble(context.Background(), Pdfcpu{}, overlays, output); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	doc, err := extract.Inspect(output)
	if err != nil {
		t.Fatal(err)
	}
	if doc.NumPages() != 1 {
		t.Errorf("output has %d pages", doc.NumPages())
	}
}

func TestAssembleMissingPage(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]artifact.PageOverlay) []artifact.PageOverlay
	}{
		{"gap", func(o []artifact.PageOverlay) []artifact.PageOverlay { return []artifact.PageOverlay{o[0], o[2]} }},
		{"duplicate", func(o []artifact.PageOverlay) []artifact.PageOverlay { return []artifact.PageOverlay{o[0], o[0], o[1]} }},
		{"deleted file", func(o []artifact.PageOverlay) []artifact.PageOverlay {
			os.Remove(o[1].Path)
			return o
		}},
		{"empty file", func(o []artifact.PageOverlay) []artifact.PageOverlay {
			os.WriteFile(o[2].Path, nil, 0o644)
			return o
		}},
		{"none", func([]artifact.PageOverlay) []artifact.PageOverlay { return nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			output := filepath.Join(dir, "out.pdf")
			if err := os.WriteFile(output, []byte("previous"), 0o644); err != nil {
				t.Fatal(err)
			}
			err := Assemble(context.Background(), Pdfcpu{}, tt.mutate(writePages(t)), output)
			if !errors.Is(err, ErrMissingPage) {
				t.Fatalf("expected ErrMissingPage, got %v", err)
			}
			data, _ := os.ReadFile(output)
			if string(data) != "previous" {
				t.Errorf("existing output was modified")
			}
		})
	}
}

type failingMerger struct{ err error }

func (failingMerger) Name() string { return "failing" }

func (m failingMerger) Merge(_ context.Context, _ []string, out string) error {
	if err := os.WriteFile(out, []byte("%PDF-1.4 half written"), 0o644); err != nil {
		return err
	}
	return m.err
}

// firstPageMerger produces a valid document that lacks all but the first page.
type firstPageMerger struct{}

func (firstPageMerger) Name() string { return "first-page" }

func (firstPageMerger) Merge(ctx context.Context, pages []string, out string) error {
	return Pdfcpu{}.Merge(ctx, pages[:1], out)
}

func TestAssembleFailureLeavesNoOutput(t *testing.T) {
	boom := errors.New("disk on fire")
	tests := []struct {
		name   string
		merger Merger
		want   error
	}{
		{"merge error", failingMerger{err: boom}, boom},
		{"unreadable result", failingMerger{}, nil},
		{"short result", firstPageMerger{}, ErrPageCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			output := filepath.Join(dir, "out.pdf")
			err := Assemble(context.Background(), tt.merger, writePages(t), output)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
				t.Errorf("output exists after failed assembly")
			}
			if left := leftovers(t, dir); len(left) != 0 {
				t.Errorf("temporary files left behind: %v", left)
			}
		})
	}
}

func TestAssembleTempCloseFailure(t *testing.T) {
	boom := errors.New("close failed")
	closeTemp = func(f *os.File) error {
		f.Close()
		return boom
	}
	t.Cleanup(func() { closeTemp = (*os.File).Close })

	dir := t.TempDir()
	output := filepath.Join(dir, "out.pdf")
	err := Assemble(context.Background(), Pdfcpu{}, writePages(t), output)
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Errorf("output exists after failed assembly")
	}
	if left := leftovers(t, dir); len(left) != 0 {
		t.Errorf("temporary files left behind: %v", left)
	}
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	output := filepath.Join(t.TempDir(), "out.pdf")
	if err := Assemble(ctx, Pdfcpu{}, writePages(t), output); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNew(t *testing.T) {
	for name, want := range map[string]string{"": "pdfcpu", "pdfcpu": "pdfcpu", "gs": "gs", "ghostscript": "gs", "pdfunite": "pdfunite"} {
		m, err := New(name, Options{})
		if err != nil {
			t.Fatalf("New(%q) error = %v", name, err)
		}
		if m.Name() != want {
			t.Errorf("New(%q).Name() = %s, want %s", name, m.Name(), want)
		}
	}
	if _, err := New("qpdf", Options{}); err == nil {
		t.Error("expected error for unknown assembler")
	}
}

func TestToolMergers(t *testing.T) {
	runner := command.Runner{Log: zerolog.Nop()}
	for _, m := range []Merger{
		&Ghostscript{Runner: runner},
		&Pdfunite{Runner: runner},
	} {
		t.Run(m.Name(), func(t *testing.T) {
			if _, err := exec.LookPath(m.Name()); err != nil {
				t.Skipf("%s not installed in PATH", m.Name())
			}
			output := filepath.Join(t.TempDir(), "out.pdf")
			if err := Assemble(context.Background(), m, writePages(t), output); err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			checkOutput(t, output)
		})
	}
}
