package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWorkspaceLifecycle(t *testing.T) {
	root := t.TempDir()
	ws, err := New(Options{Root: root})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if filepath.Dir(ws.Dir()) != root {
		t.Fatalf("workspace %s not under %s", ws.Dir(), root)
	}

	p := ws.PagePath(0, ".png")
	if filepath.Base(p) != "page-0001.png" {
		t.Errorf("PagePath(0) = %s", p)
	}
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	scratch, err := ws.Scratch("images")
	if err != nil {
		t.Fatalf("Scratch() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "img-000.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
		t.Fatalf("workspace still exists after Close: %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("root not empty after Close: %v", entries)
	}
}

func TestWorkspaceKeep(t *testing.T) {
	ws, err := New(Options{Root: t.TempDir(), Keep: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(ws.Dir()); err != nil {
		t.Fatalf("kept workspace removed: %v", err)
	}
}

func TestWorkspaceUniqueNames(t *testing.T) {
	root := t.TempDir()
	a, err := New(Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := New(Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if a.Dir() == b.Dir() {
		t.Fatalf("workspaces share directory %s", a.Dir())
	}
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestPageBase(t *testing.T) {
	if got := PageBase(41); got != "page-0042" {
		t.Errorf("PageBase(41) = %s", got)
	}
}
