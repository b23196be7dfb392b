package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func requireShell(t *testing.T) {
	t.Helper()
	if !Available("sh") {
		t.Skip("sh not installed in PATH")
	}
}

func TestRunnerOutput(t *testing.T) {
	requireShell(t)
	r := Runner{Log: zerolog.Nop()}
	out, err := r.Output(context.Background(), "sh", "-c", "printf hello")
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if string(out) != "hello" {
		t.Errorf("Output() = %q", out)
	}
}

func TestRunnerFailureKeepsStderr(t *testing.T) {
	requireShell(t)
	r := Runner{Log: zerolog.Nop()}
	err := r.Run(context.Background(), "sh", "-c", "echo broken image >&2; exit 3")
	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if cmdErr.Stderr != "broken image" {
		t.Errorf("Stderr = %q", cmdErr.Stderr)
	}
	if !strings.Contains(err.Error(), "sh -c") {
		t.Errorf("error does not name the command: %v", err)
	}
}

func TestRunnerCancelled(t *testing.T) {
	requireShell(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Runner{Log: zerolog.Nop()}.Run(ctx, "sh", "-c", "sleep 5")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunnerMissingProgram(t *testing.T) {
	err := Runner{Log: zerolog.Nop()}.Run(context.Background(), "definitely-not-a-real-tool-xyz")
	if err == nil {
		t.Fatal("expected error for missing program")
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "  bad input \n", "bad input"},
		{"exact", strings.Repeat("a", maxStderr), strings.Repeat("a", maxStderr)},
		{"ascii cut", strings.Repeat("a", maxStderr+10), strings.Repeat("a", maxStderr) + "..."},
		// "é" is two bytes; the limit falls between them.
		{"rune boundary", strings.Repeat("a", maxStderr-1) + "éé", strings.Repeat("a", maxStderr-1) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := excerpt(tt.in)
			if got != tt.want {
				t.Errorf("excerpt() = %q (len %d), want len %d", got, len(got), len(tt.want))
			}
			if !utf8.ValidString(got) {
				t.Errorf("excerpt() is not valid UTF-8")
			}
		})
	}
}
