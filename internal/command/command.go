// Package command runs external tools synchronously.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// maxStderr bounds the stderr excerpt kept in errors.
const maxStderr = 2048

// Runner invokes external programs and waits for them to exit.
type Runner struct {
	Log zerolog.Logger
}

// Error describes a tool invocation that could not start or exited non-zero.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes prog with args. The process is killed when ctx is cancelled.
func (r Runner) Run(ctx context.Context, prog string, args ...string) error {
	_, err := r.Output(ctx, prog, args...)
	return err
}

// Output executes prog with args and returns its standard output.
func (r Runner) Output(ctx context.Context, prog string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, prog, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	r.Log.Debug().Strs("argv", cmd.Args).Msg("exec")
	err := cmd.Run()
	r.Log.Debug().Str("prog", prog).Dur("duration", time.Since(start)).Err(err).Msg("exec finished")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return nil, &Error{Args: cmd.Args, Stderr: excerpt(stderr.String()), Err: err}
	}
	return stdout.Bytes(), nil
}

// Available reports whether prog can be found on PATH.
func Available(prog string) bool {
	_, err := exec.LookPath(prog)
	return err == nil
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderr {
		cut := maxStderr
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
