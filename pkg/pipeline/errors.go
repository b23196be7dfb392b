package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies a failed run.
type Kind int

const (
	InvalidInput Kind = iota + 1
	OCREngine
	OverlayGeneration
	Assembly
	Workspace
	// Interrupted marks a run stopped by cancellation or timeout, whatever
	// step it was in.
	Interrupted
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrOCREngine         = errors.New("OCR engine error")
	ErrOverlayGeneration = errors.New("overlay generation error")
	ErrAssembly          = errors.New("assembly error")
	ErrWorkspace         = errors.New("workspace error")
	ErrInterrupted       = errors.New("run interrupted")
)

func (k Kind) sentinel() error {
	switch k {
	case InvalidInput:
		return ErrInvalidInput
	case OCREngine:
		return ErrOCREngine
	case OverlayGeneration:
		return ErrOverlayGeneration
	case Assembly:
		return ErrAssembly
	case Workspace:
		return ErrWorkspace
	case Interrupted:
		return ErrInterrupted
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error reports the step, and the page when there is one, at which a run
// failed. It matches its Kind's sentinel and its cause with errors.Is.
type Error struct {
	Kind Kind
	Step State
	Page int // one-based, 0 when the failure is not tied to a page
	Err  error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("%s: %s page %d: %v", e.Kind, e.Step, e.Page, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Step, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}

func newError(kind Kind, step State, page int, err error) *Error {
	return &Error{Kind: kind, Step: step, Page: page, Err: err}
}
