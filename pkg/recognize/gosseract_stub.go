//go:build !gosseract

package recognize

import "errors"

// ErrNoGosseract is returned for the gosseract engine in builds without
// libtesseract. Build with -tags gosseract to enable it.
var ErrNoGosseract = errors.New("gosseract engine not compiled in, rebuild with -tags gosseract")

func newGosseract(Options) (Engine, error) { return nil, ErrNoGosseract }
