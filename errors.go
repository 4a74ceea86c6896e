package termrun

import (
	"errors"
	"fmt"
)

// ErrorOrigin names the loop a runtime error came from.
type ErrorOrigin string

const (
	OriginInput  ErrorOrigin = "input"
	OriginUpdate ErrorOrigin = "update"
	OriginRender ErrorOrigin = "render"
)

// RuntimeError tags an underlying failure with the loop it escaped from.
// Recoverable per-message failures are reported through the error hook
// wrapped in this type; a fatal loop failure is returned from Run the same
// way.
type RuntimeError struct {
	Origin ErrorOrigin
	Err    error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s loop: %v", e.Origin, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// ErrAlreadyStarted is returned by Run when the runtime instance has been
// run before. A runtime cannot be restarted; construct a new one.
var ErrAlreadyStarted = errors.New("termrun: runtime already started")

// ErrStopped is returned by Dispatch after the runtime has shut down.
var ErrStopped = errors.New("termrun: runtime stopped")
