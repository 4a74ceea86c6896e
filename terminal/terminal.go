// Package terminal drives a terminal through ANSI control sequences. It
// implements the narrow surface the runtime needs (clear, write, cursor
// visibility, alternate screen) plus raw-mode setup for the process's own
// TTY. Everything is expressed against an io.Writer so tests can capture the
// byte stream.
package terminal

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// Writer emits ANSI control sequences to an underlying writer. The zero
// value is not usable; construct with New.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a Writer over out.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

func (w *Writer) emit(s string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.out, s); err != nil {
		return fmt.Errorf("terminal: write: %w", err)
	}
	return nil
}

// Clear erases the screen and homes the cursor.
func (w *Writer) Clear() error {
	return w.emit(ansi.EraseEntireScreen + ansi.CursorHomePosition)
}

// Write sends text to the terminal as-is.
func (w *Writer) Write(s string) error {
	return w.emit(s)
}

// HideCursor makes the text cursor invisible.
func (w *Writer) HideCursor() error {
	return w.emit(ansi.ResetMode(ansi.TextCursorEnableMode))
}

// ShowCursor makes the text cursor visible again.
func (w *Writer) ShowCursor() error {
	return w.emit(ansi.SetMode(ansi.TextCursorEnableMode))
}

// SetAlternateScreen switches the alternate screen buffer on or off.
func (w *Writer) SetAlternateScreen(on bool) error {
	if on {
		return w.emit(ansi.SetMode(ansi.AltScreenSaveCursorMode))
	}
	return w.emit(ansi.ResetMode(ansi.AltScreenSaveCursorMode))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// MakeRaw puts the file descriptor into raw mode and returns a restore
// function. The restore function is safe to call more than once.
func MakeRaw(f *os.File) (func() error, error) {
	fd := int(f.Fd())
	prev, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("terminal: raw mode: %w", err)
	}
	var once sync.Once
	return func() error {
		var rerr error
		once.Do(func() { rerr = term.Restore(fd, prev) })
		return rerr
	}, nil
}

// Size returns the dimensions of the terminal attached to f.
func Size(f *os.File) (width, height int, err error) {
	w, h, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("terminal: size: %w", err)
	}
	return w, h, nil
}
