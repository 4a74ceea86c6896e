// Package input decodes terminal input into tagged events. A Reader owns the
// raw byte stream (via a cancelable reader, so Stop can interrupt a blocked
// read), a SIGWINCH relay for resize events, and the mouse-reporting toggles.
// Consumers receive events on a channel and never touch the file descriptor.
package input

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/cancelreader"
	"golang.org/x/term"
)

// Reader turns raw bytes from a terminal into Events.
type Reader struct {
	cr   cancelreader.CancelReader
	out  io.Writer
	fd   int
	sigs chan os.Signal

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once
}

// NewReader creates a Reader over in, writing control sequences (mouse
// toggles) to out. The reader is inert until Start is called.
func NewReader(in *os.File, out io.Writer) (*Reader, error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("input: wrap reader: %w", err)
	}
	return &Reader{
		cr:     cr,
		out:    out,
		fd:     int(in.Fd()),
		sigs:   make(chan os.Signal, 1),
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}, nil
}

// Events returns the channel of decoded events. The channel is closed after
// Stop once the reader goroutines have drained.
func (r *Reader) Events() <-chan Event {
	return r.events
}

// Start spawns the read and resize goroutines and emits an initial
// ResizeEvent so consumers learn the terminal size without waiting for a
// signal.
func (r *Reader) Start() {
	signal.Notify(r.sigs, syscall.SIGWINCH)

	r.wg.Add(1)
	go r.readLoop()
	r.wg.Add(1)
	go r.resizeLoop()

	if w, h, err := term.GetSize(r.fd); err == nil {
		r.emit(ResizeEvent{Width: w, Height: h})
	}

	go func() {
		r.wg.Wait()
		close(r.events)
	}()
}

// Stop interrupts the blocked read and halts the resize relay. Safe to call
// more than once.
func (r *Reader) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		signal.Stop(r.sigs)
		close(r.sigs)
		r.cr.Cancel()
	})
}

// EnableMouse turns on button-event tracking with SGR extended reports.
func (r *Reader) EnableMouse() error {
	_, err := io.WriteString(r.out, ansi.SetMode(ansi.ButtonEventMouseMode, ansi.SgrExtMouseMode))
	return err
}

// DisableMouse turns mouse reporting back off.
func (r *Reader) DisableMouse() error {
	_, err := io.WriteString(r.out, ansi.ResetMode(ansi.ButtonEventMouseMode, ansi.SgrExtMouseMode))
	return err
}

// emit delivers an event unless the reader has been stopped. Reports whether
// the event was delivered.
func (r *Reader) emit(ev Event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Reader) readLoop() {
	defer r.wg.Done()
	defer r.cr.Close()

	var pending []byte
	chunk := make([]byte, 256)
	for {
		n, err := r.cr.Read(chunk)
		if n > 0 {
			// A short read means the stream is idle, so a trailing lone ESC
			// can safely be decoded as the escape key.
			atEnd := n < len(chunk)
			var ok bool
			pending, ok = r.drain(append(pending, chunk[:n]...), atEnd)
			if !ok {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// drain decodes every complete event in buf and returns the unconsumed tail.
// The second return is false once the reader has been stopped.
func (r *Reader) drain(buf []byte, atEnd bool) ([]byte, bool) {
	for len(buf) > 0 {
		ev, n := parse(buf, atEnd)
		if n == 0 {
			return buf, true
		}
		buf = buf[n:]
		if ev != nil && !r.emit(ev) {
			return nil, false
		}
	}
	return nil, true
}

func (r *Reader) resizeLoop() {
	defer r.wg.Done()
	for range r.sigs {
		w, h, err := term.GetSize(r.fd)
		if err != nil {
			continue
		}
		if !r.emit(ResizeEvent{Width: w, Height: h}) {
			return
		}
	}
}
