package termrun

import (
	"time"

	"github.com/atomicstack/termrun/input"
)

// Defaults applied by normalize for zero-valued Config fields.
const (
	DefaultFPS                   = 60
	DefaultMessageBufferSize     = 1000
	DefaultUpdateTimeout         = 5 * time.Second
	DefaultCommandTimeout        = 30 * time.Second
	DefaultMaxConcurrentCommands = 10
	DefaultRenderFailureLimit    = 100
)

// Config captures runtime configuration. The zero value is usable; New
// fills in defaults. A Config is copied at construction and never read from
// the caller's value again.
type Config struct {
	// FPS is the render loop's target frame rate.
	FPS int

	// EnableMouse forwards mouse events to the message channel. When false,
	// mouse input is dropped at the input loop.
	EnableMouse bool

	// Fullscreen switches the terminal to the alternate screen for the
	// lifetime of the run.
	Fullscreen bool

	// Debug enables verbose trace logging (slow frames, ignored system
	// messages, dropped enqueues).
	Debug bool

	// MessageBufferSize bounds the shared message channel. Producers block
	// when the buffer is full; enqueues made by the update loop itself are
	// dropped with a log line instead, so the loop cannot deadlock on its
	// own channel.
	MessageBufferSize int

	// UpdateTimeout bounds a single Update call. A pure function cannot be
	// interrupted, so exceeding the bound is reported through the error
	// hook while the result is still applied.
	UpdateTimeout time.Duration

	// CommandTimeout is the default deadline for commands that do not set
	// their own.
	CommandTimeout time.Duration

	// MaxConcurrentCommands bounds command goroutines; further commands
	// wait for a slot.
	MaxConcurrentCommands int

	// PerformanceMonitoring enqueues UpdateCompleteMsg/RenderCompleteMsg
	// timing messages after each update and paint.
	PerformanceMonitoring bool

	// RenderFailureLimit is the number of consecutive render failures after
	// which the runtime shuts itself down. Counted per unbroken streak; any
	// successful paint resets it.
	RenderFailureLimit int

	// OnError receives every recoverable failure (update panics, command
	// errors, render errors). When nil, failures go to the log file.
	OnError func(error)

	// OnQuit runs once during cleanup, after the loops have stopped and the
	// terminal has been restored.
	OnQuit func()

	// Context is an opaque value made available to commands via
	// ConfigValue.
	Context any

	// QuitKey decides whether a key press should quit the runtime. Defaults
	// to DefaultQuitKey.
	QuitKey func(KeyMsg) bool

	// KeyHandler, MouseHandler, and ResizeHandler optionally translate
	// system events into user messages. A nil handler or a nil result
	// leaves the event ignored, which is the base behavior.
	KeyHandler    func(KeyMsg) Msg
	MouseHandler  func(MouseMsg) Msg
	ResizeHandler func(ResizeMsg) Msg
}

// DefaultConfig returns the fully-defaulted configuration.
func DefaultConfig() Config {
	return Config{Fullscreen: true}.normalize()
}

// DefaultQuitKey treats ctrl+c and escape as quit requests.
func DefaultQuitKey(k KeyMsg) bool {
	if k.Type == input.KeyCtrl && k.Rune == 'c' {
		return true
	}
	return k.Type == input.KeyEsc
}

func (c Config) normalize() Config {
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.MessageBufferSize <= 0 {
		c.MessageBufferSize = DefaultMessageBufferSize
	}
	if c.UpdateTimeout <= 0 {
		c.UpdateTimeout = DefaultUpdateTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.MaxConcurrentCommands <= 0 {
		c.MaxConcurrentCommands = DefaultMaxConcurrentCommands
	}
	if c.RenderFailureLimit <= 0 {
		c.RenderFailureLimit = DefaultRenderFailureLimit
	}
	if c.QuitKey == nil {
		c.QuitKey = DefaultQuitKey
	}
	return c
}
