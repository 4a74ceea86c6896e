package termrun

import (
	"time"

	"github.com/atomicstack/termrun/input"
)

// Msg is an application-defined message. The runtime never inspects user
// messages; it only carries them to the component's Update function.
type Msg = any

// Model is the application-defined state. It is owned by the runtime's state
// cell and replaced wholesale on every processed message.
type Model = any

// systemMsg is the closed set of messages that flow through the runtime's
// channel. The unexported marker keeps the set sealed: the update loop can
// switch over it exhaustively.
type systemMsg interface {
	isSystem()
}

// userMsg wraps an application message for transport on the system channel.
type userMsg struct {
	msg Msg
}

func (userMsg) isSystem() {}

// KeyMsg reports a key press from the input collaborator.
type KeyMsg struct {
	input.KeyEvent
}

func (KeyMsg) isSystem() {}

// MouseMsg reports a mouse click or movement. Only forwarded when mouse
// support is enabled in the configuration.
type MouseMsg struct {
	input.MouseEvent
}

func (MouseMsg) isSystem() {}

// ResizeMsg reports new terminal dimensions.
type ResizeMsg struct {
	Width, Height int
}

func (ResizeMsg) isSystem() {}

// QuitMsg asks the runtime to shut down.
type QuitMsg struct{}

func (QuitMsg) isSystem() {}

// BatchMsg carries several user messages that should be re-enqueued
// individually, preserving the one-message-at-a-time update discipline.
type BatchMsg struct {
	Msgs []Msg
}

func (BatchMsg) isSystem() {}

// RenderCompleteMsg reports the duration of a completed paint. Emitted only
// when performance monitoring is enabled.
type RenderCompleteMsg struct {
	Duration time.Duration
}

func (RenderCompleteMsg) isSystem() {}

// UpdateCompleteMsg reports the duration of a completed update call. Emitted
// only when performance monitoring is enabled.
type UpdateCompleteMsg struct {
	Duration time.Duration
}

func (UpdateCompleteMsg) isSystem() {}

// Batch bundles messages so each is applied to the model individually. A
// command may return it to deliver several follow-up messages at once.
func Batch(msgs ...Msg) Msg {
	return BatchMsg{Msgs: msgs}
}
