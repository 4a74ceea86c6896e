package termrun

import "context"

// Component is the application contract driven by the runtime. Init and
// Update return the next model plus any commands to execute; both must be
// free of I/O and side effects. View derives a render target from a model
// snapshot.
type Component interface {
	Init() (Model, []Command)
	Update(msg Msg, model Model) (Model, []Command)
	View(model Model) View
}

// Subscriber is implemented by components that declare long-lived message
// sources. Subscriptions returns the sources to start when the runtime
// begins running; they are started once, not re-derived per update.
type Subscriber interface {
	Subscriptions(model Model) []Subscription
}

// View is a render target. Render may be slow (it runs on the render loop,
// not the update loop) and should honor ctx cancellation.
type View interface {
	Render(ctx context.Context) (string, error)
}

// Sized is an optional extension for views with fixed dimensions.
type Sized interface {
	Size() (width, height int)
}

// StringView adapts a plain string to the View interface.
type StringView string

// Render returns the string unchanged.
func (s StringView) Render(context.Context) (string, error) {
	return string(s), nil
}
