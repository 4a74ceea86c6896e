package termrun

import "context"

// Subscription is a named, long-lived message source. Start runs on its own
// goroutine until ctx is cancelled; emit delivers messages to the update
// loop and model reads the current application state. Resources acquired
// inside Start should be released with defer; the runtime guarantees the
// goroutine is cancelled and awaited on shutdown, so deferred cleanup always
// runs, even for subscriptions that never emit.
type Subscription struct {
	Name  string
	Start func(ctx context.Context, emit func(Msg), model func() Model) error
}
