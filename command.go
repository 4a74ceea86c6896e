package termrun

import (
	"context"
	"time"
)

// Command describes one asynchronous side-effecting operation. The runtime
// executes Run on its own goroutine, bounded by the configured concurrency
// limit and timeout. A non-nil result message is fed back into the update
// loop; a nil result means the command has nothing further to say.
type Command struct {
	// Name identifies the command in trace logs. Optional.
	Name string

	// Run performs the operation. The context carries the command deadline
	// and the opaque config value (see ConfigValue); it is cancelled when
	// the runtime shuts down.
	Run func(ctx context.Context) (Msg, error)

	// OnComplete is called with the result message after a successful run
	// that produced one. Optional.
	OnComplete func(Msg)

	// OnError is called when Run fails, times out, or panics. Optional.
	OnError func(error)

	// Timeout overrides the configured default command timeout when > 0.
	Timeout time.Duration
}

// configValueKey carries Config.Context into command contexts.
type configValueKey struct{}

// ConfigValue returns the opaque Config.Context value from a command's
// context, or nil when none was configured.
func ConfigValue(ctx context.Context) any {
	return ctx.Value(configValueKey{})
}
