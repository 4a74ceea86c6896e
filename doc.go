// Package termrun is the concurrency core of a Model-View-Update terminal
// application: a runtime that drives a pure component with a message stream
// while keeping every mutation of the application model on a single
// goroutine.
//
// Message flow:
//   - Input events, dispatched user messages, command results, timer firings,
//     and subscription emissions all funnel into one bounded channel.
//   - The update loop is the channel's only consumer. It folds messages into
//     the model one at a time via Component.Update, so state changes are
//     serialized in arrival order no matter how many producers exist.
//   - The render loop paces itself with a fixed-delay frame scheduler,
//     snapshots the model, renders Component.View, and writes the frame
//     through the Terminal collaborator.
//
// Side effects:
//   - Commands describe one-shot asynchronous work. The command scheduler
//     runs each on its own goroutine, bounded by a concurrency limit and a
//     per-command deadline; results come back as ordinary user messages.
//   - Subscriptions are long-lived message sources started once at Run and
//     cancelled at shutdown; the manager waits for them so deferred cleanup
//     inside a subscription always runs.
//   - Timers deliver one-off or periodic messages and are cleared during
//     shutdown.
//
// Failure containment:
//   - A panic in Update discards the offending message and leaves the model
//     exactly as it was; the loop keeps going.
//   - A failing or timed-out command reports through its OnError callback
//     and the runtime error hook without touching sibling commands.
//   - Render errors are counted per consecutive streak; only a long
//     unbroken run of failures stops the runtime.
//
// Shutdown is requested by a quit key, a QuitMsg, Shutdown, or context
// cancellation, and is signalled by a closed channel rather than polling.
// Cleanup runs exactly once: loops are interrupted, subscriptions and
// timers and commands are cancelled and awaited, and the terminal is
// restored best-effort.
package termrun
