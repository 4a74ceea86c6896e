package termrun

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atomicstack/termrun/internal/logging/events"
)

// commandScheduler executes commands as independent goroutines, bounded by a
// semaphore and a per-command deadline. Results are fed back onto the shared
// channel as user messages; failures stay contained to the failing command
// and are reported through the runtime error hook.
type commandScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	sem            chan struct{}
	defaultTimeout time.Duration
	configValue    any

	emit   func(Msg) bool
	report func(error)

	active atomic.Int32
}

func newCommandScheduler(cfg Config, emit func(Msg) bool, report func(error)) *commandScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &commandScheduler{
		ctx:            ctx,
		cancel:         cancel,
		sem:            make(chan struct{}, cfg.MaxConcurrentCommands),
		defaultTimeout: cfg.CommandTimeout,
		configValue:    cfg.Context,
		emit:           emit,
		report:         report,
	}
}

// execute queues cmd for asynchronous execution. It never blocks the caller:
// when all slots are busy the command goroutine waits for one.
func (s *commandScheduler) execute(cmd Command) {
	if cmd.Run == nil {
		events.Command.Skip(cmd.Name)
		return
	}
	events.Command.Queue(cmd.Name)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}
		defer func() { <-s.sem }()

		s.active.Add(1)
		defer s.active.Add(-1)

		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = s.defaultTimeout
		}
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		if s.configValue != nil {
			ctx = context.WithValue(ctx, configValueKey{}, s.configValue)
		}

		msg, err := runCommand(ctx, cmd)
		if err != nil {
			events.Command.Error(cmd.Name, err)
			if cmd.OnError != nil {
				cmd.OnError(err)
			}
			s.report(fmt.Errorf("command %q: %w", cmd.Name, err))
			return
		}
		if msg == nil {
			events.Command.NoOp(cmd.Name)
			return
		}
		events.Command.Result(cmd.Name, fmt.Sprintf("%T", msg))
		if s.emit(msg) && cmd.OnComplete != nil {
			cmd.OnComplete(msg)
		}
	}()
}

// runCommand invokes cmd.Run with panic containment so a misbehaving command
// cannot take down its goroutine's siblings. The body writes only its own
// result value, handed over on a buffered channel, so a completion that
// races the deadline has nowhere to scribble.
func runCommand(ctx context.Context, cmd Command) (Msg, error) {
	type result struct {
		msg Msg
		err error
	}
	results := make(chan result, 1)
	go func() {
		var res result
		defer func() {
			if r := recover(); r != nil {
				res = result{err: fmt.Errorf("panic: %v", r)}
			}
			results <- res
		}()
		res.msg, res.err = cmd.Run(ctx)
	}()

	select {
	case res := <-results:
		return res.msg, res.err
	case <-ctx.Done():
		// The command body may still be running; it holds the context and
		// is expected to unwind. Its eventual result is discarded.
		return nil, ctx.Err()
	}
}

func (s *commandScheduler) activeCount() int {
	return int(s.active.Load())
}

// cancelAll interrupts every in-flight command and waits for the scheduler
// goroutines to drain.
func (s *commandScheduler) cancelAll() {
	s.cancel()
	s.wg.Wait()
}
