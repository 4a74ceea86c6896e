package termrun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atomicstack/termrun/input"
	"github.com/atomicstack/termrun/internal/logging"
	"github.com/atomicstack/termrun/internal/logging/events"
)

// Terminal is the write side of the screen, engaged at startup and restored
// best-effort at shutdown. The terminal package provides an ANSI
// implementation; tests inject recorders.
type Terminal interface {
	Clear() error
	Write(text string) error
	HideCursor() error
	ShowCursor() error
	SetAlternateScreen(on bool) error
}

// InputSource delivers decoded terminal events. The input package provides a
// stdin-backed implementation; tests inject channels of scripted events.
type InputSource interface {
	Events() <-chan input.Event
	EnableMouse() error
	DisableMouse() error
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithTerminal attaches the terminal collaborator. Without one the runtime
// runs headless: no render loop is started.
func WithTerminal(t Terminal) Option {
	return func(r *Runtime) { r.term = t }
}

// WithInput attaches the input collaborator. Without one no input loop is
// started; messages arrive through Dispatch, commands, timers, and
// subscriptions only.
func WithInput(src InputSource) Option {
	return func(r *Runtime) { r.in = src }
}

// Runtime coordinates the MVU loops over a single component. All state
// mutation funnels through the update loop: the message channel is
// multi-producer, single-consumer, and the model is written by no one else.
type Runtime struct {
	cfg  Config
	comp Component
	term Terminal
	in   InputSource

	// State cell. model and the render counters are the only data shared
	// across loops, always behind mu.
	mu           sync.RWMutex
	model        Model
	frameCount   uint64
	lastRender   time.Duration
	lastRenderAt time.Time
	lastUpdate   time.Duration
	startedAt    time.Time

	msgs chan systemMsg

	started  atomic.Bool
	running  atomic.Bool
	quitCh   chan struct{}
	quitOnce sync.Once

	frames *frameScheduler
	timers *timerManager
	sched  *commandScheduler
	subs   *subscriptionManager

	obsMu     sync.Mutex
	obsSeq    uint64
	observers map[uint64]func(Model)
}

// New constructs a runtime for comp. The config is normalized and copied;
// the runtime is inert until Run.
func New(comp Component, cfg Config, opts ...Option) *Runtime {
	r := &Runtime{
		cfg:       cfg.normalize(),
		comp:      comp,
		quitCh:    make(chan struct{}),
		observers: make(map[uint64]func(Model)),
	}
	r.msgs = make(chan systemMsg, r.cfg.MessageBufferSize)
	r.frames = newFrameScheduler(r.cfg.FPS)
	r.timers = newTimerManager(r.emitUser)
	r.sched = newCommandScheduler(r.cfg, r.emitUser, r.reportError)
	r.subs = newSubscriptionManager(r.emitUser, r.Model, r.reportError)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run engages the collaborators, initializes the component, spawns the
// loops, and blocks until a quit is requested, the context is cancelled, or
// a loop fails. Cleanup runs exactly once on every exit path. A runtime
// cannot be run twice.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	select {
	case <-r.quitCh:
		return ErrStopped
	default:
	}

	events.Runtime.Start(map[string]interface{}{
		"fps":        r.cfg.FPS,
		"mouse":      r.cfg.EnableMouse,
		"fullscreen": r.cfg.Fullscreen,
		"buffer":     r.cfg.MessageBufferSize,
	})

	if r.term != nil {
		if r.cfg.Fullscreen {
			if err := r.term.SetAlternateScreen(true); err != nil {
				return fmt.Errorf("enter alternate screen: %w", err)
			}
		}
		if err := r.term.HideCursor(); err != nil {
			r.reportError(fmt.Errorf("hide cursor: %w", err))
		}
		if err := r.term.Clear(); err != nil {
			r.reportError(fmt.Errorf("clear screen: %w", err))
		}
	}
	if r.in != nil && r.cfg.EnableMouse {
		if err := r.in.EnableMouse(); err != nil {
			r.reportError(fmt.Errorf("enable mouse: %w", err))
		}
	}

	model, cmds, err := safeInit(r.comp)
	if err != nil {
		initErr := &RuntimeError{Origin: OriginUpdate, Err: fmt.Errorf("init: %w", err)}
		// The terminal is already engaged and callers may be blocked in
		// Dispatch, so a failed init takes the same cleanup tail as a quit.
		r.Shutdown()
		r.restoreTerminal()
		if r.cfg.OnQuit != nil {
			r.cfg.OnQuit()
		}
		events.Runtime.Quit(initErr)
		return initErr
	}
	r.mu.Lock()
	r.model = model
	r.startedAt = time.Now()
	r.mu.Unlock()
	r.running.Store(true)

	for _, cmd := range cmds {
		r.sched.execute(cmd)
	}
	if sub, ok := r.comp.(Subscriber); ok {
		r.subs.start(sub.Subscriptions(model))
	}

	loopCtx, cancelLoops := context.WithCancel(ctx)
	defer cancelLoops()
	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	wg.Add(1)
	go r.updateLoop(loopCtx, &wg, errCh)
	if r.in != nil {
		wg.Add(1)
		go r.inputLoop(loopCtx, &wg, errCh)
	}
	if r.term != nil {
		wg.Add(1)
		go r.renderLoop(loopCtx, &wg, errCh)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case <-r.quitCh:
	case runErr = <-errCh:
	}
	if runErr == nil {
		// A failing loop signals errCh before requesting shutdown; prefer
		// its error over a bare quit.
		select {
		case runErr = <-errCh:
		default:
		}
	}

	r.Shutdown()
	cancelLoops()
	r.subs.stop()
	r.timers.cancelAll()
	r.sched.cancelAll()
	wg.Wait()
	r.restoreTerminal()
	if r.cfg.OnQuit != nil {
		r.cfg.OnQuit()
	}
	events.Runtime.Quit(runErr)
	return runErr
}

// Shutdown requests an orderly stop. Idempotent and non-blocking; the
// closed quit channel wakes Run and unblocks every producer waiting on the
// message channel.
func (r *Runtime) Shutdown() {
	r.quitOnce.Do(func() {
		r.running.Store(false)
		close(r.quitCh)
	})
}

// Running reports whether the runtime is between startup and shutdown.
func (r *Runtime) Running() bool {
	return r.running.Load()
}

// Dispatch enqueues a user message. It blocks while the message buffer is
// full (backpressure) and fails once the runtime has shut down.
func (r *Runtime) Dispatch(msg Msg) error {
	select {
	case r.msgs <- userMsg{msg: msg}:
		return nil
	case <-r.quitCh:
		return ErrStopped
	}
}

// After schedules msg for delivery once d has elapsed. The returned func
// cancels the pending delivery.
func (r *Runtime) After(d time.Duration, msg Msg) func() {
	return r.timers.after(d, msg)
}

// Every schedules msg for periodic delivery until cancelled or shutdown.
func (r *Runtime) Every(d time.Duration, msg Msg) func() {
	return r.timers.every(d, msg)
}

// Model returns the current model snapshot.
func (r *Runtime) Model() Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.model
}

// View derives the component's view from the current model.
func (r *Runtime) View() View {
	return r.comp.View(r.Model())
}

// Subscribe registers an observer called with each new model after the
// update loop applies it. The returned func unregisters it.
func (r *Runtime) Subscribe(fn func(Model)) func() {
	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	r.obsSeq++
	id := r.obsSeq
	r.observers[id] = fn
	return func() {
		r.obsMu.Lock()
		defer r.obsMu.Unlock()
		delete(r.observers, id)
	}
}

// Metrics computes a point-in-time health snapshot.
func (r *Runtime) Metrics() Metrics {
	r.mu.RLock()
	frames := r.frameCount
	lastRender := r.lastRender
	lastUpdate := r.lastUpdate
	started := r.startedAt
	r.mu.RUnlock()

	var fps float64
	if !started.IsZero() {
		if secs := time.Since(started).Seconds(); secs > 0 {
			fps = float64(frames) / secs
		}
	}
	return Metrics{
		FrameRate:      fps,
		FrameCount:     frames,
		QueueDepth:     len(r.msgs),
		ActiveCommands: r.sched.activeCount(),
		LastRender:     lastRender,
		LastUpdate:     lastUpdate,
		MemoryBytes:    residentMemory(),
	}
}

// emitUser delivers a user message from a producer goroutine (command,
// timer, subscription). Blocks under backpressure; aborts on shutdown.
func (r *Runtime) emitUser(msg Msg) bool {
	select {
	case r.msgs <- userMsg{msg: msg}:
		return true
	case <-r.quitCh:
		return false
	}
}

// send delivers a system message from the input loop.
func (r *Runtime) send(ctx context.Context, m systemMsg) bool {
	select {
	case r.msgs <- m:
		return true
	case <-ctx.Done():
		return false
	case <-r.quitCh:
		return false
	}
}

// enqueueFromLoop is the update loop's own enqueue. It must never block on
// the channel it is draining, so overflow drops the message with a log line.
func (r *Runtime) enqueueFromLoop(m systemMsg) bool {
	select {
	case r.msgs <- m:
		return true
	default:
		events.Runtime.Dropped(fmt.Sprintf("%T", m))
		return false
	}
}

func (r *Runtime) reportError(err error) {
	if err == nil {
		return
	}
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
		return
	}
	logging.Error(err)
}

// restoreTerminal undoes the startup terminal changes. Failures are
// swallowed: at shutdown the terminal may already be gone.
func (r *Runtime) restoreTerminal() {
	if r.in != nil && r.cfg.EnableMouse {
		_ = r.in.DisableMouse()
	}
	if r.term == nil {
		return
	}
	_ = r.term.ShowCursor()
	if r.cfg.Fullscreen {
		_ = r.term.SetAlternateScreen(false)
	}
}

// trapLoopFailure converts a panic escaping a loop's control logic into a
// fatal RuntimeError. User-code panics never reach here; they are recovered
// per message, command, or render.
func (r *Runtime) trapLoopFailure(origin ErrorOrigin, errCh chan<- error) {
	if rec := recover(); rec != nil {
		select {
		case errCh <- &RuntimeError{Origin: origin, Err: fmt.Errorf("panic: %v", rec)}:
		default:
		}
	}
}

func (r *Runtime) inputLoop(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer r.trapLoopFailure(OriginInput, errCh)

	eventsCh := r.in.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-eventsCh:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case input.KeyEvent:
				r.send(ctx, KeyMsg{KeyEvent: e})
			case input.MouseEvent:
				if r.cfg.EnableMouse {
					r.send(ctx, MouseMsg{MouseEvent: e})
				}
			case input.ResizeEvent:
				r.send(ctx, ResizeMsg{Width: e.Width, Height: e.Height})
			}
		}
	}
}

func (r *Runtime) updateLoop(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer r.trapLoopFailure(OriginUpdate, errCh)

	for {
		select {
		case <-ctx.Done():
			return
		case m := <-r.msgs:
			r.processSystemMsg(m)
		}
	}
}

// processSystemMsg folds one message into the runtime. Runs only on the
// update loop goroutine.
func (r *Runtime) processSystemMsg(m systemMsg) {
	switch m := m.(type) {
	case userMsg:
		r.applyUserMsg(m.msg)
	case KeyMsg:
		if r.cfg.QuitKey(m) {
			if !r.enqueueFromLoop(QuitMsg{}) {
				r.Shutdown()
			}
			return
		}
		if r.cfg.KeyHandler != nil {
			if um := r.cfg.KeyHandler(m); um != nil {
				r.applyUserMsg(um)
			}
		}
	case MouseMsg:
		if r.cfg.MouseHandler != nil {
			if um := r.cfg.MouseHandler(m); um != nil {
				r.applyUserMsg(um)
			}
		}
	case ResizeMsg:
		if r.cfg.ResizeHandler != nil {
			if um := r.cfg.ResizeHandler(m); um != nil {
				r.applyUserMsg(um)
			}
		}
	case QuitMsg:
		r.Shutdown()
	case BatchMsg:
		for _, um := range m.Msgs {
			r.enqueueFromLoop(userMsg{msg: um})
		}
	case UpdateCompleteMsg:
		if r.cfg.Debug {
			logging.Trace("runtime.update-complete", map[string]interface{}{"duration": m.Duration.String()})
		}
	case RenderCompleteMsg:
		if r.cfg.Debug {
			logging.Trace("runtime.render-complete", map[string]interface{}{"duration": m.Duration.String()})
		}
	}
}

// applyUserMsg runs the component's update and swaps the model. A panic in
// user code discards the message and leaves the model untouched.
func (r *Runtime) applyUserMsg(msg Msg) {
	if batch, ok := msg.(BatchMsg); ok {
		for _, um := range batch.Msgs {
			r.enqueueFromLoop(userMsg{msg: um})
		}
		return
	}

	prev := r.Model()
	start := time.Now()
	next, cmds, err := safeUpdate(r.comp, msg, prev)
	elapsed := time.Since(start)
	if err != nil {
		r.reportError(&RuntimeError{Origin: OriginUpdate, Err: err})
		return
	}
	if elapsed > r.cfg.UpdateTimeout {
		r.reportError(&RuntimeError{
			Origin: OriginUpdate,
			Err:    fmt.Errorf("update took %v, exceeding the %v limit", elapsed, r.cfg.UpdateTimeout),
		})
	}

	r.mu.Lock()
	r.model = next
	r.lastUpdate = elapsed
	r.mu.Unlock()

	r.notifyObservers(next)
	for _, cmd := range cmds {
		r.sched.execute(cmd)
	}
	if r.cfg.PerformanceMonitoring {
		r.enqueueFromLoop(UpdateCompleteMsg{Duration: elapsed})
	}
}

func (r *Runtime) notifyObservers(model Model) {
	r.obsMu.Lock()
	fns := make([]func(Model), 0, len(r.observers))
	for _, fn := range r.observers {
		fns = append(fns, fn)
	}
	r.obsMu.Unlock()
	for _, fn := range fns {
		fn(model)
	}
}

func (r *Runtime) renderLoop(ctx context.Context, wg *sync.WaitGroup, errCh chan<- error) {
	defer wg.Done()
	defer r.trapLoopFailure(OriginRender, errCh)

	failures := 0
	for {
		if !r.frames.wait(ctx) {
			return
		}
		start := time.Now()
		err := r.paint(ctx)
		elapsed := time.Since(start)
		if err != nil {
			failures++
			r.reportError(&RuntimeError{Origin: OriginRender, Err: err})
			if failures >= r.cfg.RenderFailureLimit {
				select {
				case errCh <- &RuntimeError{
					Origin: OriginRender,
					Err:    fmt.Errorf("%d consecutive render failures: %w", failures, err),
				}:
				default:
				}
				r.Shutdown()
				return
			}
			continue
		}
		failures = 0

		r.mu.Lock()
		r.frameCount++
		r.lastRender = elapsed
		r.lastRenderAt = time.Now()
		r.mu.Unlock()

		if r.cfg.Debug && elapsed > r.frames.interval {
			events.Frame.Slow(elapsed)
		}
		if r.cfg.PerformanceMonitoring {
			r.enqueueFromLoop(RenderCompleteMsg{Duration: elapsed})
		}
	}
}

// paint snapshots the model, renders the view, and writes the frame.
func (r *Runtime) paint(ctx context.Context) error {
	view, err := safeView(r.comp, r.Model())
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	text, err := view.Render(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("render view: %w", err)
	}
	if err := r.term.Clear(); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := r.term.Write(text); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// safeInit, safeUpdate, and safeView fence user code: a panic becomes an
// error at the call site instead of killing a loop.

func safeInit(comp Component) (model Model, cmds []Command, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	model, cmds = comp.Init()
	return model, cmds, nil
}

func safeUpdate(comp Component, msg Msg, model Model) (next Model, cmds []Command, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			next, cmds = nil, nil
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	next, cmds = comp.Update(msg, model)
	return next, cmds, nil
}

func safeView(comp Component, model Model) (view View, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			view = nil
			err = fmt.Errorf("view panic: %v", rec)
		}
	}()
	return comp.View(model), nil
}
