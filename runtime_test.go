package termrun

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atomicstack/termrun/input"
)

type incMsg struct{}

type boomMsg struct{}

type loadMsg struct{}

type loadedMsg struct {
	text string
}

// counter is the reference component for runtime tests: an int model that
// increments on incMsg, panics on boomMsg, and fires an async load command
// on loadMsg.
type counter struct {
	loaded string
}

func (c *counter) Init() (Model, []Command) {
	return 0, nil
}

func (c *counter) Update(msg Msg, model Model) (Model, []Command) {
	count := model.(int)
	switch msg.(type) {
	case incMsg:
		return count + 1, nil
	case boomMsg:
		panic("boom")
	case loadMsg:
		return count, []Command{{
			Name: "load",
			Run: func(ctx context.Context) (Msg, error) {
				return loadedMsg{text: "Loaded!"}, nil
			},
		}}
	case loadedMsg:
		c.loaded = msg.(loadedMsg).text
		return count, nil
	}
	return count, nil
}

func (c *counter) View(model Model) View {
	return StringView(fmt.Sprintf("count: %d", model.(int)))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

// startHeadless runs rt on a goroutine and returns a channel with Run's
// result.
func startHeadless(t *testing.T, rt *Runtime) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()
	waitFor(t, time.Second, rt.Running)
	return done
}

func stopRuntime(t *testing.T, rt *Runtime, done <-chan error) {
	t.Helper()
	rt.Shutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after Shutdown")
	}
}

func quietConfig() Config {
	return Config{OnError: func(error) {}}
}

func TestSequentialUpdatesApplyInOrder(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	for i := 0; i < 3; i++ {
		if err := rt.Dispatch(incMsg{}); err != nil {
			t.Fatalf("Dispatch: %v", err)
		}
	}
	waitFor(t, time.Second, func() bool { return rt.Model() == 3 })
}

func TestCommandResultFeedsBackIntoUpdate(t *testing.T) {
	comp := &counter{}
	rt := New(comp, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	if err := rt.Dispatch(loadMsg{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	waitFor(t, time.Second, func() bool { return comp.loaded == "Loaded!" })
}

func TestUpdatePanicLeavesModelUntouched(t *testing.T) {
	var reported atomic.Int32
	cfg := Config{OnError: func(err error) {
		var rerr *RuntimeError
		if errors.As(err, &rerr) && rerr.Origin == OriginUpdate {
			reported.Add(1)
		}
	}}
	rt := New(&counter{}, cfg)
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	rt.Dispatch(incMsg{})
	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 2 })

	rt.Dispatch(boomMsg{})
	waitFor(t, time.Second, func() bool { return reported.Load() == 1 })
	if got := rt.Model(); got != 2 {
		t.Fatalf("model after panic = %v, want 2", got)
	}

	// The loop must survive the panic and keep folding messages.
	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 3 })
}

func TestConcurrentDispatchesAllApplied(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rt.Dispatch(incMsg{}); err != nil {
				t.Errorf("Dispatch: %v", err)
			}
		}()
	}
	wg.Wait()
	waitFor(t, 2*time.Second, func() bool { return rt.Model() == 100 })
}

func TestBatchFansOutIndividually(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	if err := rt.Dispatch(Batch(incMsg{}, incMsg{}, incMsg{})); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	waitFor(t, time.Second, func() bool { return rt.Model() == 3 })
}

func TestShutdownIsIdempotent(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.Shutdown()
		}()
	}
	wg.Wait()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if rt.Running() {
		t.Fatalf("Running() = true after shutdown")
	}
}

func TestRunTwiceFails(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	if err := rt.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Run = %v, want ErrAlreadyStarted", err)
	}
}

func TestDispatchAfterShutdownFails(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	stopRuntime(t, rt, done)

	if err := rt.Dispatch(incMsg{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Dispatch after shutdown = %v, want ErrStopped", err)
	}
}

func TestQuitMsgStopsRuntime(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)

	if err := rt.Dispatch(QuitMsg{}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("QuitMsg did not stop the runtime")
	}
}

func TestContextCancellationStopsRuntime(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	waitFor(t, time.Second, rt.Running)

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

type subscribingCounter struct {
	counter
	started   chan struct{}
	finalized chan struct{}
}

func (c *subscribingCounter) Subscriptions(Model) []Subscription {
	return []Subscription{{
		Name: "ticks",
		Start: func(ctx context.Context, emit func(Msg), model func() Model) error {
			close(c.started)
			defer close(c.finalized)
			<-ctx.Done()
			return ctx.Err()
		},
	}}
}

func TestSubscriptionFinalizerRunsOnShutdown(t *testing.T) {
	comp := &subscribingCounter{
		started:   make(chan struct{}),
		finalized: make(chan struct{}),
	}
	rt := New(comp, quietConfig())
	done := startHeadless(t, rt)

	select {
	case <-comp.started:
	case <-time.After(time.Second):
		t.Fatalf("subscription never started")
	}

	stopRuntime(t, rt, done)
	select {
	case <-comp.finalized:
	default:
		t.Fatalf("subscription finalizer had not run when Run returned")
	}
}

func TestObserverSeesEachModel(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	var mu sync.Mutex
	var seen []int
	unsub := rt.Subscribe(func(m Model) {
		mu.Lock()
		seen = append(seen, m.(int))
		mu.Unlock()
	})

	rt.Dispatch(incMsg{})
	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	})
	mu.Lock()
	if seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("observed models = %v, want [1 2]", seen)
	}
	mu.Unlock()

	unsub()
	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 3 })
	mu.Lock()
	if len(seen) != 2 {
		t.Fatalf("observer called after unsubscribe: %v", seen)
	}
	mu.Unlock()
}

func TestTimerAfterDeliversOnce(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	rt.After(5*time.Millisecond, incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 1 })

	time.Sleep(20 * time.Millisecond)
	if got := rt.Model(); got != 1 {
		t.Fatalf("one-off timer fired again: model = %v", got)
	}
}

func TestTimerEveryDeliversRepeatedly(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	cancel := rt.Every(2*time.Millisecond, incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model().(int) >= 3 })
	cancel()

	settled := rt.Model().(int)
	time.Sleep(20 * time.Millisecond)
	if got := rt.Model().(int); got > settled+1 {
		t.Fatalf("periodic timer kept firing after cancel: %d -> %d", settled, got)
	}
}

// scriptedInput feeds pre-decoded events to the runtime.
type scriptedInput struct {
	events chan input.Event
	mouse  atomic.Bool
}

func newScriptedInput() *scriptedInput {
	return &scriptedInput{events: make(chan input.Event, 16)}
}

func (s *scriptedInput) Events() <-chan input.Event { return s.events }
func (s *scriptedInput) EnableMouse() error         { s.mouse.Store(true); return nil }
func (s *scriptedInput) DisableMouse() error        { s.mouse.Store(false); return nil }

// recordingTerminal captures frames instead of writing ANSI.
type recordingTerminal struct {
	mu        sync.Mutex
	frames    []string
	altScreen bool
	cursor    bool
}

func (rec *recordingTerminal) Clear() error { return nil }

func (rec *recordingTerminal) Write(text string) error {
	rec.mu.Lock()
	rec.frames = append(rec.frames, text)
	rec.mu.Unlock()
	return nil
}

func (rec *recordingTerminal) HideCursor() error { rec.cursor = false; return nil }
func (rec *recordingTerminal) ShowCursor() error { rec.cursor = true; return nil }

func (rec *recordingTerminal) SetAlternateScreen(on bool) error {
	rec.mu.Lock()
	rec.altScreen = on
	rec.mu.Unlock()
	return nil
}

func (rec *recordingTerminal) lastFrame() (string, bool) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.frames) == 0 {
		return "", false
	}
	return rec.frames[len(rec.frames)-1], true
}

func TestQuitKeyStopsRuntime(t *testing.T) {
	src := newScriptedInput()
	rt := New(&counter{}, quietConfig(), WithInput(src))
	done := startHeadless(t, rt)

	src.events <- input.KeyEvent{Type: input.KeyCtrl, Rune: 'c'}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("ctrl+c did not stop the runtime")
	}
}

func TestKeyHandlerTranslatesKeys(t *testing.T) {
	src := newScriptedInput()
	cfg := quietConfig()
	cfg.KeyHandler = func(k KeyMsg) Msg {
		if k.Type == input.KeyRune && k.Rune == 'j' {
			return incMsg{}
		}
		return nil
	}
	rt := New(&counter{}, cfg, WithInput(src))
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	src.events <- input.KeyEvent{Type: input.KeyRune, Rune: 'j'}
	src.events <- input.KeyEvent{Type: input.KeyRune, Rune: 'x'}
	src.events <- input.KeyEvent{Type: input.KeyRune, Rune: 'j'}
	waitFor(t, time.Second, func() bool { return rt.Model() == 2 })
}

func TestMouseEventsDroppedWhenDisabled(t *testing.T) {
	src := newScriptedInput()
	var handled atomic.Int32
	cfg := quietConfig()
	cfg.MouseHandler = func(MouseMsg) Msg {
		handled.Add(1)
		return nil
	}
	rt := New(&counter{}, cfg, WithInput(src))
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	src.events <- input.MouseEvent{X: 1, Y: 1, Action: input.MousePress}
	time.Sleep(20 * time.Millisecond)
	if handled.Load() != 0 {
		t.Fatalf("mouse handler invoked with mouse support disabled")
	}
}

func TestResizeHandlerReceivesDimensions(t *testing.T) {
	src := newScriptedInput()
	type sizeMsg struct{ w, h int }
	var got atomic.Value
	cfg := quietConfig()
	cfg.ResizeHandler = func(r ResizeMsg) Msg {
		got.Store(sizeMsg{w: r.Width, h: r.Height})
		return nil
	}
	rt := New(&counter{}, cfg, WithInput(src))
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	src.events <- input.ResizeEvent{Width: 80, Height: 24}
	waitFor(t, time.Second, func() bool {
		v, ok := got.Load().(sizeMsg)
		return ok && v.w == 80 && v.h == 24
	})
}

func TestRenderLoopPaintsCurrentModel(t *testing.T) {
	rec := &recordingTerminal{}
	cfg := quietConfig()
	cfg.FPS = 200
	rt := New(&counter{}, cfg, WithTerminal(rec))
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	rt.Dispatch(incMsg{})
	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool {
		frame, ok := rec.lastFrame()
		return ok && strings.Contains(frame, "count: 2")
	})
}

func TestFullscreenEntersAndLeavesAltScreen(t *testing.T) {
	rec := &recordingTerminal{}
	cfg := quietConfig()
	cfg.Fullscreen = true
	rt := New(&counter{}, cfg, WithTerminal(rec))
	done := startHeadless(t, rt)

	rec.mu.Lock()
	entered := rec.altScreen
	rec.mu.Unlock()
	if !entered {
		t.Fatalf("alternate screen not engaged at startup")
	}

	stopRuntime(t, rt, done)
	rec.mu.Lock()
	left := !rec.altScreen
	rec.mu.Unlock()
	if !left {
		t.Fatalf("alternate screen not restored at shutdown")
	}
}

type failingViewComponent struct{ counter }

type failingView struct{}

func (failingView) Render(context.Context) (string, error) {
	return "", errors.New("render exploded")
}

func (failingViewComponent) View(Model) View { return failingView{} }

func TestConsecutiveRenderFailuresAreFatal(t *testing.T) {
	rec := &recordingTerminal{}
	cfg := quietConfig()
	cfg.FPS = 500
	cfg.RenderFailureLimit = 3
	rt := New(&failingViewComponent{}, cfg, WithTerminal(rec))

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	select {
	case err := <-done:
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || rerr.Origin != OriginRender {
			t.Fatalf("Run = %v, want render-origin RuntimeError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("render failures did not stop the runtime")
	}
}

func TestInitPanicFailsRun(t *testing.T) {
	rt := New(&panickyInit{}, quietConfig())
	err := rt.Run(context.Background())
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("Run = %v, want RuntimeError", err)
	}
}

type panickyInit struct{ counter }

func (*panickyInit) Init() (Model, []Command) { panic("init boom") }

func TestInitPanicShutsDownCleanly(t *testing.T) {
	var quits atomic.Int32
	cfg := quietConfig()
	cfg.OnQuit = func() { quits.Add(1) }
	rt := New(&panickyInit{}, cfg)

	err := rt.Run(context.Background())
	var rerr *RuntimeError
	if !errors.As(err, &rerr) {
		t.Fatalf("Run = %v, want RuntimeError", err)
	}
	if got := quits.Load(); got != 1 {
		t.Fatalf("OnQuit ran %d times, want 1", got)
	}
	if err := rt.Dispatch(incMsg{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Dispatch after failed init = %v, want ErrStopped", err)
	}
}

func TestOnQuitRunsOnce(t *testing.T) {
	var quits atomic.Int32
	cfg := quietConfig()
	cfg.OnQuit = func() { quits.Add(1) }
	rt := New(&counter{}, cfg)
	done := startHeadless(t, rt)
	stopRuntime(t, rt, done)

	if got := quits.Load(); got != 1 {
		t.Fatalf("OnQuit ran %d times, want 1", got)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	rec := &recordingTerminal{}
	cfg := quietConfig()
	cfg.FPS = 200
	rt := New(&counter{}, cfg, WithTerminal(rec))
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 1 })
	waitFor(t, time.Second, func() bool { return rt.Metrics().FrameCount > 0 })

	m := rt.Metrics()
	if m.FrameRate <= 0 {
		t.Fatalf("FrameRate = %v, want > 0", m.FrameRate)
	}
	if m.QueueDepth < 0 {
		t.Fatalf("QueueDepth = %d", m.QueueDepth)
	}
}

func TestViewReflectsModel(t *testing.T) {
	rt := New(&counter{}, quietConfig())
	done := startHeadless(t, rt)
	defer stopRuntime(t, rt, done)

	rt.Dispatch(incMsg{})
	waitFor(t, time.Second, func() bool { return rt.Model() == 1 })

	text, err := rt.View().Render(context.Background())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if text != "count: 1" {
		t.Fatalf("View = %q, want %q", text, "count: 1")
	}
}
