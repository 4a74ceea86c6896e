package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/atomicstack/termrun"
	"github.com/atomicstack/termrun/input"
)

func newTestPicker(t *testing.T, names ...string) *termrun.Harness {
	t.Helper()
	h := termrun.NewHarness(newPicker())
	// Replace whatever the load command found with a fixed list.
	h.Send(processesMsg{names: names})
	return h
}

func key(r rune) keyMsg {
	return keyMsg{key: input.KeyEvent{Type: input.KeyRune, Rune: r}}
}

func special(kt input.KeyType) keyMsg {
	return keyMsg{key: input.KeyEvent{Type: kt}}
}

func ctrl(r rune) keyMsg {
	return keyMsg{key: input.KeyEvent{Type: input.KeyCtrl, Rune: r}}
}

func TestTypingFiltersList(t *testing.T) {
	h := newTestPicker(t, "bash", "sshd", "systemd", "vim")

	h.Send(key('s'))
	h.Send(key('s'))
	m := h.Model().(pickerModel)
	for _, name := range m.filtered {
		if !strings.Contains(name, "s") {
			t.Fatalf("filtered list contains non-match %q: %v", name, m.filtered)
		}
	}
	if len(m.filtered) == 0 {
		t.Fatalf("filter dropped everything")
	}
	for _, name := range m.filtered {
		if name == "vim" {
			t.Fatalf("vim should not match %q", m.query)
		}
	}
}

func TestBackspaceWidensFilter(t *testing.T) {
	h := newTestPicker(t, "bash", "vim")

	h.Send(key('v'))
	if m := h.Model().(pickerModel); len(m.filtered) != 1 {
		t.Fatalf("filtered = %v, want just vim", m.filtered)
	}
	h.Send(special(input.KeyBackspace))
	if m := h.Model().(pickerModel); len(m.filtered) != 2 {
		t.Fatalf("backspace did not restore the list: %v", m.filtered)
	}
}

func TestCtrlUClearsQuery(t *testing.T) {
	h := newTestPicker(t, "bash", "vim")
	h.Send(key('v'))
	h.Send(key('i'))
	h.Send(ctrl('u'))
	m := h.Model().(pickerModel)
	if m.query != "" {
		t.Fatalf("query = %q after ctrl+u", m.query)
	}
	if len(m.filtered) != 2 {
		t.Fatalf("list not restored: %v", m.filtered)
	}
}

func TestCursorMovementClamped(t *testing.T) {
	h := newTestPicker(t, "a", "b", "c")

	h.Send(special(input.KeyUp))
	if m := h.Model().(pickerModel); m.cursor != 0 {
		t.Fatalf("cursor moved above the top: %d", m.cursor)
	}

	for i := 0; i < 10; i++ {
		h.Send(special(input.KeyDown))
	}
	if m := h.Model().(pickerModel); m.cursor != 2 {
		t.Fatalf("cursor = %d, want 2", m.cursor)
	}

	h.Send(special(input.KeyHome))
	if m := h.Model().(pickerModel); m.cursor != 0 {
		t.Fatalf("home did not reset cursor: %d", m.cursor)
	}
	h.Send(special(input.KeyEnd))
	if m := h.Model().(pickerModel); m.cursor != 2 {
		t.Fatalf("end did not move cursor: %d", m.cursor)
	}
}

func TestFilterClampsCursor(t *testing.T) {
	h := newTestPicker(t, "alpha", "beta", "gamma")
	h.Send(special(input.KeyEnd))
	h.Send(key('a'))
	m := h.Model().(pickerModel)
	if m.cursor >= len(m.filtered) {
		t.Fatalf("cursor %d outside filtered list of %d", m.cursor, len(m.filtered))
	}
}

func TestEnterSelectsHighlighted(t *testing.T) {
	h := newTestPicker(t, "bash", "vim")
	h.Send(special(input.KeyDown))
	h.Send(special(input.KeyEnter))
	m := h.Model().(pickerModel)
	if !strings.HasPrefix(m.status, "selected ") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestClickMovesCursor(t *testing.T) {
	h := newTestPicker(t, "a", "b", "c")
	h.Send(clickMsg{y: 3})
	if m := h.Model().(pickerModel); m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	// Clicks outside the list are ignored.
	h.Send(clickMsg{y: 40})
	if m := h.Model().(pickerModel); m.cursor != 1 {
		t.Fatalf("out-of-range click moved cursor to %d", m.cursor)
	}
}

func TestTickUpdatesClock(t *testing.T) {
	h := newTestPicker(t, "a")
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	h.Send(tickMsg{at: at})
	m := h.Model().(pickerModel)
	if !m.clock.Equal(at) {
		t.Fatalf("clock = %v", m.clock)
	}
	text, err := h.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if !strings.Contains(text, "12:30:00") {
		t.Fatalf("view does not show the clock:\n%s", text)
	}
}

func TestResizeAdjustsViewport(t *testing.T) {
	h := newTestPicker(t, "a", "b", "c", "d", "e", "f")
	h.Send(sizeMsg{width: 40, height: 6})
	m := h.Model().(pickerModel)
	if m.width != 40 || m.height != 6 {
		t.Fatalf("size = %dx%d", m.width, m.height)
	}
	text, err := h.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	// height 6 leaves room for two list rows.
	rows := strings.Count(text, "\r\n")
	if rows > 5 {
		t.Fatalf("view has %d rows for a 6-row terminal:\n%s", rows, text)
	}
}

func TestClockSubscriptionStopsOnCancel(t *testing.T) {
	p := newPicker()
	subs := p.Subscriptions(nil)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- subs[0].Start(ctx, func(termrun.Msg) {}, func() termrun.Model { return nil })
	}()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("subscription did not stop on cancel")
	}
}
