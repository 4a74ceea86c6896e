package termrun

import "testing"

func TestHarnessAppliesMessages(t *testing.T) {
	h := NewHarness(&counter{})
	h.Send(incMsg{})
	h.Send(incMsg{})
	if got := h.Model(); got != 2 {
		t.Fatalf("model = %v, want 2", got)
	}
}

func TestHarnessRunsCommandsInline(t *testing.T) {
	comp := &counter{}
	h := NewHarness(comp)
	h.Send(loadMsg{})
	if comp.loaded != "Loaded!" {
		t.Fatalf("command result not folded back: %q", comp.loaded)
	}
}

func TestHarnessFansOutBatches(t *testing.T) {
	h := NewHarness(&counter{})
	h.Send(Batch(incMsg{}, incMsg{}, incMsg{}))
	if got := h.Model(); got != 3 {
		t.Fatalf("model = %v, want 3", got)
	}
}

func TestHarnessView(t *testing.T) {
	h := NewHarness(&counter{})
	h.Send(incMsg{})
	text, err := h.View()
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if text != "count: 1" {
		t.Fatalf("View = %q", text)
	}
}
