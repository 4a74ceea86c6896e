package termrun

import "context"

// Harness drives a Component synchronously, without the runtime's loops or
// collaborators. Commands returned by Init/Update are executed inline and
// their results fed straight back through Update, which makes model logic
// testable without timing concerns.
type Harness struct {
	comp  Component
	model Model
}

// NewHarness initializes the component and executes its initial commands.
func NewHarness(comp Component) *Harness {
	h := &Harness{comp: comp}
	model, cmds := comp.Init()
	h.model = model
	h.runCommands(cmds)
	return h
}

// Send folds one message into the model and executes any resulting
// commands.
func (h *Harness) Send(msg Msg) {
	if batch, ok := msg.(BatchMsg); ok {
		for _, m := range batch.Msgs {
			h.Send(m)
		}
		return
	}
	model, cmds := h.comp.Update(msg, h.model)
	h.model = model
	h.runCommands(cmds)
}

func (h *Harness) runCommands(cmds []Command) {
	for _, cmd := range cmds {
		if cmd.Run == nil {
			continue
		}
		msg, err := cmd.Run(context.Background())
		if err != nil {
			if cmd.OnError != nil {
				cmd.OnError(err)
			}
			continue
		}
		if msg == nil {
			continue
		}
		if cmd.OnComplete != nil {
			cmd.OnComplete(msg)
		}
		h.Send(msg)
	}
}

// Model returns the current model.
func (h *Harness) Model() Model {
	return h.model
}

// View renders the component's current view.
func (h *Harness) View() (string, error) {
	view := h.comp.View(h.model)
	if view == nil {
		return "", nil
	}
	return view.Render(context.Background())
}
