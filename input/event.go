package input

import "fmt"

// Event is a decoded terminal input event. The concrete types are KeyEvent,
// MouseEvent, and ResizeEvent; nothing else implements the interface.
type Event interface {
	isEvent()
}

// KeyType identifies a key that is not an ordinary printable rune.
type KeyType int

const (
	// KeyRune is a printable rune; the Rune field carries it.
	KeyRune KeyType = iota
	// KeyCtrl is a control chord; the Rune field carries the letter.
	KeyCtrl
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEsc
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyDelete
)

var keyNames = map[KeyType]string{
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyBackspace: "backspace",
	KeyEsc:       "esc",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyDelete:    "delete",
}

// KeyEvent reports a single key press.
type KeyEvent struct {
	Type KeyType
	Rune rune
	Alt  bool
}

func (KeyEvent) isEvent() {}

// String renders the key in a human-readable form, e.g. "ctrl+c" or "up".
func (k KeyEvent) String() string {
	var s string
	switch k.Type {
	case KeyRune:
		s = string(k.Rune)
	case KeyCtrl:
		s = fmt.Sprintf("ctrl+%c", k.Rune)
	default:
		s = keyNames[k.Type]
	}
	if k.Alt {
		return "alt+" + s
	}
	return s
}

// MouseAction distinguishes presses, releases, and motion.
type MouseAction int

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMotion
)

// MouseEvent reports a mouse interaction at a cell position. Coordinates are
// zero-based.
type MouseEvent struct {
	X, Y   int
	Button int
	Action MouseAction
}

func (MouseEvent) isEvent() {}

// ResizeEvent reports the new terminal dimensions.
type ResizeEvent struct {
	Width, Height int
}

func (ResizeEvent) isEvent() {}
