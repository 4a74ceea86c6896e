package input

import (
	"strconv"
	"unicode/utf8"
)

// parse decodes the first event in buf and reports how many bytes it
// consumed. A zero count means buf holds an incomplete sequence and more
// bytes are needed. atEnd indicates no further bytes are pending, which lets
// a trailing lone ESC be reported as the escape key instead of waiting for a
// continuation that will never arrive.
func parse(buf []byte, atEnd bool) (Event, int) {
	if len(buf) == 0 {
		return nil, 0
	}

	if buf[0] == 0x1b {
		return parseEscape(buf, atEnd)
	}

	switch buf[0] {
	case '\r', '\n':
		return KeyEvent{Type: KeyEnter}, 1
	case '\t':
		return KeyEvent{Type: KeyTab}, 1
	case 0x7f, 0x08:
		return KeyEvent{Type: KeyBackspace}, 1
	}
	if buf[0] < 0x20 {
		return KeyEvent{Type: KeyCtrl, Rune: ctrlRune(buf[0])}, 1
	}

	r, size := utf8.DecodeRune(buf)
	if r == utf8.RuneError && size == 1 && !atEnd && !utf8.FullRune(buf) {
		return nil, 0
	}
	return KeyEvent{Type: KeyRune, Rune: r}, size
}

// ctrlRune maps a C0 control byte to the character of its chord: 0x01 is
// ctrl+a through 0x1a ctrl+z, with the punctuation chords (ctrl+space,
// ctrl+\, ctrl+], ctrl+^, ctrl+_) named explicitly. ESC and the bytes with
// dedicated keys never reach here.
func ctrlRune(b byte) rune {
	switch b {
	case 0x00:
		return ' '
	case 0x1c:
		return '\\'
	case 0x1d:
		return ']'
	case 0x1e:
		return '^'
	case 0x1f:
		return '_'
	}
	return rune('a' + b - 1)
}

func parseEscape(buf []byte, atEnd bool) (Event, int) {
	if len(buf) == 1 {
		if atEnd {
			return KeyEvent{Type: KeyEsc}, 1
		}
		return nil, 0
	}

	switch buf[1] {
	case '[':
		return parseCSI(buf, atEnd)
	case 'O':
		// SS3 sequences (application cursor keys).
		if len(buf) < 3 {
			if atEnd {
				return KeyEvent{Type: KeyEsc}, 1
			}
			return nil, 0
		}
		switch buf[2] {
		case 'A':
			return KeyEvent{Type: KeyUp}, 3
		case 'B':
			return KeyEvent{Type: KeyDown}, 3
		case 'C':
			return KeyEvent{Type: KeyRight}, 3
		case 'D':
			return KeyEvent{Type: KeyLeft}, 3
		case 'H':
			return KeyEvent{Type: KeyHome}, 3
		case 'F':
			return KeyEvent{Type: KeyEnd}, 3
		}
		return KeyEvent{Type: KeyEsc}, 1
	}

	// ESC followed by a printable rune is an alt chord.
	r, size := utf8.DecodeRune(buf[1:])
	if r == utf8.RuneError {
		return KeyEvent{Type: KeyEsc}, 1
	}
	ev, n := parse(buf[1:1+size], true)
	if k, ok := ev.(KeyEvent); ok && n > 0 {
		k.Alt = true
		return k, 1 + n
	}
	return KeyEvent{Type: KeyEsc}, 1
}

func parseCSI(buf []byte, atEnd bool) (Event, int) {
	// buf starts with ESC [.
	if len(buf) < 3 {
		if atEnd {
			return KeyEvent{Type: KeyEsc}, 1
		}
		return nil, 0
	}

	if buf[2] == '<' {
		return parseSGRMouse(buf, atEnd)
	}

	// Find the final byte of the control sequence.
	i := 2
	for i < len(buf) && (buf[i] == ';' || (buf[i] >= '0' && buf[i] <= '9')) {
		i++
	}
	if i >= len(buf) {
		if atEnd {
			return KeyEvent{Type: KeyEsc}, 1
		}
		return nil, 0
	}

	final := buf[i]
	params := string(buf[2:i])
	consumed := i + 1
	switch final {
	case 'A':
		return KeyEvent{Type: KeyUp}, consumed
	case 'B':
		return KeyEvent{Type: KeyDown}, consumed
	case 'C':
		return KeyEvent{Type: KeyRight}, consumed
	case 'D':
		return KeyEvent{Type: KeyLeft}, consumed
	case 'H':
		return KeyEvent{Type: KeyHome}, consumed
	case 'F':
		return KeyEvent{Type: KeyEnd}, consumed
	case '~':
		switch params {
		case "1", "7":
			return KeyEvent{Type: KeyHome}, consumed
		case "3":
			return KeyEvent{Type: KeyDelete}, consumed
		case "4", "8":
			return KeyEvent{Type: KeyEnd}, consumed
		}
	}
	// Unrecognised sequence: swallow it rather than leak bytes as runes.
	return KeyEvent{Type: KeyEsc}, consumed
}

// parseSGRMouse decodes an SGR extended mouse report: ESC [ < b ; x ; y M/m.
func parseSGRMouse(buf []byte, atEnd bool) (Event, int) {
	i := 3
	for i < len(buf) && buf[i] != 'M' && buf[i] != 'm' {
		i++
	}
	if i >= len(buf) {
		if atEnd {
			return KeyEvent{Type: KeyEsc}, 1
		}
		return nil, 0
	}

	fields := splitParams(string(buf[3:i]))
	if len(fields) != 3 {
		return KeyEvent{Type: KeyEsc}, i + 1
	}
	b, x, y := fields[0], fields[1], fields[2]

	ev := MouseEvent{X: x - 1, Y: y - 1, Button: b & 0x3}
	switch {
	case b&32 != 0:
		ev.Action = MouseMotion
	case buf[i] == 'm':
		ev.Action = MouseRelease
	default:
		ev.Action = MousePress
	}
	return ev, i + 1
}

func splitParams(s string) []int {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			n, err := strconv.Atoi(s[start:i])
			if err != nil {
				return nil
			}
			out = append(out, n)
			start = i + 1
		}
	}
	return out
}
