package vt

import (
	"strconv"
	"unicode/utf8"
)

// Key names a non-text key. KeyRune means the event carries text.
type Key uint8

const (
	KeyRune Key = iota
	KeyEnter
	KeyTab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyInsert
	KeyDelete
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyKP0
	KeyKP1
	KeyKP2
	KeyKP3
	KeyKP4
	KeyKP5
	KeyKP6
	KeyKP7
	KeyKP8
	KeyKP9
	KeyKPMultiply
	KeyKPPlus
	KeyKPComma
	KeyKPMinus
	KeyKPPeriod
	KeyKPDivide
	KeyKPEnter
	KeyKPEqual
)

var keyNames = [...]string{
	KeyRune: "rune", KeyEnter: "enter", KeyTab: "tab", KeyBackspace: "backspace",
	KeyEscape: "escape", KeyUp: "up", KeyDown: "down", KeyLeft: "left",
	KeyRight: "right", KeyInsert: "insert", KeyDelete: "delete", KeyHome: "home",
	KeyEnd: "end", KeyPageUp: "pgup", KeyPageDown: "pgdn",
	KeyF1: "f1", KeyF2: "f2", KeyF3: "f3", KeyF4: "f4", KeyF5: "f5", KeyF6: "f6",
	KeyF7: "f7", KeyF8: "f8", KeyF9: "f9", KeyF10: "f10", KeyF11: "f11", KeyF12: "f12",
	KeyKP0: "kp0", KeyKP1: "kp1", KeyKP2: "kp2", KeyKP3: "kp3", KeyKP4: "kp4",
	KeyKP5: "kp5", KeyKP6: "kp6", KeyKP7: "kp7", KeyKP8: "kp8", KeyKP9: "kp9",
	KeyKPMultiply: "kp*", KeyKPPlus: "kp+", KeyKPComma: "kp,", KeyKPMinus: "kp-",
	KeyKPPeriod: "kp.", KeyKPDivide: "kp/", KeyKPEnter: "kpenter", KeyKPEqual: "kp=",
}

func (k Key) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return "key(" + strconv.Itoa(int(k)) + ")"
}

// KeyEvent is a key press. For KeyRune, Rune holds the typed character.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Shift bool
	Ctrl  bool
	Alt   bool
}

// EncodeKey returns the bytes an xterm sends for ev in normal cursor mode.
func EncodeKey(ev KeyEvent) []byte { return encodeKey(ev, false) }

// xterm modifier parameter: 1 + shift + 2*alt + 4*ctrl
func (ev KeyEvent) modParam() int {
	m := 1
	if ev.Shift {
		m++
	}
	if ev.Alt {
		m += 2
	}
	if ev.Ctrl {
		m += 4
	}
	return m
}

var (
	cursorFinal = map[Key]byte{
		KeyUp: 'A', KeyDown: 'B', KeyRight: 'C', KeyLeft: 'D',
		KeyHome: 'H', KeyEnd: 'F',
		KeyF1: 'P', KeyF2: 'Q', KeyF3: 'R', KeyF4: 'S',
	}
	tildeCode = map[Key]int{
		KeyInsert: 2, KeyDelete: 3, KeyPageUp: 5, KeyPageDown: 6,
		KeyF5: 15, KeyF6: 17, KeyF7: 18, KeyF8: 19,
		KeyF9: 20, KeyF10: 21, KeyF11: 23, KeyF12: 24,
	}
	keypadText = map[Key]byte{
		KeyKP0: '0', KeyKP1: '1', KeyKP2: '2', KeyKP3: '3', KeyKP4: '4',
		KeyKP5: '5', KeyKP6: '6', KeyKP7: '7', KeyKP8: '8', KeyKP9: '9',
		KeyKPMultiply: '*', KeyKPPlus: '+', KeyKPComma: ',', KeyKPMinus: '-',
		KeyKPPeriod: '.', KeyKPDivide: '/', KeyKPEnter: '\r', KeyKPEqual: '=',
	}
)

func encodeKey(ev KeyEvent, appCursor bool) []byte {
	mod := ev.modParam()
	if f, ok := cursorFinal[ev.Key]; ok {
		isFn := ev.Key >= KeyF1 && ev.Key <= KeyF4
		switch {
		case mod > 1:
			return []byte("\x1b[1;" + strconv.Itoa(mod) + string(f))
		case isFn || appCursor:
			return []byte{0x1b, 'O', f}
		default:
			return []byte{0x1b, '[', f}
		}
	}
	if code, ok := tildeCode[ev.Key]; ok {
		s := "\x1b[" + strconv.Itoa(code)
		if mod > 1 {
			s += ";" + strconv.Itoa(mod)
		}
		return []byte(s + "~")
	}
	if c, ok := keypadText[ev.Key]; ok {
		return altPrefix(ev, []byte{c})
	}

	switch ev.Key {
	case KeyEnter:
		return altPrefix(ev, []byte{'\r'})
	case KeyTab:
		if ev.Shift {
			return []byte("\x1b[Z")
		}
		return altPrefix(ev, []byte{'\t'})
	case KeyBackspace:
		if ev.Ctrl {
			return altPrefix(ev, []byte{0x08})
		}
		return altPrefix(ev, []byte{0x7F})
	case KeyEscape:
		return altPrefix(ev, []byte{0x1B})
	case KeyRune:
		return encodeRune(ev)
	}
	return nil
}

func encodeRune(ev KeyEvent) []byte {
	r := ev.Rune
	if ev.Ctrl {
		if c, ok := ctrlByte(r); ok {
			return altPrefix(ev, []byte{c})
		}
	}
	if r < 0 || !utf8.ValidRune(r) {
		return nil
	}
	return altPrefix(ev, utf8.AppendRune(nil, r))
}

// ctrlByte maps Ctrl+r to its C0 control.
func ctrlByte(r rune) (byte, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return byte(r - 'a' + 1), true
	case r >= '@' && r <= '_':
		return byte(r - '@'), true
	case r == ' ' || r == '2':
		return 0, true
	case r >= '3' && r <= '7':
		return byte(r-'3') + 0x1B, true
	case r == '8' || r == '?':
		return 0x7F, true
	case r == '/':
		return 0x1F, true
	}
	return 0, false
}

func altPrefix(ev KeyEvent, b []byte) []byte {
	if !ev.Alt {
		return b
	}
	return append([]byte{0x1B}, b...)
}
