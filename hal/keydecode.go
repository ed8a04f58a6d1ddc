package hal

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"inkterm/ink/vt"
)

// Longest escape sequence looked at before it is treated as garbage.
const maxSeqLen = 16

var (
	csiFinalKeys = map[byte]vt.Key{
		'A': vt.KeyUp, 'B': vt.KeyDown, 'C': vt.KeyRight, 'D': vt.KeyLeft,
		'H': vt.KeyHome, 'F': vt.KeyEnd,
		'P': vt.KeyF1, 'Q': vt.KeyF2, 'R': vt.KeyF3, 'S': vt.KeyF4,
	}
	tildeKeys = map[int]vt.Key{
		1: vt.KeyHome, 2: vt.KeyInsert, 3: vt.KeyDelete, 4: vt.KeyEnd,
		5: vt.KeyPageUp, 6: vt.KeyPageDown, 7: vt.KeyHome, 8: vt.KeyEnd,
		11: vt.KeyF1, 12: vt.KeyF2, 13: vt.KeyF3, 14: vt.KeyF4, 15: vt.KeyF5,
		17: vt.KeyF6, 18: vt.KeyF7, 19: vt.KeyF8, 20: vt.KeyF9, 21: vt.KeyF10,
		23: vt.KeyF11, 24: vt.KeyF12,
	}
	ss3Keypad = map[byte]vt.Key{
		'p': vt.KeyKP0, 'q': vt.KeyKP1, 'r': vt.KeyKP2, 's': vt.KeyKP3, 't': vt.KeyKP4,
		'u': vt.KeyKP5, 'v': vt.KeyKP6, 'w': vt.KeyKP7, 'x': vt.KeyKP8, 'y': vt.KeyKP9,
		'j': vt.KeyKPMultiply, 'k': vt.KeyKPPlus, 'l': vt.KeyKPComma, 'm': vt.KeyKPMinus,
		'n': vt.KeyKPPeriod, 'o': vt.KeyKPDivide, 'M': vt.KeyKPEnter, 'X': vt.KeyKPEqual,
	}
)

// decodeKeys turns terminal input bytes into key events. It returns the
// number of bytes consumed; an incomplete sequence at the end is left for
// the next call unless flush is set, in which case a lone ESC becomes the
// Escape key and other partial input is dropped.
func decodeKeys(data []byte, flush bool) ([]vt.KeyEvent, int) {
	var evs []vt.KeyEvent
	i := 0
	for i < len(data) {
		n, ev, ok := decodeOne(data[i:])
		if n == 0 {
			if !flush {
				break
			}
			if data[i] == 0x1B && i+1 == len(data) {
				evs = append(evs, vt.KeyEvent{Key: vt.KeyEscape})
			}
			i = len(data)
			break
		}
		if ok {
			evs = append(evs, ev)
		}
		i += n
	}
	return evs, i
}

// decodeOne decodes the key at the start of data. n is zero when more
// input is needed; ok is false for consumed bytes that name no key.
func decodeOne(data []byte) (n int, ev vt.KeyEvent, ok bool) {
	b := data[0]
	switch {
	case b == 0x1B:
		return decodeEscape(data)
	case b < 0x20 || b == 0x7F:
		return 1, controlKey(b), true
	case b < 0x80:
		return 1, vt.KeyEvent{Rune: rune(b)}, true
	}
	if !utf8.FullRune(data) {
		return 0, ev, false
	}
	r, size := utf8.DecodeRune(data)
	if r == utf8.RuneError && size == 1 {
		return 1, ev, false
	}
	return size, vt.KeyEvent{Rune: r}, true
}

func controlKey(b byte) vt.KeyEvent {
	switch b {
	case '\r':
		return vt.KeyEvent{Key: vt.KeyEnter}
	case '\t':
		return vt.KeyEvent{Key: vt.KeyTab}
	case 0x7F:
		return vt.KeyEvent{Key: vt.KeyBackspace}
	case 0x08:
		return vt.KeyEvent{Key: vt.KeyBackspace, Ctrl: true}
	case 0x00:
		return vt.KeyEvent{Rune: ' ', Ctrl: true}
	}
	if b <= 0x1A {
		return vt.KeyEvent{Rune: rune('a' + b - 1), Ctrl: true}
	}
	return vt.KeyEvent{Rune: rune('@' + b), Ctrl: true}
}

func decodeEscape(data []byte) (int, vt.KeyEvent, bool) {
	if len(data) < 2 {
		return 0, vt.KeyEvent{}, false
	}
	switch data[1] {
	case '[':
		return decodeCSI(data)
	case 'O':
		if len(data) < 3 {
			return 0, vt.KeyEvent{}, false
		}
		if k, ok := csiFinalKeys[data[2]]; ok {
			return 3, vt.KeyEvent{Key: k}, true
		}
		if k, ok := ss3Keypad[data[2]]; ok {
			return 3, vt.KeyEvent{Key: k}, true
		}
		return 3, vt.KeyEvent{}, false
	case 0x1B:
		return 1, vt.KeyEvent{Key: vt.KeyEscape}, true
	}
	// Alt+key
	n, ev, ok := decodeOne(data[1:])
	if n == 0 {
		return 0, ev, false
	}
	ev.Alt = true
	return n + 1, ev, ok
}

func decodeCSI(data []byte) (int, vt.KeyEvent, bool) {
	end := 2
	for ; end < len(data) && end < maxSeqLen; end++ {
		b := data[end]
		if b >= 0x40 && b <= 0x7E {
			break
		}
		if b < 0x20 || b > 0x3F {
			// Not a CSI; only the ESC [ prefix is consumed.
			return 2, vt.KeyEvent{Rune: '[', Alt: true}, true
		}
	}
	if end >= len(data) {
		if end >= maxSeqLen {
			return end, vt.KeyEvent{}, false
		}
		return 0, vt.KeyEvent{}, false
	}
	final := data[end]
	params := strings.Split(string(data[2:end]), ";")
	num := func(i int) int {
		if i >= len(params) {
			return 0
		}
		v, _ := strconv.Atoi(params[i])
		return v
	}
	ev := vt.KeyEvent{}
	if mod := num(1) - 1; mod > 0 {
		ev.Shift = mod&1 != 0
		ev.Alt = mod&2 != 0
		ev.Ctrl = mod&4 != 0
	}
	n := end + 1
	switch final {
	case '~':
		k, ok := tildeKeys[num(0)]
		ev.Key = k
		return n, ev, ok
	case 'Z':
		return n, vt.KeyEvent{Key: vt.KeyTab, Shift: true}, true
	}
	k, ok := csiFinalKeys[final]
	ev.Key = k
	return n, ev, ok
}
