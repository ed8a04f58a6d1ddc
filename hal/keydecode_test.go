package hal

import (
	"reflect"
	"testing"

	"inkterm/ink/vt"
)

func TestDecodeKeys(t *testing.T) {
	tests := []struct {
		in   string
		want []vt.KeyEvent
	}{
		{"ab", []vt.KeyEvent{{Rune: 'a'}, {Rune: 'b'}}},
		{"é", []vt.KeyEvent{{Rune: 'é'}}},
		{"\r\t\x7f", []vt.KeyEvent{{Key: vt.KeyEnter}, {Key: vt.KeyTab}, {Key: vt.KeyBackspace}}},
		{"\x03", []vt.KeyEvent{{Rune: 'c', Ctrl: true}}},
		{"\x1c", []vt.KeyEvent{{Rune: '\\', Ctrl: true}}},
		{"\x1b[A\x1bOB", []vt.KeyEvent{{Key: vt.KeyUp}, {Key: vt.KeyDown}}},
		{"\x1b[1;5C", []vt.KeyEvent{{Key: vt.KeyRight, Ctrl: true}}},
		{"\x1b[3~", []vt.KeyEvent{{Key: vt.KeyDelete}}},
		{"\x1b[15;2~", []vt.KeyEvent{{Key: vt.KeyF5, Shift: true}}},
		{"\x1bOP", []vt.KeyEvent{{Key: vt.KeyF1}}},
		{"\x1bOq", []vt.KeyEvent{{Key: vt.KeyKP1}}},
		{"\x1b[Z", []vt.KeyEvent{{Key: vt.KeyTab, Shift: true}}},
		{"\x1bx", []vt.KeyEvent{{Rune: 'x', Alt: true}}},
		{"\x1b[99~x", []vt.KeyEvent{{Rune: 'x'}}},
	}
	for _, tt := range tests {
		got, n := decodeKeys([]byte(tt.in), false)
		if n != len(tt.in) {
			t.Fatalf("%q: consumed %d of %d", tt.in, n, len(tt.in))
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%q: got %+v want %+v", tt.in, got, tt.want)
		}
	}
}

func TestDecodeKeysPartial(t *testing.T) {
	for _, in := range []string{"\x1b", "\x1b[1;5", "\x1bO", "\xc3"} {
		evs, n := decodeKeys([]byte("a"+in), false)
		if n != 1 || len(evs) != 1 {
			t.Fatalf("%q: n=%d evs=%+v", in, n, evs)
		}
	}

	evs, n := decodeKeys([]byte("\x1b"), true)
	if n != 1 || len(evs) != 1 || evs[0].Key != vt.KeyEscape {
		t.Fatalf("flushed ESC: n=%d evs=%+v", n, evs)
	}
	evs, n = decodeKeys([]byte("\x1b[1;"), true)
	if n != 4 || len(evs) != 0 {
		t.Fatalf("flushed partial CSI: n=%d evs=%+v", n, evs)
	}
}

// Keys decoded from a terminal encode back to the same bytes.
func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, in := range []string{"\x1b[1;5A", "\x1b[6~", "\x1bOQ", "\x01", "\x1bq", "\r"} {
		evs, _ := decodeKeys([]byte(in), false)
		if len(evs) != 1 {
			t.Fatalf("%q: evs=%+v", in, evs)
		}
		if got := string(vt.EncodeKey(evs[0])); got != in {
			t.Fatalf("%q: re-encoded as %q", in, got)
		}
	}
}
