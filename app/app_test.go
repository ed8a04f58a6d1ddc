package app

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"inkterm/hal"
	"inkterm/ink/color"
	"inkterm/ink/config"
	"inkterm/ink/font"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
)

type fakeChild struct {
	mu      sync.Mutex
	out     chan []byte
	written bytes.Buffer
	resizes [][2]int
	closed  int
}

func newFakeChild() *fakeChild { return &fakeChild{out: make(chan []byte, 16)} }

func (c *fakeChild) Output() <-chan []byte { return c.out }

func (c *fakeChild) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.Write(p)
}

func (c *fakeChild) Resize(rows, cols int) error {
	c.resizes = append(c.resizes, [2]int{rows, cols})
	return nil
}

func (c *fakeChild) Close() error { c.closed++; return nil }

func (c *fakeChild) input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

type testDevice struct {
	*hal.Framebuffer
	keys  chan vt.KeyEvent
	bells int
}

func (d *testDevice) Keys() <-chan vt.KeyEvent { return d.keys }
func (d *testDevice) Bell()                    { d.bells++ }

// sizedSource draws solid blocks in cells that scale with the font size:
// one pixel wide and two high per point.
type sizedSource struct {
	panicOn rune
}

func (s sizedSource) Metrics(size int) font.Metrics {
	pt := size / 64
	return font.Metrics{CellWidth: pt, CellHeight: 2 * pt, OriginY: 3 * pt / 2}
}

func (s sizedSource) Render(glyph rune, size int, _ bool, orientation int) *font.Bitmap {
	if s.panicOn != 0 && glyph == s.panicOn {
		panic("bad glyph")
	}
	if glyph == 0 || glyph == ' ' {
		return nil
	}
	m := s.Metrics(size)
	w, h := m.CellWidth, m.CellHeight
	if orientation&1 == 1 {
		w, h = h, w
	}
	b := &font.Bitmap{W: w, H: h, Stride: w, Buf: make([]byte, w*h)}
	for i := range b.Buf {
		b.Buf[i] = 0xFF
	}
	return b
}

func newTestTerminal(t *testing.T, cfg config.Config, src font.Source) (*Terminal, *testDevice, *fakeChild) {
	t.Helper()
	dev := &testDevice{
		Framebuffer: hal.NewFramebuffer(100, 60, color.RGBA8888, false),
		keys:        make(chan vt.KeyEvent, 16),
	}
	child := newFakeChild()
	clock := time.Unix(0, 0)
	term, err := New(dev, cfg, Options{
		Source: src,
		Start: func(rows, cols int) (Child, error) {
			if rows != 3 || cols != 10 {
				t.Fatalf("child started at %dx%d", rows, cols)
			}
			return child, nil
		},
		Now: func() time.Time { clock = clock.Add(16 * time.Millisecond); return clock },
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return term, dev, child
}

func TestTerminalShowsChildOutput(t *testing.T) {
	term, dev, child := newTestTerminal(t, config.Default(), sizedSource{})
	child.out <- []byte("hi\a")
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g := term.m.At(geom.Pt(1, 1)).Glyph; g != 'h' {
		t.Fatalf("cell 1,1=%q", g)
	}
	if g := term.m.At(geom.Pt(2, 1)).Glyph; g != 'i' {
		t.Fatalf("cell 2,1=%q", g)
	}
	if dev.bells != 1 {
		t.Fatalf("bells=%d", dev.bells)
	}
	if flushes, _ := dev.Stats(); flushes == 0 {
		t.Fatal("nothing reached the device")
	}
	// The block glyph shows in the light default foreground.
	if c := dev.At(5, 10); c.R < 128 {
		t.Fatalf("pixel=%v", c)
	}
}

func TestTerminalSendsKeys(t *testing.T) {
	term, dev, child := newTestTerminal(t, config.Default(), sizedSource{})
	dev.keys <- vt.KeyEvent{Rune: 'a'}
	dev.keys <- vt.KeyEvent{Rune: 'c', Ctrl: true}
	dev.keys <- vt.KeyEvent{Key: vt.KeyEnter}
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := child.input(); got != "a\x03\r" {
		t.Fatalf("child got %q", got)
	}

	// Replies to status requests go to the child too.
	child.out <- []byte("\x1b[6n")
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if got := child.input(); got != "a\x03\r\x1b[1;1R" {
		t.Fatalf("child got %q", got)
	}
}

func TestTerminalFirstFramePaintsSurface(t *testing.T) {
	term, dev, _ := newTestTerminal(t, config.Default(), sizedSource{})
	// Leftover panel content from before start.
	dev.Clear(color.White)
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	for _, p := range []geom.Point{{X: 50, Y: 30}, {X: 95, Y: 55}} {
		if c := dev.At(p.X, p.Y); c != color.Black {
			t.Fatalf("pixel %v=%v want background", p, c)
		}
	}
}

func TestTerminalShortcuts(t *testing.T) {
	term, dev, child := newTestTerminal(t, config.Default(), sizedSource{})
	dev.keys <- vt.KeyEvent{Key: vt.KeyUp, Ctrl: true, Shift: true}
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if term.r.FontSize() != 640+fontStep {
		t.Fatalf("font size=%d", term.r.FontSize())
	}
	// 11x22 cells on 100x60.
	if len(child.resizes) != 1 || child.resizes[0] != [2]int{2, 9} {
		t.Fatalf("resizes=%v", child.resizes)
	}

	dev.keys <- vt.KeyEvent{Rune: 'R', Ctrl: true, Shift: true}
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if term.r.Orientation() != 1 {
		t.Fatalf("orientation=%d", term.r.Orientation())
	}
	// Rotated, the 60x100 surface holds 5x4 cells.
	if last := child.resizes[len(child.resizes)-1]; last != [2]int{4, 5} {
		t.Fatalf("resizes=%v", child.resizes)
	}

	dev.keys <- vt.KeyEvent{Key: vt.KeyF5}
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if term.redraw {
		t.Fatal("redraw still pending")
	}
	if got := child.input(); got != "" {
		t.Fatalf("shortcuts reached the child: %q", got)
	}
}

func TestTerminalChildExit(t *testing.T) {
	term, _, child := newTestTerminal(t, config.Default(), sizedSource{})
	child.out <- []byte("bye")
	close(child.out)
	if err := term.Step(); !errors.Is(err, ErrChildExited) {
		t.Fatalf("err=%v", err)
	}
	if g := term.m.At(geom.Pt(1, 1)).Glyph; g != 'b' {
		t.Fatalf("output before exit was lost: %q", g)
	}
	if err := term.Close(); err != nil || child.closed != 1 {
		t.Fatalf("close: err=%v closed=%d", err, child.closed)
	}
}

func TestTerminalEncoding(t *testing.T) {
	cfg := config.Default()
	cfg.General.Encoding = "iso8859-1"
	term, dev, child := newTestTerminal(t, cfg, sizedSource{})
	child.out <- []byte{0xe9}
	dev.keys <- vt.KeyEvent{Rune: 'ü'}
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if g := term.m.At(geom.Pt(1, 1)).Glyph; g != 'é' {
		t.Fatalf("cell=%q", g)
	}
	if got := child.input(); got != "\xfc" {
		t.Fatalf("child got %q", got)
	}
}

func TestTerminalPanicReport(t *testing.T) {
	term, dev, child := newTestTerminal(t, config.Default(), sizedSource{panicOn: '☠'})
	child.out <- []byte("☠")
	if err := term.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	if term.halted == nil {
		t.Fatal("terminal not halted")
	}
	shown := false
	for y := 1; y <= term.m.Rows(); y++ {
		if strings.HasPrefix(rowText(term, y), "press any") {
			shown = true
		}
	}
	if !shown {
		t.Fatal("report not shown")
	}
	if err := term.Step(); err != nil {
		t.Fatalf("halted step: %v", err)
	}
	dev.keys <- vt.KeyEvent{Rune: 'q'}
	var perr *PanicError
	if err := term.Step(); !errors.As(err, &perr) || perr.Value != "bad glyph" {
		t.Fatalf("err=%v", err)
	}
	if got := child.input(); got != "" {
		t.Fatalf("child got %q", got)
	}
}

func rowText(term *Terminal, y int) string {
	var b strings.Builder
	for x := 1; x <= term.m.Cols(); x++ {
		if g := term.m.At(geom.Pt(x, y)).Glyph; g != 0 {
			b.WriteRune(g)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func TestTakeRunes(t *testing.T) {
	tests := []struct {
		s          string
		n          int
		head, tail string
	}{
		{"abc", 2, "ab", "c"},
		{"abc", 5, "abc", ""},
		{"äöü", 1, "ä", "öü"},
		{"x", 0, "", "x"},
	}
	for _, tt := range tests {
		head, tail := takeRunes(tt.s, tt.n)
		if head != tt.head || tail != tt.tail {
			t.Fatalf("takeRunes(%q, %d)=%q,%q", tt.s, tt.n, head, tail)
		}
	}
}
