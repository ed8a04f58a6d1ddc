// Package vt interprets the byte stream of a child process as an xterm-style
// terminal and applies it to a cell matrix.
package vt

import (
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"

	"inkterm/ink/geom"
	"inkterm/ink/matrix"
	"inkterm/internal/logging"
)

type state uint8

const (
	stGround state = iota
	stEscape
	stEscapeInter
	stCSI
	stCSIIgnore
	stOSC
	stOSCEscape
	stString
	stStringEscape
)

const (
	maxParams = 16
	tabWidth  = 8
)

// Ambiguous-width runes are narrow regardless of the locale.
var widths = &runewidth.Condition{EastAsianWidth: false}

type cursor struct {
	pos         geom.Point
	pen         matrix.Style
	pendingWrap bool
	originMode  bool
	graphics    bool
}

// Terminal is not safe for concurrent use.
type Terminal struct {
	m    *matrix.Matrix
	out  io.Writer
	bell func()

	rows, cols  int
	top, bottom int
	tabs        []bool

	pen         matrix.Style
	pendingWrap bool
	last        geom.Point
	hasLast     bool

	autowrap   bool
	originMode bool
	appCursor  bool
	insert     bool
	graphics   bool // G0 is DEC special graphics

	saved    cursor
	altSaved cursor

	st      state
	params  []int
	cur     int
	hasCur  bool
	private byte
	inter   byte
	utf     [utf8.UTFMax]byte
	nutf    int
}

// New returns a terminal writing into m.
func New(m *matrix.Matrix) *Terminal {
	t := &Terminal{m: m, out: io.Discard, params: make([]int, 0, maxParams)}
	t.Reset()
	return t
}

// SetOutput sets where replies to status requests are written.
func (t *Terminal) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	t.out = w
}

// SetBell sets the hook called on BEL.
func (t *Terminal) SetBell(fn func()) { t.bell = fn }

// AppCursor reports whether cursor keys are in application mode.
func (t *Terminal) AppCursor() bool { return t.appCursor }

// EncodeKey encodes ev honoring the current cursor key mode.
func (t *Terminal) EncodeKey(ev KeyEvent) []byte { return encodeKey(ev, t.appCursor) }

// Reset performs a full terminal reset.
func (t *Terminal) Reset() {
	t.m.Reset()
	t.rows, t.cols = 0, 0
	t.syncSize()
	t.pen = matrix.DefaultStyle()
	t.pendingWrap = false
	t.hasLast = false
	t.autowrap = true
	t.originMode = false
	t.appCursor = false
	t.insert = false
	t.graphics = false
	t.saved = cursor{pos: geom.Pt(1, 1), pen: matrix.DefaultStyle()}
	t.altSaved = t.saved
	t.resetTabs(0)
	t.st = stGround
	t.nutf = 0
}

// syncSize follows resizes of the matrix done by the renderer.
func (t *Terminal) syncSize() {
	rows, cols := t.m.Rows(), t.m.Cols()
	if rows == t.rows && cols == t.cols {
		return
	}
	oldCols := t.cols
	t.rows, t.cols = rows, cols
	t.top, t.bottom = 1, rows
	t.pendingWrap = false
	t.hasLast = false
	if cols > oldCols {
		t.resetTabs(oldCols)
	}
	t.tabs = t.tabs[:cols]
}

func (t *Terminal) resetTabs(from int) {
	if cap(t.tabs) < t.cols {
		tabs := make([]bool, t.cols)
		copy(tabs, t.tabs)
		t.tabs = tabs
	}
	t.tabs = t.tabs[:t.cols]
	for i := from; i < t.cols; i++ {
		t.tabs[i] = i > 0 && i%tabWidth == 0
	}
}

// Write feeds child output into the terminal. It never fails.
func (t *Terminal) Write(p []byte) (int, error) {
	t.syncSize()
	for _, b := range p {
		t.feed(b)
	}
	return len(p), nil
}

func (t *Terminal) feed(b byte) {
	// Controls act in every state except inside strings.
	switch t.st {
	case stOSC, stOSCEscape, stString, stStringEscape:
		t.feedString(b)
		return
	}
	switch {
	case b == 0x18 || b == 0x1A:
		t.st = stGround
		return
	case b == 0x1B:
		t.flushUTF()
		t.st = stEscape
		t.inter = 0
		return
	case b < 0x20:
		t.flushUTF()
		t.control(b)
		return
	}

	switch t.st {
	case stGround:
		t.ground(b)
	case stEscape:
		t.escape(b)
	case stEscapeInter:
		if b >= 0x30 && b < 0x7F {
			t.designate(t.inter, b)
			t.st = stGround
		}
	case stCSI:
		t.csiByte(b)
	case stCSIIgnore:
		if b >= 0x40 && b < 0x7F {
			t.st = stGround
		}
	}
}

func (t *Terminal) feedString(b byte) {
	switch t.st {
	case stOSC:
		switch b {
		case 0x07:
			t.st = stGround
		case 0x1B:
			t.st = stOSCEscape
		}
	case stOSCEscape, stStringEscape:
		t.st = stGround
		if b != '\\' {
			t.feed(b)
		}
	case stString:
		if b == 0x1B {
			t.st = stStringEscape
		}
	}
}

func (t *Terminal) ground(b byte) {
	if b < 0x80 {
		t.flushUTF()
		if b == 0x7F {
			return
		}
		t.print(rune(b))
		return
	}
	if t.nutf == 0 && !utf8.RuneStart(b) {
		t.print(utf8.RuneError)
		return
	}
	if t.nutf > 0 && utf8.RuneStart(b) {
		t.flushUTF()
	}
	t.utf[t.nutf] = b
	t.nutf++
	if !utf8.FullRune(t.utf[:t.nutf]) {
		return
	}
	r, size := utf8.DecodeRune(t.utf[:t.nutf])
	if size != t.nutf {
		r = utf8.RuneError
	}
	t.nutf = 0
	if r >= 0x80 && r < 0xA0 {
		// C1 controls encoded as UTF-8 are not interpreted.
		return
	}
	t.print(r)
}

// flushUTF drops an incomplete sequence as a replacement character.
func (t *Terminal) flushUTF() {
	if t.nutf > 0 {
		t.nutf = 0
		t.print(utf8.RuneError)
	}
}

func (t *Terminal) control(b byte) {
	switch b {
	case 0x07:
		if t.bell != nil {
			t.bell()
		}
	case 0x08:
		p := t.pos()
		t.moveTo(p.Y, p.X-1)
	case 0x09:
		t.tab(1)
	case 0x0A, 0x0B, 0x0C:
		t.lineFeed()
	case 0x0D:
		t.moveTo(t.pos().Y, 1)
	case 0x0E, 0x0F:
		// G1 shifting is not supported
	}
}

func (t *Terminal) escape(b byte) {
	t.st = stGround
	switch b {
	case '[':
		t.st = stCSI
		t.params = t.params[:0]
		t.cur, t.hasCur = 0, false
		t.private, t.inter = 0, 0
	case ']':
		t.st = stOSC
	case 'P', 'X', '^', '_':
		t.st = stString
	case '(', ')', '*', '+', '#', '%', ' ':
		t.inter = b
		t.st = stEscapeInter
	case '7':
		t.saveCursor(&t.saved)
	case '8':
		t.restoreCursor(&t.saved)
	case 'D':
		t.lineFeed()
	case 'E':
		t.lineFeed()
		t.moveTo(t.pos().Y, 1)
	case 'M':
		t.reverseIndex()
	case 'H':
		if c := t.pos().X; c >= 1 && c <= t.cols {
			t.tabs[c-1] = true
		}
	case 'c':
		t.Reset()
	case '=', '>', '\\':
	default:
		logging.Logger().Debug("vt: unhandled escape", "final", string(rune(b)))
	}
}

func (t *Terminal) designate(inter, final byte) {
	if inter == '(' {
		t.graphics = final == '0'
	}
}

func (t *Terminal) pos() geom.Point { return t.m.Pos() }

// moveTo places the cursor at 1-based (row, col), clipped to the grid.
func (t *Terminal) moveTo(row, col int) {
	t.pendingWrap = false
	t.m.MoveAbs(geom.Pt(col, row))
}

// blankStyle is used for erased and scrolled-in cells. They keep the pen
// colours but none of its other attributes.
func (t *Terminal) blankStyle() matrix.Style {
	s := matrix.DefaultStyle()
	s.FG, s.BG = t.pen.FG, t.pen.BG
	s.DefaultFG, s.DefaultBG = t.pen.DefaultFG, t.pen.DefaultBG
	return s
}

func (t *Terminal) region() geom.Rect { return geom.R(1, t.top, t.cols, t.bottom) }

func (t *Terminal) scroll(region geom.Rect, downward, rightward int) {
	if t.rows == 0 || t.cols == 0 {
		return
	}
	t.m.Scroll(0, t.blankStyle(), region, downward, rightward)
}

func (t *Terminal) lineFeed() {
	p := t.pos()
	t.pendingWrap = false
	if p.Y == t.bottom {
		t.scroll(t.region(), 1, 0)
		return
	}
	t.moveTo(p.Y+1, p.X)
}

func (t *Terminal) reverseIndex() {
	p := t.pos()
	t.pendingWrap = false
	if p.Y == t.top {
		t.scroll(t.region(), -1, 0)
		return
	}
	t.moveTo(p.Y-1, p.X)
}

func (t *Terminal) tab(n int) {
	p := t.pos()
	col := p.X
	for ; n > 0 && col < t.cols; n-- {
		col++
		for col < t.cols && !t.tabs[col-1] {
			col++
		}
	}
	for ; n < 0 && col > 1; n++ {
		col--
		for col > 1 && !t.tabs[col-1] {
			col--
		}
	}
	t.moveTo(p.Y, col)
}

func (t *Terminal) saveCursor(c *cursor) {
	*c = cursor{
		pos:         t.pos(),
		pen:         t.pen,
		pendingWrap: t.pendingWrap,
		originMode:  t.originMode,
		graphics:    t.graphics,
	}
}

func (t *Terminal) restoreCursor(c *cursor) {
	t.pen = c.pen
	t.originMode = c.originMode
	t.graphics = c.graphics
	t.moveTo(c.pos.Y, c.pos.X)
	t.pendingWrap = c.pendingWrap
}

func (t *Terminal) print(r rune) {
	if t.rows == 0 || t.cols == 0 {
		return
	}
	if t.graphics {
		r = decGraphics(r)
	}
	w := widths.RuneWidth(r)
	if w == 0 {
		if unicode.In(r, unicode.Mn, unicode.Me, unicode.Mc) {
			t.combine(r)
		}
		return
	}
	if w > 2 {
		w = 2
	}

	if t.pendingWrap && t.autowrap {
		t.lineFeed()
		t.moveTo(t.pos().Y, 1)
	}
	p := t.pos()
	if w == 2 && p.X == t.cols && t.cols > 1 {
		if !t.autowrap {
			return
		}
		t.m.Set(' ', t.pen, p)
		t.lineFeed()
		t.moveTo(t.pos().Y, 1)
		p = t.pos()
	}
	if t.insert {
		t.scroll(geom.R(p.X, p.Y, t.cols, p.Y), 0, -w)
	}

	t.m.Set(r, t.pen, p)
	if w == 2 && p.X < t.cols {
		t.m.Set(0, t.pen, geom.Pt(p.X+1, p.Y))
	}
	t.last, t.hasLast = p, true

	if p.X+w > t.cols {
		t.m.MoveAbs(geom.Pt(t.cols, p.Y))
		t.pendingWrap = true
		return
	}
	t.moveTo(p.Y, p.X+w)
}

// combine composes a mark with the previously printed glyph. Marks without
// a precomposed form are dropped.
func (t *Terminal) combine(r rune) {
	if !t.hasLast {
		return
	}
	c := t.m.At(t.last)
	if c.Glyph == 0 {
		return
	}
	s := norm.NFC.String(string([]rune{c.Glyph, r}))
	composed, size := utf8.DecodeRuneInString(s)
	if size != len(s) {
		return
	}
	t.m.Set(composed, c.Style, t.last)
}

func (t *Terminal) reply(format string, args ...any) {
	if _, err := fmt.Fprintf(t.out, format, args...); err != nil {
		logging.Logger().Warn("vt: reply", "err", err)
	}
}
