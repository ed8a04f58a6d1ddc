package vt

import (
	"bytes"
	"strings"
	"testing"

	"inkterm/ink/color"
	"inkterm/ink/geom"
	"inkterm/ink/matrix"
)

func newTerm(rows, cols int) (*Terminal, *matrix.Matrix) {
	m := matrix.New(rows, cols)
	return New(m), m
}

func rowText(m *matrix.Matrix, row int) string {
	var sb strings.Builder
	for x := 1; x <= m.Cols(); x++ {
		g := m.At(geom.Pt(x, row)).Glyph
		if g == 0 {
			g = ' '
		}
		sb.WriteRune(g)
	}
	return strings.TrimRight(sb.String(), " ")
}

func write(term *Terminal, s string) { term.Write([]byte(s)) }

func TestPrintDefersWrap(t *testing.T) {
	term, m := newTerm(3, 5)
	write(term, "hello")
	if got := m.Pos(); got != geom.Pt(5, 1) {
		t.Fatalf("pos=%v want pending wrap on the last column", got)
	}
	write(term, "x")
	if rowText(m, 1) != "hello" || rowText(m, 2) != "x" {
		t.Fatalf("rows %q %q", rowText(m, 1), rowText(m, 2))
	}
	if got := m.Pos(); got != geom.Pt(2, 2) {
		t.Fatalf("pos=%v", got)
	}
}

func TestCarriageReturnClearsPendingWrap(t *testing.T) {
	term, m := newTerm(3, 5)
	write(term, "hello\rH")
	if rowText(m, 1) != "Hello" || rowText(m, 2) != "" {
		t.Fatalf("rows %q %q", rowText(m, 1), rowText(m, 2))
	}
}

func TestNoAutowrap(t *testing.T) {
	term, m := newTerm(2, 3)
	write(term, "\x1b[?7labcdef")
	if rowText(m, 1) != "abf" || rowText(m, 2) != "" {
		t.Fatalf("rows %q %q", rowText(m, 1), rowText(m, 2))
	}
}

func TestLineFeedScrolls(t *testing.T) {
	term, m := newTerm(3, 4)
	write(term, "a\r\nb\r\nc\r\nd")
	for row, want := range []string{"b", "c", "d"} {
		if got := rowText(m, row+1); got != want {
			t.Fatalf("row %d=%q want %q", row+1, got, want)
		}
	}
}

func TestScrollRegion(t *testing.T) {
	term, m := newTerm(4, 4)
	write(term, "1\r\n2\r\n3\r\n4")
	write(term, "\x1b[2;3r")
	if got := m.Pos(); got != geom.Pt(1, 1) {
		t.Fatalf("DECSTBM should home the cursor, pos=%v", got)
	}
	write(term, "\x1b[3;1H\n")
	for row, want := range []string{"1", "3", "", "4"} {
		if got := rowText(m, row+1); got != want {
			t.Fatalf("row %d=%q want %q", row+1, got, want)
		}
	}
	write(term, "\x1b[2;1H\x1bM")
	for row, want := range []string{"1", "", "3", "4"} {
		if got := rowText(m, row+1); got != want {
			t.Fatalf("after RI row %d=%q want %q", row+1, got, want)
		}
	}
}

func TestCursorMovement(t *testing.T) {
	term, m := newTerm(10, 20)
	tests := []struct {
		seq  string
		want geom.Point
	}{
		{"\x1b[5;7H", geom.Pt(7, 5)},
		{"\x1b[2A", geom.Pt(7, 3)},
		{"\x1b[B", geom.Pt(7, 4)},
		{"\x1b[3C", geom.Pt(10, 4)},
		{"\x1b[20D", geom.Pt(1, 4)},
		{"\x1b[15G", geom.Pt(15, 4)},
		{"\x1b[8d", geom.Pt(15, 8)},
		{"\x1b[2E", geom.Pt(1, 10)},
		{"\x1b[3F", geom.Pt(1, 7)},
		{"\x1b[99;99f", geom.Pt(20, 10)},
		{"\x1b[H", geom.Pt(1, 1)},
		{"\x1b[3;4H\x1b7\x1b[H\x1b8", geom.Pt(4, 3)},
		{"\x1bE", geom.Pt(1, 4)},
		{"ab\b", geom.Pt(2, 4)},
	}
	for _, tc := range tests {
		write(term, tc.seq)
		if got := m.Pos(); got != tc.want {
			t.Fatalf("%q: pos=%v want %v", tc.seq, got, tc.want)
		}
	}
}

func TestTabs(t *testing.T) {
	term, m := newTerm(2, 20)
	write(term, "\tX\tY\tZ")
	if got := rowText(m, 1); got != "        X       Y  Z" {
		t.Fatalf("row=%q", got)
	}
	write(term, "\r\n\x1b[3g\x1b[5G\x1bH\r\tA")
	if got := rowText(m, 2); got != "    A" {
		t.Fatalf("custom tab row=%q", got)
	}
}

func TestErase(t *testing.T) {
	term, m := newTerm(3, 5)
	write(term, "abcdefghijklmno")
	write(term, "\x1b[1;3H\x1b[K")
	if got := rowText(m, 1); got != "ab" {
		t.Fatalf("EL 0 row=%q", got)
	}
	write(term, "\x1b[2;3H\x1b[1K")
	if got := rowText(m, 2); got != "   ij" {
		t.Fatalf("EL 1 row=%q", got)
	}
	write(term, "\x1b[3;2H\x1b[2X")
	if got := rowText(m, 3); got != "k  no" {
		t.Fatalf("ECH row=%q", got)
	}
	write(term, "\x1b[2;4H\x1b[J")
	if rowText(m, 2) != "" || rowText(m, 3) != "" || rowText(m, 1) != "ab" {
		t.Fatalf("ED 0 rows %q %q %q", rowText(m, 1), rowText(m, 2), rowText(m, 3))
	}
	write(term, "\x1b[2J")
	if rowText(m, 1) != "" {
		t.Fatal("ED 2 left content")
	}
}

func TestEraseKeepsBackground(t *testing.T) {
	term, m := newTerm(1, 4)
	write(term, "\x1b[1;44mab\x1b[1G\x1b[K")
	c := m.At(geom.Pt(3, 1))
	if c.Style.DefaultBG || c.Style.BG != color.Indexed(4) {
		t.Fatalf("erased style=%+v", c.Style)
	}
	if c.Style.Bold {
		t.Fatal("erase copied bold")
	}
}

func TestInsertDeleteChars(t *testing.T) {
	term, m := newTerm(1, 5)
	write(term, "abcde\x1b[1;2H\x1b[P")
	if got := rowText(m, 1); got != "acde" {
		t.Fatalf("DCH row=%q", got)
	}
	write(term, "\x1b[2@")
	if got := rowText(m, 1); got != "a  cd" {
		t.Fatalf("ICH row=%q", got)
	}
	write(term, "\x1b[4hXY\x1b[4l")
	if got := rowText(m, 1); got != "aXY  " && got != "aXY" {
		t.Fatalf("IRM row=%q", got)
	}
}

func TestInsertDeleteLines(t *testing.T) {
	term, m := newTerm(4, 3)
	write(term, "1\r\n2\r\n3\r\n4\x1b[2;2H\x1b[L")
	for row, want := range []string{"1", "", "2", "3"} {
		if got := rowText(m, row+1); got != want {
			t.Fatalf("IL row %d=%q want %q", row+1, got, want)
		}
	}
	if got := m.Pos(); got != geom.Pt(1, 2) {
		t.Fatalf("IL pos=%v", got)
	}
	write(term, "\x1b[2M")
	for row, want := range []string{"1", "3", "", ""} {
		if got := rowText(m, row+1); got != want {
			t.Fatalf("DL row %d=%q want %q", row+1, got, want)
		}
	}
}

func TestScrollUpDown(t *testing.T) {
	term, m := newTerm(3, 3)
	write(term, "1\r\n2\r\n3\x1b[S")
	if rowText(m, 1) != "2" || rowText(m, 3) != "" {
		t.Fatalf("SU rows %q %q", rowText(m, 1), rowText(m, 3))
	}
	write(term, "\x1b[2T")
	if rowText(m, 1) != "" || rowText(m, 3) != "2" {
		t.Fatalf("SD rows %q %q", rowText(m, 1), rowText(m, 3))
	}
}

func TestSGR(t *testing.T) {
	term, m := newTerm(1, 10)
	write(term, "\x1b[1;3;4;7;9;31mA\x1b[0mB\x1b[38;2;1;2;3;48;5;200mC\x1b[39;49;92;101mD\x1b[21mE")

	a := m.At(geom.Pt(1, 1)).Style
	if !a.Bold || !a.Italic || a.Underline != 1 || !a.Inverse || !a.Strikethrough {
		t.Fatalf("A style=%+v", a)
	}
	if a.DefaultFG || a.FG != color.Indexed(1) || !a.DefaultBG {
		t.Fatalf("A colours=%+v", a)
	}
	if b := m.At(geom.Pt(2, 1)).Style; b != matrix.DefaultStyle() {
		t.Fatalf("B style=%+v", b)
	}
	c := m.At(geom.Pt(3, 1)).Style
	if c.FG != color.Direct(color.RGBA{R: 1, G: 2, B: 3, A: 255}) || c.BG != color.Indexed(200) {
		t.Fatalf("C colours=%+v", c)
	}
	if c.DefaultFG || c.DefaultBG {
		t.Fatal("C still uses default colours")
	}
	d := m.At(geom.Pt(4, 1)).Style
	if d.FG != color.Indexed(10) || d.BG != color.Indexed(9) || d.DefaultFG || d.DefaultBG {
		t.Fatalf("D colours=%+v", d)
	}
	if e := m.At(geom.Pt(5, 1)).Style; e.Underline != 2 {
		t.Fatalf("E underline=%d", e.Underline)
	}
	write(term, "\x1b[39;49mF")
	if f := m.At(geom.Pt(6, 1)).Style; !f.DefaultFG || !f.DefaultBG {
		t.Fatalf("F style=%+v", f)
	}
}

func TestReplies(t *testing.T) {
	term, _ := newTerm(5, 10)
	var out bytes.Buffer
	term.SetOutput(&out)
	write(term, "\x1b[2;3H\x1b[6n")
	if out.String() != "\x1b[2;3R" {
		t.Fatalf("DSR reply=%q", out.String())
	}
	out.Reset()
	write(term, "\x1b[c")
	if out.String() != "\x1b[?6c" {
		t.Fatalf("DA reply=%q", out.String())
	}
}

func TestAlternateScreen(t *testing.T) {
	term, m := newTerm(2, 10)
	write(term, "main\x1b[?1049h")
	if !m.AlternativeBufferActive() {
		t.Fatal("alternate buffer not active")
	}
	if rowText(m, 1) != "" {
		t.Fatalf("alternate row=%q", rowText(m, 1))
	}
	write(term, "\x1b[2;1Halt")
	write(term, "\x1b[?1049l")
	if m.AlternativeBufferActive() {
		t.Fatal("alternate buffer still active")
	}
	if rowText(m, 1) != "main" || rowText(m, 2) != "" {
		t.Fatalf("rows %q %q", rowText(m, 1), rowText(m, 2))
	}
	if got := m.Pos(); got != geom.Pt(5, 1) {
		t.Fatalf("cursor not restored: %v", got)
	}
}

func TestCursorVisibility(t *testing.T) {
	term, m := newTerm(2, 2)
	write(term, "\x1b[?25l")
	if m.CursorVisible() {
		t.Fatal("cursor visible after DECRST 25")
	}
	write(term, "\x1b[?25h")
	if !m.CursorVisible() {
		t.Fatal("cursor hidden after DECSET 25")
	}
}

func TestWideRune(t *testing.T) {
	term, m := newTerm(2, 5)
	write(term, "中a")
	if m.At(geom.Pt(1, 1)).Glyph != '中' || m.At(geom.Pt(2, 1)).Glyph != 0 || m.At(geom.Pt(3, 1)).Glyph != 'a' {
		t.Fatalf("row=%q", rowText(m, 1))
	}
	// Does not fit in the last column.
	write(term, "bc中")
	if m.At(geom.Pt(1, 2)).Glyph != '中' {
		t.Fatalf("rows %q %q", rowText(m, 1), rowText(m, 2))
	}
}

func TestCombiningMark(t *testing.T) {
	term, m := newTerm(1, 5)
	write(term, "e\u0301x")
	if got := rowText(m, 1); got != "\u00e9x" {
		t.Fatalf("row=%q", got)
	}
}

func TestSplitUTF8(t *testing.T) {
	term, m := newTerm(1, 5)
	for _, b := range []byte("é€") {
		term.Write([]byte{b})
	}
	if got := rowText(m, 1); got != "é€" {
		t.Fatalf("row=%q", got)
	}
	write(term, "\xffz")
	if got := rowText(m, 1); got != "é€�z" {
		t.Fatalf("invalid byte row=%q", got)
	}
}

func TestBell(t *testing.T) {
	term, _ := newTerm(1, 5)
	rung := 0
	term.SetBell(func() { rung++ })
	write(term, "a\x07b\x1b]0;title\x07c")
	if rung != 1 {
		t.Fatalf("bell rang %d times", rung)
	}
}

func TestStringsAreSkipped(t *testing.T) {
	term, m := newTerm(1, 10)
	write(term, "\x1b]2;some title\x1b\\ok\x1bPq#0;1\x1b\\!")
	if got := rowText(m, 1); got != "ok!" {
		t.Fatalf("row=%q", got)
	}
}

func TestLineDrawing(t *testing.T) {
	term, m := newTerm(1, 5)
	write(term, "\x1b(0lqk\x1b(Bq")
	if got := rowText(m, 1); got != "┌─┐q" {
		t.Fatalf("row=%q", got)
	}
}

func TestFullReset(t *testing.T) {
	term, m := newTerm(2, 5)
	write(term, "\x1b[31mab\x1b[?25l\x1bc")
	if rowText(m, 1) != "" || m.Pos() != geom.Pt(1, 1) || !m.CursorVisible() {
		t.Fatal("RIS left state behind")
	}
	write(term, "x")
	if s := m.At(geom.Pt(1, 1)).Style; s != matrix.DefaultStyle() {
		t.Fatalf("pen not reset: %+v", s)
	}
}

func TestFollowsMatrixResize(t *testing.T) {
	term, m := newTerm(3, 5)
	write(term, "\x1b[2;3r")
	m.Resize(5, 8)
	write(term, "\x1b[5;1Hx\n")
	if got := rowText(m, 4); got != "x" {
		t.Fatalf("scroll region not reset on resize: row 4=%q", got)
	}
}

func TestEmptyMatrix(t *testing.T) {
	term, m := newTerm(0, 0)
	write(term, "abc\r\n\x1b[2J\x1b[S\x1b[L\x1b[P")
	if m.Rows() != 0 {
		t.Fatal("matrix grew")
	}
}
