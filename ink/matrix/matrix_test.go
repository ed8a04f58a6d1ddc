package matrix

import (
	"testing"

	"inkterm/ink/color"
	"inkterm/ink/geom"
)

func red() Style {
	s := DefaultStyle()
	s.DefaultFG = false
	s.FG = color.Indexed(1)
	return s
}

// settle commits pending changes and discards the updates.
func settle(m *Matrix) { m.Commit(nil) }

func TestCommitIsIdempotent(t *testing.T) {
	m := New(4, 10)
	settle(m)
	m.Set('a', DefaultStyle(), geom.Pt(2, 2))
	if got := m.Commit(nil); len(got) != 1 {
		t.Fatalf("first commit updates=%d want 1", len(got))
	}
	if got := m.Commit(nil); len(got) != 0 {
		t.Fatalf("second commit updates=%d want 0", len(got))
	}
}

func TestRepeatedWritesCompress(t *testing.T) {
	m := New(4, 10)
	m.SetCursorVisible(false)
	settle(m)
	for _, r := range "abcde" {
		m.Set(r, DefaultStyle(), geom.Pt(3, 1))
	}
	got := m.Commit(nil)
	if len(got) != 1 || got[0].Current.Glyph != 'e' || got[0].Pos != geom.Pt(3, 1) {
		t.Fatalf("updates=%+v", got)
	}
}

func TestSetSameContentStaysClean(t *testing.T) {
	m := New(2, 2)
	m.SetCursorVisible(false)
	m.Set('x', DefaultStyle(), geom.Pt(1, 1))
	settle(m)
	m.Set('x', DefaultStyle(), geom.Pt(1, 1))
	if m.At(geom.Pt(1, 1)).Dirty {
		t.Fatal("rewriting identical content marked the cell dirty")
	}
}

func TestInvisibleChangesAreSkipped(t *testing.T) {
	m := New(2, 4)
	m.SetCursorVisible(false)
	settle(m)
	// A space with a different fg colour looks exactly like an empty cell.
	m.Set(' ', red(), geom.Pt(1, 1))
	if got := m.Commit(nil); len(got) != 0 {
		t.Fatalf("updates=%d want 0", len(got))
	}
	// Underlined spaces are visible.
	s := red()
	s.Underline = 1
	m.Set(' ', s, geom.Pt(1, 1))
	if got := m.Commit(nil); len(got) != 1 {
		t.Fatalf("updates=%d want 1", len(got))
	}
}

func TestBackgroundAlwaysCompared(t *testing.T) {
	m := New(1, 1)
	m.SetCursorVisible(false)
	settle(m)
	s := DefaultStyle()
	s.DefaultBG = false
	s.BG = color.Indexed(4)
	m.Set(0, s, geom.Pt(1, 1))
	if got := m.Commit(nil); len(got) != 1 {
		t.Fatalf("updates=%d want 1", len(got))
	}
}

func TestCursorMovesEmitUpdates(t *testing.T) {
	m := New(3, 3)
	settle(m)
	m.MoveAbs(geom.Pt(2, 2))
	got := m.Commit(nil)
	if len(got) != 2 {
		t.Fatalf("updates=%d want 2 (old and new cursor cell)", len(got))
	}
	if !m.At(geom.Pt(2, 2)).Cursor || m.At(geom.Pt(1, 1)).Cursor {
		t.Fatal("cursor flag not moved")
	}
}

func TestMoveClips(t *testing.T) {
	m := New(5, 8)
	m.MoveAbs(geom.Pt(100, -3))
	if m.Pos() != geom.Pt(8, 1) {
		t.Fatalf("pos=%v", m.Pos())
	}
	m.MoveRel(geom.Pt(-20, 20), false)
	if m.Pos() != geom.Pt(1, 5) {
		t.Fatalf("pos=%v", m.Pos())
	}
}

func TestWriteWrapsAndScrolls(t *testing.T) {
	m := New(2, 3)
	for _, r := range "abcdefg" {
		m.Write(r, DefaultStyle(), false)
	}
	// "abc" scrolled off, "def" on row 1, "g" on row 2.
	if m.At(geom.Pt(1, 1)).Glyph != 'd' || m.At(geom.Pt(3, 1)).Glyph != 'f' {
		t.Fatalf("row 1 = %q%q%q", m.At(geom.Pt(1, 1)).Glyph, m.At(geom.Pt(2, 1)).Glyph, m.At(geom.Pt(3, 1)).Glyph)
	}
	if m.At(geom.Pt(1, 2)).Glyph != 'g' || m.At(geom.Pt(2, 2)).Glyph != 0 {
		t.Fatal("row 2 wrong")
	}
	if m.Pos() != geom.Pt(2, 2) {
		t.Fatalf("pos=%v", m.Pos())
	}
	m.Write('G', DefaultStyle(), true)
	if m.At(geom.Pt(1, 2)).Glyph != 'G' {
		t.Fatal("replacesLast did not overwrite the previous cell")
	}
}

func TestFillRowMajor(t *testing.T) {
	m := New(3, 4)
	m.Fill('#', DefaultStyle(), geom.Pt(3, 1), geom.Pt(2, 3))
	want := []string{
		"..##",
		"####",
		"##..",
	}
	for y, row := range want {
		for x, ch := range row {
			g := m.At(geom.Pt(x+1, y+1)).Glyph
			if (ch == '#') != (g == '#') {
				t.Fatalf("cell (%d,%d)=%q", x+1, y+1, g)
			}
		}
	}
}

func fillRows(m *Matrix) {
	for y := 1; y <= m.Rows(); y++ {
		for x := 1; x <= m.Cols(); x++ {
			m.Set(rune('0'+y), DefaultStyle(), geom.Pt(x, y))
		}
	}
}

func TestScrollUpInRegion(t *testing.T) {
	m := New(5, 2)
	fillRows(m)
	m.Scroll(0, DefaultStyle(), geom.R(1, 2, 2, 4), 1, 0)
	want := []rune{'1', '3', '4', 0, '5'}
	for y, g := range want {
		if got := m.At(geom.Pt(1, y+1)).Glyph; got != g {
			t.Fatalf("row %d=%q want %q", y+1, got, g)
		}
	}
}

func TestScrollDown(t *testing.T) {
	m := New(4, 1)
	fillRows(m)
	m.Scroll('~', DefaultStyle(), geom.R(1, 1, 1, 4), -2, 0)
	want := []rune{'~', '~', '1', '2'}
	for y, g := range want {
		if got := m.At(geom.Pt(1, y+1)).Glyph; got != g {
			t.Fatalf("row %d=%q want %q", y+1, got, g)
		}
	}
}

func TestScrollRight(t *testing.T) {
	m := New(1, 5)
	for x := 1; x <= 5; x++ {
		m.Set(rune('a'+x-1), DefaultStyle(), geom.Pt(x, 1))
	}
	// Insert two blanks at column 2.
	m.Scroll(0, DefaultStyle(), geom.R(2, 1, 5, 1), 0, -2)
	want := []rune{'a', 0, 0, 'b', 'c'}
	for x, g := range want {
		if got := m.At(geom.Pt(x+1, 1)).Glyph; got != g {
			t.Fatalf("col %d=%q want %q", x+1, got, g)
		}
	}
}

func TestScrollWholeRegionClears(t *testing.T) {
	m := New(3, 2)
	fillRows(m)
	m.Scroll(0, DefaultStyle(), geom.R(1, 1, 2, 3), 3, 0)
	for y := 1; y <= 3; y++ {
		if m.At(geom.Pt(1, y)).Glyph != 0 {
			t.Fatalf("row %d not cleared", y)
		}
	}
}

func TestAlternativeBuffer(t *testing.T) {
	m := New(2, 2)
	m.Set('p', DefaultStyle(), geom.Pt(1, 1))
	settle(m)
	m.SetAlternativeBufferActive(true)
	if !m.AlternativeBufferActive() {
		t.Fatal("alternative buffer not active")
	}
	if m.At(geom.Pt(1, 1)).Glyph != 0 {
		t.Fatal("alternative buffer shows primary content")
	}
	for y := 1; y <= 2; y++ {
		for x := 1; x <= 2; x++ {
			if !m.At(geom.Pt(x, y)).Dirty {
				t.Fatalf("cell (%d,%d) not dirty after swap", x, y)
			}
		}
	}
	// The primary 'p' disappears from screen.
	if got := m.Commit(nil); len(got) == 0 {
		t.Fatal("swap produced no updates")
	}
	m.SetAlternativeBufferActive(false)
	if m.At(geom.Pt(1, 1)).Glyph != 'p' {
		t.Fatal("primary content lost")
	}
}

func TestResizePreservesContent(t *testing.T) {
	m := New(3, 3)
	m.Set('z', DefaultStyle(), geom.Pt(3, 3))
	m.Resize(2, 2)
	if m.Size() != geom.Pt(2, 2) {
		t.Fatalf("size=%v", m.Size())
	}
	m.Resize(4, 4)
	if m.At(geom.Pt(3, 3)).Glyph != 'z' {
		t.Fatal("content outside the shrunk area was lost")
	}
	if len(m.Cells()) != 4 || len(m.Cells()[0]) != 4 {
		t.Fatal("Cells() does not match size")
	}
}

func TestNeedsUpdateInverse(t *testing.T) {
	old := Cell{Glyph: 'a', Style: DefaultStyle()}
	cur := old
	cur.Dirty = true
	if cur.NeedsUpdate(old) {
		t.Fatal("identical cells need no update")
	}
	cur.Cursor = true
	if !cur.NeedsUpdate(old) {
		t.Fatal("cursor toggle must update")
	}
	cur.Style.Inverse = true
	if cur.NeedsUpdate(Cell{Glyph: 'a', Style: DefaultStyle()}) {
		t.Fatal("cursor xor inverse cancels out")
	}
}
