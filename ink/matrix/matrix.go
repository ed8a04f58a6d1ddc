// Package matrix holds the terminal cell grid and turns mutations into a
// compact list of visually relevant cell updates.
//
// Positions are 1-based: column X in [1, cols], row Y in [1, rows].
package matrix

import (
	"inkterm/ink/color"
	"inkterm/ink/geom"
)

// Style is the rendition of a cell. DefaultFG and DefaultBG mark colours
// that follow the configured defaults instead of FG and BG.
type Style struct {
	FG, BG        color.Color
	DefaultFG     bool
	DefaultBG     bool
	Concealed     bool
	Bold          bool
	Italic        bool
	Strikethrough bool
	Inverse       bool
	Underline     uint8
}

// DefaultStyle uses the configured default colours.
func DefaultStyle() Style {
	return Style{
		FG:        color.Indexed(7),
		BG:        color.Indexed(0),
		DefaultFG: true,
		DefaultBG: true,
	}
}

type Cell struct {
	Glyph  rune
	Style  Style
	Cursor bool
	Dirty  bool
}

func blank() Cell { return Cell{Style: DefaultStyle(), Dirty: true} }

// Invisible reports whether the cell shows no foreground at all.
func (c Cell) Invisible() bool {
	if c.Style.Concealed {
		return true
	}
	if c.Style.Strikethrough || c.Style.Underline != 0 {
		return false
	}
	return c.Glyph == 0 || c.Glyph == ' '
}

// NeedsUpdate reports whether showing c instead of old changes what is
// visible. Cells that are not dirty never need an update.
func (c Cell) NeedsUpdate(old Cell) bool {
	if !c.Dirty {
		return false
	}
	inverse := c.Cursor != c.Style.Inverse
	if inverse != (old.Cursor != old.Style.Inverse) {
		return true
	}

	s, o := c.Style, old.Style
	if !(c.Invisible() && old.Invisible()) {
		if c.Glyph != old.Glyph {
			return true
		}
		if !inverse {
			if fgChanged(s, o) {
				return true
			}
		} else if bgChanged(s, o) {
			return true
		}
		if s.Bold != o.Bold || s.Italic != o.Italic ||
			s.Strikethrough != o.Strikethrough || s.Underline != o.Underline {
			return true
		}
	}

	if !inverse {
		return bgChanged(s, o)
	}
	return fgChanged(s, o)
}

func fgChanged(s, o Style) bool {
	if s.DefaultFG != o.DefaultFG {
		return true
	}
	return !s.DefaultFG && s.FG != o.FG
}

func bgChanged(s, o Style) bool {
	if s.DefaultBG != o.DefaultBG {
		return true
	}
	return !s.DefaultBG && s.BG != o.BG
}

// CellUpdate describes one cell that changed since the last commit.
type CellUpdate struct {
	Pos     geom.Point
	Current Cell
	Old     Cell
}

// Matrix is the terminal grid. It is not safe for concurrent use.
type Matrix struct {
	size geom.Point // X cols, Y rows

	// Backing storage only ever grows; rows and columns beyond size are kept
	// so that shrinking and growing again preserves content.
	cells [][]Cell
	alt   [][]Cell
	old   [][]Cell

	pos, posLast, posOld geom.Point

	cursorVisible    bool
	cursorVisibleOld bool
	altActive        bool

	// Inclusive update region, geom.Invalid when clean.
	bounds geom.Rect
}

func New(rows, cols int) *Matrix {
	m := &Matrix{bounds: geom.Invalid()}
	m.Resize(rows, cols)
	m.Reset()
	return m
}

// Reset homes the cursor, shows it, leaves the alternative buffer and
// clears the grid.
func (m *Matrix) Reset() {
	m.SetAlternativeBufferActive(false)
	m.pos = geom.Pt(1, 1)
	m.posLast = m.pos
	m.cursorVisible = true
	m.Fill(0, DefaultStyle(), geom.Pt(1, 1), m.size)
}

// Size returns the grid size as (cols, rows).
func (m *Matrix) Size() geom.Point { return m.size }

func (m *Matrix) Rows() int { return m.size.Y }
func (m *Matrix) Cols() int { return m.size.X }

// Resize changes the logical grid size. Content in the overlapping area is
// preserved and storage is never released.
func (m *Matrix) Resize(rows, cols int) {
	rows, cols = max(rows, 0), max(cols, 0)
	m.size = geom.Pt(cols, rows)
	m.cells = grow(m.cells, rows, cols, true)
	m.alt = grow(m.alt, rows, cols, true)
	m.old = grow(m.old, rows, cols, false)

	if m.bounds.Valid() {
		m.bounds.X1 = min(m.bounds.X1, cols)
		m.bounds.Y1 = min(m.bounds.Y1, rows)
	}
	m.pos = m.clip(m.pos)
	m.posLast = m.clip(m.posLast)
}

func grow(buf [][]Cell, rows, cols int, dirty bool) [][]Cell {
	for len(buf) < rows {
		buf = append(buf, nil)
	}
	for y := 0; y < rows; y++ {
		for len(buf[y]) < cols {
			c := blank()
			c.Dirty = dirty
			buf[y] = append(buf[y], c)
		}
	}
	return buf
}

func (m *Matrix) valid(p geom.Point) bool {
	return p.X >= 1 && p.Y >= 1 && p.X <= m.size.X && p.Y <= m.size.Y
}

func (m *Matrix) clip(p geom.Point) geom.Point {
	return geom.R(1, 1, m.size.X, m.size.Y).ClipPoint(p, true)
}

func (m *Matrix) extend(p geom.Point) { m.bounds = m.bounds.GrowPoint(p) }

func (m *Matrix) CursorVisible() bool           { return m.cursorVisible }
func (m *Matrix) SetCursorVisible(v bool)       { m.cursorVisible = v }
func (m *Matrix) Pos() geom.Point               { return m.pos }
func (m *Matrix) AlternativeBufferActive() bool { return m.altActive }

// At returns the cell at p, or a blank cell outside the grid.
func (m *Matrix) At(p geom.Point) Cell {
	if !m.valid(p) {
		return blank()
	}
	return m.cells[p.Y-1][p.X-1]
}

// Cells returns the rows of the active buffer, limited to the grid size.
func (m *Matrix) Cells() [][]Cell {
	out := make([][]Cell, m.size.Y)
	for y := range out {
		out[y] = m.cells[y][:m.size.X]
	}
	return out
}

// MoveAbs places the cursor at p, clipped to the grid.
func (m *Matrix) MoveAbs(p geom.Point) {
	m.pos = m.clip(p)
	m.posLast = m.pos
}

// MoveRel moves the cursor by delta. With wrap set, moving past the right
// edge continues on the next row and moving past the bottom scrolls.
func (m *Matrix) MoveRel(delta geom.Point, wrap bool) {
	m.moveRel(delta, wrap)
}

// moveRel returns the number of rows scrolled.
func (m *Matrix) moveRel(delta geom.Point, wrap bool) int {
	p := m.pos.Add(delta)
	n := 0
	if wrap && m.size.X > 0 {
		for p.X > m.size.X {
			p.X -= m.size.X
			p.Y++
		}
		if p.Y > m.size.Y {
			n = p.Y - m.size.Y
			m.Scroll(0, DefaultStyle(), geom.R(1, 1, m.size.X, m.size.Y), n, 0)
			p.Y -= n
		}
	}
	m.MoveAbs(p)
	return n
}

// Set stores glyph and style at p. The cell only becomes dirty when its
// content actually changes.
func (m *Matrix) Set(glyph rune, style Style, p geom.Point) {
	if !m.valid(p) {
		return
	}
	c := &m.cells[p.Y-1][p.X-1]
	if c.Glyph == glyph && c.Style == style {
		return
	}
	c.Glyph = glyph
	c.Style = style
	c.Dirty = true
	m.extend(p)
}

// Write sets the cell under the cursor and advances with wrapping. With
// replacesLast the previously written cell is overwritten instead, which is
// how combined characters replace their base.
func (m *Matrix) Write(glyph rune, style Style, replacesLast bool) {
	if replacesLast {
		m.pos = m.posLast
	}
	m.Set(glyph, style, m.pos)
	last := m.pos
	n := m.moveRel(geom.Pt(1, 0), true)
	m.posLast = geom.Pt(last.X, last.Y-n)
}

// Fill sets every cell from `from` to `to` inclusive in row-major order:
// the tail of the first row, all rows in between and the head of the last.
func (m *Matrix) Fill(glyph rune, style Style, from, to geom.Point) {
	if m.size.X == 0 || m.size.Y == 0 {
		return
	}
	from, to = m.clip(from), m.clip(to)
	for y := from.Y; y <= to.Y; y++ {
		x0, x1 := 1, m.size.X
		if y == from.Y {
			x0 = from.X
		}
		if y == to.Y {
			x1 = to.X
		}
		for x := x0; x <= x1; x++ {
			m.Set(glyph, style, geom.Pt(x, y))
		}
	}
}

// Scroll shifts the content of the inclusive region so that the cell at
// (row+downward, col+rightward) moves to (row, col). Cells whose source
// lies outside the region become {glyph, style}.
func (m *Matrix) Scroll(glyph rune, style Style, region geom.Rect, downward, rightward int) {
	if downward == 0 && rightward == 0 {
		return
	}
	grid := geom.R(1, 1, m.size.X, m.size.Y)
	r := geom.Rect{
		X0: grid.ClipX(region.X0, true), Y0: grid.ClipY(region.Y0, true),
		X1: grid.ClipX(region.X1, true), Y1: grid.ClipY(region.Y1, true),
	}
	if r.X1 < r.X0 || r.Y1 < r.Y0 || m.size.X == 0 || m.size.Y == 0 {
		return
	}
	h, w := r.Y1-r.Y0+1, r.X1-r.X0+1
	if abs(downward) >= h || abs(rightward) >= w {
		for y := r.Y0; y <= r.Y1; y++ {
			for x := r.X0; x <= r.X1; x++ {
				m.Set(glyph, style, geom.Pt(x, y))
			}
		}
		return
	}

	y0, y1, dy := r.Y0, r.Y1, 1
	if downward < 0 {
		y0, y1, dy = r.Y1, r.Y0, -1
	}
	x0, x1, dx := r.X0, r.X1, 1
	if rightward < 0 {
		x0, x1, dx = r.X1, r.X0, -1
	}
	for y := y0; y != y1+dy; y += dy {
		for x := x0; x != x1+dx; x += dx {
			sy, sx := y+downward, x+rightward
			if sy < r.Y0 || sy > r.Y1 || sx < r.X0 || sx > r.X1 {
				m.Set(glyph, style, geom.Pt(x, y))
				continue
			}
			src := m.cells[sy-1][sx-1]
			m.Set(src.Glyph, src.Style, geom.Pt(x, y))
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SetAlternativeBufferActive swaps between the primary and the alternative
// grid. Every cell of the newly active grid is marked dirty.
func (m *Matrix) SetAlternativeBufferActive(active bool) {
	if active == m.altActive {
		return
	}
	m.altActive = active
	m.cells, m.alt = m.alt, m.cells
	for y := 0; y < m.size.Y; y++ {
		row := m.cells[y]
		for x := 0; x < m.size.X; x++ {
			row[x].Dirty = true
		}
	}
	if m.size.X > 0 && m.size.Y > 0 {
		m.bounds = geom.R(1, 1, m.size.X, m.size.Y)
	}
}

// Commit appends the cells that visibly changed since the previous commit
// to updates and returns the extended slice.
func (m *Matrix) Commit(updates []CellUpdate) []CellUpdate {
	if m.cursorVisibleOld && m.valid(m.posOld) {
		c := &m.cells[m.posOld.Y-1][m.posOld.X-1]
		c.Cursor = false
		c.Dirty = true
		m.extend(m.posOld)
	}
	if m.cursorVisible && m.valid(m.pos) {
		c := &m.cells[m.pos.Y-1][m.pos.X-1]
		c.Cursor = true
		c.Dirty = true
		m.extend(m.pos)
	}

	b := m.bounds
	for y := max(b.Y0, 1); y <= min(b.Y1, m.size.Y); y++ {
		for x := max(b.X0, 1); x <= min(b.X1, m.size.X); x++ {
			cell := &m.cells[y-1][x-1]
			old := &m.old[y-1][x-1]
			if cell.NeedsUpdate(*old) {
				updates = append(updates, CellUpdate{Pos: geom.Pt(x, y), Current: *cell, Old: *old})
			}
			cell.Dirty = false
			*old = *cell
		}
	}

	m.bounds = geom.Invalid()
	m.posOld = m.pos
	m.cursorVisibleOld = m.cursorVisible
	return updates
}
