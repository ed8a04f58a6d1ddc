// Package render draws the terminal cell matrix onto the compositor and
// schedules device refreshes.
//
// Changed cells are first drawn in a fast monochrome style and committed
// with an update mode that only touches black and white pixels. Cells shown
// that way are redrawn anti-aliased once they have been left alone long
// enough, or once enough frames have passed since their last refresh; both
// limits tighten for the whole frame as soon as any cell exceeds them, so
// stale cells are refreshed together in few device updates.
package render

import (
	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/epaper"
	"inkterm/ink/font"
	"inkterm/ink/geom"
	"inkterm/ink/matrix"
	"inkterm/ink/merge"
	"inkterm/internal/logging"
)

// Refresh limits. Times are in milliseconds, counts in drawn frames.
const (
	TimeoutLenient = 1000
	TimeoutStrict  = 250
	OpsLenient     = 2000
	OpsStrict      = 1000
)

var (
	fastMode = epaper.Mode(epaper.Identity, epaper.SourceMono)
	fullMode = epaper.Mode(epaper.Identity, epaper.Partial)
)

type Colors struct {
	UseBrightOnBold bool
	DefaultFG       color.RGBA
	DefaultBG       color.RGBA
	Palette         *color.Palette
}

type Config struct {
	// FontSize in 1/64 pt.
	FontSize    int
	Orientation int
	Colors      Colors
}

// Geometry is the cell layout on the current surface.
type Geometry struct {
	Bounds       geom.Rect
	Orientation  int
	Cols, Rows   int
	CellW, CellH int
	PadX, PadY   int
}

// shadow holds what the renderer last drew for each cell, indexed by
// row*cols+col.
type shadow struct {
	cell    []matrix.Cell
	elapsed []int
	ops     []int
	low     []bool
	high    []bool
	overdue []bool
	dirty   []bool
}

func (s *shadow) reset(n int) {
	s.cell = make([]matrix.Cell, n)
	s.elapsed = make([]int, n)
	s.ops = make([]int, n)
	s.low = make([]bool, n)
	s.high = make([]bool, n)
	s.overdue = make([]bool, n)
	s.dirty = make([]bool, n)
	for i := 0; i < n; i++ {
		s.resetCell(i)
	}
}

// resetCell puts cell i back into its initial overdue state.
func (s *shadow) resetCell(i int) {
	s.cell[i] = matrix.Cell{}
	s.elapsed[i] = 0
	s.ops[i] = 0
	s.low[i] = false
	s.high[i] = true
	s.overdue[i] = true
	s.dirty[i] = false
}

// refreshed records that cell i now shows c in the given quality.
func (s *shadow) refreshed(i int, c matrix.Cell, low bool) {
	s.cell[i] = c
	s.elapsed[i] = 0
	s.ops[i] = 0
	s.low[i] = low
	s.high[i] = !low
	s.overdue[i] = false
	s.dirty[i] = false
}

// Renderer is not safe for concurrent use; Draw is meant to be called from
// one loop.
type Renderer struct {
	colors Colors
	src    font.Source
	disp   *display.Display
	b      *display.Batch // open during Draw
	m      *matrix.Matrix

	fontSize    int
	orientation int
	metrics     font.Metrics
	geo         Geometry
	stale       bool
	clear       bool

	sh      shadow
	bounds  geom.Rect // inclusive, 0-based cols and rows
	merger  merge.Merger
	updates []matrix.CellUpdate
}

func New(cfg Config, src font.Source, disp *display.Display, m *matrix.Matrix) *Renderer {
	if cfg.Colors.Palette == nil {
		cfg.Colors.Palette = color.DefaultPalette()
	}
	r := &Renderer{
		colors:      cfg.Colors,
		src:         src,
		disp:        disp,
		m:           m,
		fontSize:    cfg.FontSize,
		orientation: quarter(cfg.Orientation),
		bounds:      geom.Invalid(),
	}
	b := disp.Lock()
	if surf := b.Surface(); !surf.Empty() {
		r.updateGeometry(surf)
	}
	b.Unlock()
	return r
}

func quarter(o int) int { return ((o % 4) + 4) % 4 }

func (r *Renderer) FontSize() int      { return r.fontSize }
func (r *Renderer) Orientation() int   { return r.orientation }
func (r *Renderer) Geometry() Geometry { return r.geo }

// SetFontSize changes the size in 1/64 pt. The layout is recomputed on the
// next Draw.
func (r *Renderer) SetFontSize(size int) {
	if size > 0 && size != r.fontSize {
		r.fontSize = size
		r.stale = true
	}
}

// SetOrientation rotates the layout by quarter turns. The whole surface is
// cleared and repainted on the next Draw.
func (r *Renderer) SetOrientation(o int) {
	o = quarter(o)
	if o != r.orientation {
		r.orientation = o
		r.stale = true
		r.clear = true
	}
}

func (r *Renderer) updateGeometry(b geom.Rect) {
	m := r.src.Metrics(r.fontSize)
	g := Geometry{Bounds: b, Orientation: r.orientation, CellW: m.CellWidth, CellH: m.CellHeight}
	w, h := max(b.Width(), 0), max(b.Height(), 0)
	if r.orientation&1 == 1 {
		w, h = h, w
	}
	if g.CellW > 0 && g.CellH > 0 {
		g.Cols, g.Rows = w/g.CellW, h/g.CellH
		g.PadX = (w - g.CellW*g.Cols) / 2
		g.PadY = (h - g.CellH*g.Rows) / 2
	}
	r.metrics = m
	r.geo = g
	r.stale = false
	r.sh.reset(g.Rows * g.Cols)
	r.bounds = geom.Invalid()
	if g.Rows > 0 && g.Cols > 0 {
		r.grow(0, 0)
		r.grow(g.Cols-1, g.Rows-1)
	}
	r.m.Resize(g.Rows, g.Cols)
	logging.Logger().Debug("render: geometry", "cols", g.Cols, "rows", g.Rows,
		"cell_w", g.CellW, "cell_h", g.CellH, "orientation", g.Orientation)
}

// cellRect returns the surface rect of the cell at 0-based (row, col).
func (r *Renderer) cellRect(row, col int) geom.Rect {
	g := &r.geo
	x0, x1 := col*g.CellW, (col+1)*g.CellW
	y0, y1 := row*g.CellH, (row+1)*g.CellH
	b := g.Bounds
	switch g.Orientation {
	case 1:
		return geom.R(b.X0+g.PadY+y0, b.Y1-g.PadX-x1, b.X0+g.PadY+y1, b.Y1-g.PadX-x0)
	case 2:
		return geom.R(b.X1-g.PadX-x1, b.Y1-g.PadY-y1, b.X1-g.PadX-x0, b.Y1-g.PadY-y0)
	case 3:
		return geom.R(b.X1-g.PadY-y1, b.Y0+g.PadX+x0, b.X1-g.PadY-y0, b.Y0+g.PadX+x1)
	default:
		return geom.R(b.X0+g.PadX+x0, b.Y0+g.PadY+y0, b.X0+g.PadX+x1, b.Y0+g.PadY+y1)
	}
}

// cellColors resolves the effective foreground and background of c.
func (r *Renderer) cellColors(c matrix.Cell) (fg, bg color.RGBA) {
	cc := &r.colors
	cfg := c.Style.FG
	if cc.UseBrightOnBold && c.Style.Bold && cfg.IsIndexed() && cfg.Index() < 8 {
		cfg = color.Indexed(cfg.Index() + 8)
	}
	if c.Style.DefaultFG {
		fg = cc.DefaultFG
	} else {
		fg = cfg.Resolve(cc.Palette)
	}
	if c.Style.DefaultBG {
		bg = cc.DefaultBG
	} else {
		bg = c.Style.BG.Resolve(cc.Palette)
	}
	if c.Cursor != c.Style.Inverse {
		fg, bg = bg, fg
	}
	return fg, bg
}

// drawCell draws or erases one cell and returns the touched surface rect.
func (r *Renderer) drawCell(row, col int, c matrix.Cell, erase, low bool) geom.Rect {
	fg, bg := r.cellColors(c)
	mode := display.Write
	if erase {
		mode = display.Erase
	}

	rect := r.cellRect(row, col)
	var g *font.Bitmap
	if low {
		gfg, gbg := epaper.ToGreyscale(fg), epaper.ToGreyscale(bg)
		if !erase {
			r.b.FillDither(display.Background, gbg, rect)
		}
		if fg != bg {
			g = r.src.Render(c.Glyph, r.fontSize, true, r.orientation)
		}
		if gfg >= gbg {
			fg = color.White
		} else {
			fg = color.Black
		}
	} else {
		if !erase {
			r.b.Fill(display.Background, bg, rect)
		}
		g = r.src.Render(c.Glyph, r.fontSize, false, r.orientation)
	}
	if g == nil {
		return rect
	}

	gr := geom.Sized(rect.X0+g.X, rect.Y0+g.Y, g.W, g.H)
	if low && bg != color.White && bg != color.Black {
		// One pixel halo in the complement keeps the glyph readable on a
		// dithered background.
		halo := gr.Translate(geom.Pt(1, 1))
		r.b.Blit(display.Presentation, fg.Invert(), g.Buf, g.Stride, halo, mode)
		rect = rect.Grow(halo)
	}
	r.b.Blit(display.Presentation, fg, g.Buf, g.Stride, gr, mode)
	return rect.Grow(gr)
}

func (r *Renderer) grow(col, row int) { r.bounds = r.bounds.GrowPoint(geom.Pt(col, row)) }

// Draw runs one frame. redraw forces every cell to be repainted in full
// quality; dt is the time in milliseconds since the previous frame. A frame
// without changed or overdue cells commits nothing, and so does a frame on
// an empty surface, which leaves the layout and the grid untouched.
func (r *Renderer) Draw(redraw bool, dt int) {
	r.b = r.disp.Lock()
	defer func() {
		r.b.Unlock()
		r.b = nil
	}()

	surf := r.b.Surface()
	if surf.Empty() {
		return
	}
	if r.stale || surf != r.geo.Bounds || r.src.Metrics(r.fontSize) != r.metrics {
		r.updateGeometry(surf)
	}
	if r.clear {
		r.b.Fill(display.Background, color.Black, surf)
		r.b.Fill(display.Presentation, color.Transparent, surf)
		r.b.Commit(surf, epaper.Mode(epaper.Identity, epaper.Full))
		r.clear = false
	}

	cols, rows := r.geo.Cols, r.geo.Rows
	n := rows * cols
	if redraw {
		for i := 0; i < n; i++ {
			r.sh.resetCell(i)
		}
		if n > 0 {
			r.grow(0, 0)
			r.grow(cols-1, rows-1)
		}
	}
	for i := 0; i < n; i++ {
		r.sh.elapsed[i] += dt
	}

	r.updates = r.m.Commit(r.updates[:0])
	for _, u := range r.updates {
		col, row := u.Pos.X-1, u.Pos.Y-1
		if col < cols && row < rows {
			r.sh.dirty[row*cols+col] = true
			r.grow(col, row)
		}
	}

	// Thresholds see the whole frame before any cell is marked.
	opsLimit, timeout := OpsLenient, TimeoutLenient
	for i := 0; i < n; i++ {
		if r.sh.ops[i] > OpsLenient {
			opsLimit = OpsStrict
		}
		if r.sh.elapsed[i] > TimeoutLenient {
			timeout = TimeoutStrict
		}
	}
	for i := 0; i < n; i++ {
		if r.sh.ops[i] >= opsLimit || (r.sh.low[i] && r.sh.elapsed[i] >= timeout) {
			r.sh.overdue[i] = true
			r.grow(i%cols, i/cols)
		}
	}

	if !r.bounds.Valid() {
		return
	}
	for i := 0; i < n; i++ {
		r.sh.ops[i]++
	}

	cells := r.m.Cells()
	b := r.bounds
	y0, y1 := max(b.Y0, 0), min(b.Y1, rows-1)
	x0, x1 := max(b.X0, 0), min(b.X1, cols-1)

	fast := 0
	r.merger.Reset()
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			i := y*cols + x
			if !r.sh.dirty[i] {
				continue
			}
			cur := cells[y][x]
			r1 := r.drawCell(y, x, r.sh.cell[i], true, r.sh.low[i])
			r2 := r.drawCell(y, x, cur, false, true)
			r.merger.Insert(r1.Grow(r2))
			r.sh.refreshed(i, cur, true)
			fast++
		}
	}
	r.merger.Merge()
	for _, rect := range r.merger.Rects() {
		r.b.Commit(rect, fastMode)
	}

	full := 0
	r.merger.Reset()
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			i := y*cols + x
			if !r.sh.overdue[i] {
				continue
			}
			cur := cells[y][x]
			r1 := r.drawCell(y, x, r.sh.cell[i], true, r.sh.low[i])
			r2 := r.drawCell(y, x, cur, false, false)
			r.merger.Insert(r1.Grow(r2))
			r.sh.refreshed(i, cur, false)
			full++
		}
	}
	r.merger.Merge()
	for _, rect := range r.merger.Rects() {
		r.b.Commit(rect, fullMode)
	}

	r.bounds = geom.Invalid()
	logging.Logger().Debug("render: frame", "fast", fast, "full", full, "dt", dt)
}
