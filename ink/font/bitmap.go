package font

import (
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
)

// BitmapFont adapts a fixed size tinyfont face. The size argument of Render
// and Metrics is ignored and glyphs are always monochrome.
type BitmapFont struct {
	face tinyfont.Fonter
	m    Metrics
	// pen position of the glyph baseline inside the cell
	penX int
	cap  *capture
}

// DefaultBitmapFont uses FreeMono 9pt.
func DefaultBitmapFont() *BitmapFont { return NewBitmapFont(&freemono.Regular9pt7b) }

// NewBitmapFont sizes the cell from the printable ASCII range of f.
func NewBitmapFont(f tinyfont.Fonter) *BitmapFont {
	x0, y0, x1, y1 := 0, 0, 0, 0
	for r := rune(0x20); r < 0x7f; r++ {
		info := f.GetGlyph(r).Info()
		if info.Rune != r {
			continue
		}
		x0 = min(x0, int(info.XOffset))
		x1 = max(x1, int(info.XAdvance), int(info.XOffset)+int(info.Width))
		y0 = min(y0, int(info.YOffset))
		y1 = max(y1, int(info.YOffset)+int(info.Height))
	}
	b := &BitmapFont{
		face: f,
		m:    Metrics{CellWidth: x1 - x0, CellHeight: y1 - y0, OriginY: -y0},
		penX: -x0,
	}
	b.cap = newCapture(b.m.CellWidth, b.m.CellHeight)
	return b
}

func (b *BitmapFont) Metrics(int) Metrics { return b.m }

func (b *BitmapFont) Render(glyph rune, _ int, _ bool, orientation int) *Bitmap {
	if b.face.GetGlyph(glyph).Info().Rune != glyph {
		return nil
	}
	b.cap.clear()
	tinyfont.DrawChar(b.cap, b.face, int16(b.penX), int16(b.m.OriginY), glyph, color.RGBA{A: 0xFF})
	return rotate(b.cap.buf, b.cap.w, b.cap.w, b.cap.h, 0, 0, quarter(orientation))
}

// capture is a drivers.Displayer that records set pixels as full coverage.
type capture struct {
	w, h int
	buf  []byte
}

var _ drivers.Displayer = (*capture)(nil)

func newCapture(w, h int) *capture {
	return &capture{w: w, h: h, buf: make([]byte, w*h)}
}

func (c *capture) clear() { clear(c.buf) }

func (c *capture) Size() (x, y int16) { return int16(c.w), int16(c.h) }

func (c *capture) SetPixel(x, y int16, _ color.RGBA) {
	if x < 0 || y < 0 || int(x) >= c.w || int(y) >= c.h {
		return
	}
	c.buf[int(y)*c.w+int(x)] = 0xFF
}

func (c *capture) Display() error { return nil }
