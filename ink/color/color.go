// Package color is the colour model of the renderer: 8-bit RGBA values,
// palettes, palette-or-direct colours, and bit-packed pixel layouts.
package color

import "fmt"

// RGBA is a colour with 8-bit channels. Whether it is premultiplied depends on
// where it is stored; layers of the compositor hold premultiplied values.
type RGBA struct {
	R, G, B, A uint8
}

var (
	Black       = RGBA{0, 0, 0, 0xFF}
	White       = RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	Transparent = RGBA{}
)

// Hex returns the opaque colour for a 0xRRGGBB value.
func Hex(v uint32) RGBA {
	return RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}
}

// Premultiply scales the colour channels by alpha.
func (c RGBA) Premultiply() RGBA {
	a := uint16(c.A)
	return RGBA{
		R: uint8(uint16(c.R) * a / 255),
		G: uint8(uint16(c.G) * a / 255),
		B: uint8(uint16(c.B) * a / 255),
		A: c.A,
	}
}

// Invert returns the complement of the colour channels. Alpha is kept.
func (c RGBA) Invert() RGBA {
	return RGBA{R: ^c.R, G: ^c.G, B: ^c.B, A: c.A}
}

func (c RGBA) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

type colorKind uint8

const (
	kindIndexed colorKind = iota
	kindDirect
)

// Color is either a palette index or a direct RGBA value. It is resolved
// against a Palette only when drawn. The zero value is palette index 0.
type Color struct {
	kind  colorKind
	index int
	rgba  RGBA
}

func Indexed(i int) Color       { return Color{kind: kindIndexed, index: i} }
func Direct(c RGBA) Color       { return Color{kind: kindDirect, rgba: c} }
func (c Color) IsIndexed() bool { return c.kind == kindIndexed }

// Index is the palette index, or -1 for a direct colour.
func (c Color) Index() int {
	if c.kind != kindIndexed {
		return -1
	}
	return c.index
}

// Resolve returns the RGBA value of c. Indices outside p resolve to black.
func (c Color) Resolve(p *Palette) RGBA {
	if c.kind == kindDirect {
		return c.rgba
	}
	return p.At(c.index)
}

func (c Color) String() string {
	if c.kind == kindDirect {
		return c.rgba.String()
	}
	return fmt.Sprintf("idx(%d)", c.index)
}
