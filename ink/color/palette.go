package color

// MaxPaletteSize is the number of entries an indexed terminal colour can address.
const MaxPaletteSize = 256

// Palette holds up to 256 colours.
type Palette struct {
	entries [MaxPaletteSize]RGBA
	n       int
}

// NewPalette returns a palette of n black entries. n is clamped to [0,256].
func NewPalette(n int) *Palette {
	n = max(0, min(n, MaxPaletteSize))
	p := &Palette{n: n}
	for i := 0; i < n; i++ {
		p.entries[i] = Black
	}
	return p
}

// PaletteFrom copies up to 256 colours into a new palette.
func PaletteFrom(cs []RGBA) *Palette {
	p := NewPalette(len(cs))
	copy(p.entries[:p.n], cs)
	return p
}

func (p *Palette) Len() int { return p.n }

// At returns entry i, or black if i is out of range.
func (p *Palette) At(i int) RGBA {
	if p == nil || i < 0 || i >= p.n {
		return Black
	}
	return p.entries[i]
}

// Set replaces entry i. Out-of-range indices are ignored.
func (p *Palette) Set(i int, c RGBA) {
	if i < 0 || i >= p.n {
		return
	}
	p.entries[i] = c
}

func (p *Palette) Clone() *Palette {
	q := *p
	return &q
}

// Ubuntu terminal colours.
var default16 = [16]RGBA{
	{1, 1, 1, 255}, {222, 56, 43, 255}, {57, 181, 74, 255}, {255, 199, 6, 255},
	{0, 111, 184, 255}, {118, 38, 113, 255}, {44, 181, 233, 255}, {204, 204, 204, 255},
	{128, 128, 128, 255}, {255, 0, 0, 255}, {0, 255, 0, 255}, {255, 255, 0, 255},
	{0, 0, 255, 255}, {255, 0, 255, 255}, {0, 255, 255, 255}, {255, 255, 255, 255},
}

var solarized16 = [16]RGBA{
	Hex(0x073642), Hex(0xdc322f), Hex(0x859900), Hex(0xb58900),
	Hex(0x268bd2), Hex(0xd33682), Hex(0x2aa198), Hex(0xeee8d5),
	Hex(0x002b36), Hex(0xcb4b16), Hex(0x586e75), Hex(0x657b83),
	Hex(0x839496), Hex(0x6c71c4), Hex(0x93a1a1), Hex(0xfdf6e3),
}

// xterm's first 16 colours, used as the head of Default256.
var xterm16 = [16]RGBA{
	Hex(0x000000), Hex(0xcd0000), Hex(0x00cd00), Hex(0xcdcd00),
	Hex(0x0000ee), Hex(0xcd00cd), Hex(0x00cdcd), Hex(0xe5e5e5),
	Hex(0x7f7f7f), Hex(0xff0000), Hex(0x00ff00), Hex(0xffff00),
	Hex(0x5c5cff), Hex(0xff00ff), Hex(0x00ffff), Hex(0xffffff),
}

func Default16() *Palette   { return PaletteFrom(default16[:]) }
func Solarized16() *Palette { return PaletteFrom(solarized16[:]) }

// Default256 returns the xterm 256-colour palette: 16 system colours, the
// 6x6x6 colour cube and a 24 step grey ramp.
func Default256() *Palette {
	p := NewPalette(MaxPaletteSize)
	for i, c := range xterm16 {
		p.entries[i] = c
	}
	levels := [6]uint8{0, 95, 135, 175, 215, 255}
	for i := 0; i < 216; i++ {
		p.entries[16+i] = RGBA{R: levels[i/36], G: levels[(i/6)%6], B: levels[i%6], A: 255}
	}
	for i := 0; i < 24; i++ {
		v := uint8(8 + 10*i)
		p.entries[232+i] = RGBA{R: v, G: v, B: v, A: 255}
	}
	return p
}

// DefaultPalette is Default256 with the Ubuntu colours as its first 16 entries.
func DefaultPalette() *Palette {
	p := Default256()
	copy(p.entries[:16], default16[:])
	return p
}
