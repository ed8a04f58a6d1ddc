package color

// PixelLayout describes how an RGBA value is packed into a device pixel.
//
// Each channel has a right shift (how many low bits of the 8-bit value are
// dropped) and a left shift (bit offset of the field in the packed word).
// A right shift of 8 removes the channel; a missing alpha decodes as opaque.
type PixelLayout struct {
	BPP    uint8
	RR, RL uint8
	GR, GL uint8
	BR, BL uint8
	AR, AL uint8
}

var (
	// RGB565 is 16bpp: rrrrrggggggbbbbb.
	RGB565 = PixelLayout{BPP: 16, RR: 3, RL: 11, GR: 2, GL: 5, BR: 3, BL: 0, AR: 8}
	// XRGB8888 is the common 32bpp framebuffer layout, B in the lowest byte.
	XRGB8888 = PixelLayout{BPP: 32, RR: 0, RL: 16, GR: 0, GL: 8, BR: 0, BL: 0, AR: 8}
	// RGBA8888 stores R in the lowest byte, matching image.RGBA byte order.
	RGBA8888 = PixelLayout{BPP: 32, RR: 0, RL: 0, GR: 0, GL: 8, BR: 0, BL: 16, AR: 0, AL: 24}
	// Grey8 keeps only the green channel, which is what the greyscale e-ink
	// controllers expose through their bitfields.
	Grey8 = PixelLayout{BPP: 8, RR: 8, GR: 0, GL: 0, BR: 8, AR: 8}
)

// BytesPerPixel rounds BPP up to whole bytes.
func (l PixelLayout) BytesPerPixel() int { return (int(l.BPP) + 7) >> 3 }

func encodeChannel(c, rr, rl uint8) uint32 {
	if rr >= 8 {
		return 0
	}
	return (uint32(c) >> rr) << rl
}

func decodeChannel(x uint32, rr, rl uint8) uint8 {
	if rr >= 8 {
		return 0
	}
	return uint8(((x >> rl) & (0xFF >> rr)) << rr)
}

// Encode packs c. The low bits dropped by each channel are lost.
func (l PixelLayout) Encode(c RGBA) uint32 {
	return encodeChannel(c.R, l.RR, l.RL) |
		encodeChannel(c.G, l.GR, l.GL) |
		encodeChannel(c.B, l.BR, l.BL) |
		encodeChannel(c.A, l.AR, l.AL)
}

// Decode unpacks x.
func (l PixelLayout) Decode(x uint32) RGBA {
	c := RGBA{
		R: decodeChannel(x, l.RR, l.RL),
		G: decodeChannel(x, l.GR, l.GL),
		B: decodeChannel(x, l.BR, l.BL),
		A: decodeChannel(x, l.AR, l.AL),
	}
	if l.AR >= 8 {
		c.A = 0xFF
	}
	// Single channel layouts are greyscale.
	if l.RR >= 8 && l.BR >= 8 && l.GR < 8 {
		c.R, c.B = c.G, c.G
	}
	return c
}

// Load reads one little-endian pixel from the front of b.
func (l PixelLayout) Load(b []byte) uint32 {
	var x uint32
	n := min(l.BytesPerPixel(), len(b))
	for k := 0; k < n; k++ {
		x |= uint32(b[k]) << (8 * k)
	}
	return x
}

// Store writes one little-endian pixel to the front of b.
func (l PixelLayout) Store(b []byte, x uint32) {
	n := min(l.BytesPerPixel(), len(b))
	for k := 0; k < n; k++ {
		b[k] = byte(x >> (8 * k))
	}
}
