// Package dither renders greyscale levels as binary patterns for displays
// that only update quickly when pixels are pure black or white.
package dither

import (
	"inkterm/ink/color"
	"inkterm/ink/geom"
)

// 4x4 Bayer threshold matrix.
var bayer = [4][4]uint8{
	{0, 8, 2, 10},
	{12, 4, 14, 6},
	{3, 11, 1, 9},
	{15, 7, 13, 5},
}

// On reports whether pixel (x, y) is white for 4-bit grey level g.
func On(g uint8, x, y int) bool {
	if g >= 15 {
		return true
	}
	return g > bayer[y&3][x&3]
}

// OrderedBinary4Bit fills rect of dst (stride pixels per row) with an ordered
// black/white pattern approximating grey level g (0..15). The pattern is
// anchored at the buffer origin so adjacent rects tile without seams.
func OrderedBinary4Bit(g uint8, dst []color.RGBA, stride int, rect geom.Rect) {
	if rect.Empty() {
		return
	}
	for y := rect.Y0; y < rect.Y1; y++ {
		row := y * stride
		if row+rect.X1 > len(dst) {
			return
		}
		for x := rect.X0; x < rect.X1; x++ {
			if On(g, x, y) {
				dst[row+x] = color.White
			} else {
				dst[row+x] = color.Black
			}
		}
	}
}
