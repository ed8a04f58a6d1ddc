// Package epaper expresses e-paper waveform intent in a device independent
// way and emulates its effect on an ordinary pixel buffer.
//
// The emulation works on 4-bit greyscale, the depth of common e-ink
// controllers, so the development preview and a real panel agree on which
// pixels an update touches.
package epaper

import (
	"strings"

	"inkterm/ink/color"
	"inkterm/ink/geom"
)

// OutputOp transforms what is drawn.
type OutputOp uint8

const (
	Identity  OutputOp = 0
	ForceMono OutputOp = 1 << 0
	Invert    OutputOp = 1 << 1
	White     OutputOp = 1 << 2
)

// MaskOp restricts which pixels may change.
type MaskOp uint8

const (
	Full       MaskOp = 0
	SourceMono MaskOp = 1 << 0
	TargetMono MaskOp = 1 << 1
	Partial    MaskOp = 1 << 2
)

// UpdateMode pairs an output transform with an update mask.
type UpdateMode struct {
	Output OutputOp
	Mask   MaskOp
}

// Mode is shorthand for UpdateMode{out, mask}.
func Mode(out OutputOp, mask MaskOp) UpdateMode {
	return UpdateMode{Output: out, Mask: mask}
}

// Monochrome reports whether the update only produces or touches pure
// black and white pixels.
func (m UpdateMode) Monochrome() bool {
	return m.Output&ForceMono != 0 || m.Mask&SourceMono != 0
}

func (m UpdateMode) String() string {
	var out []string
	if m.Output == Identity {
		out = append(out, "identity")
	}
	if m.Output&ForceMono != 0 {
		out = append(out, "force-mono")
	}
	if m.Output&Invert != 0 {
		out = append(out, "invert")
	}
	if m.Output&White != 0 {
		out = append(out, "white")
	}
	var mask []string
	if m.Mask == Full {
		mask = append(mask, "full")
	}
	if m.Mask&SourceMono != 0 {
		mask = append(mask, "source-mono")
	}
	if m.Mask&TargetMono != 0 {
		mask = append(mask, "target-mono")
	}
	if m.Mask&Partial != 0 {
		mask = append(mask, "partial")
	}
	return strings.Join(out, "+") + "/" + strings.Join(mask, "+")
}

var ramp = [16]uint8{0, 17, 34, 51, 68, 85, 102, 119, 136, 153, 170, 187, 204, 221, 238, 255}

// ToGreyscale reduces c to a 4-bit luminance value.
func ToGreyscale(c color.RGBA) uint8 {
	return uint8((77*uint32(c.R) + 151*uint32(c.G) + 28*uint32(c.B)) >> 12)
}

// FromGreyscale maps a 4-bit value onto the 16 step linear ramp.
func FromGreyscale(g uint8) color.RGBA {
	v := ramp[g&0x0F]
	return color.RGBA{R: v, G: v, B: v, A: 0xFF}
}

// Pixel computes the 4-bit grey a single target pixel ends up with when an
// update in mode m writes source grey src over target grey tar.
func Pixel(tar, src uint8, m UpdateMode) uint8 {
	if m.Output&Invert != 0 {
		src = 15 - src
	}
	if m.Output&ForceMono != 0 {
		if src > 7 {
			src = 15
		} else {
			src = 0
		}
	}

	masked := false
	if m.Mask&SourceMono != 0 && src != 0 && src != 15 {
		masked = true
	}
	if m.Mask&TargetMono != 0 && tar != 0 && tar != 15 {
		masked = true
	}
	if m.Mask&Partial != 0 && tar == src {
		masked = true
	}

	if m.Output&White != 0 {
		src = 15
	}
	if masked {
		return tar
	}
	return src
}

// Apply emulates an update of rect on a packed target buffer.
//
// target is addressed with targetStride bytes per row and the given layout;
// source holds RGBA pixels with sourceStride pixels per row. Both buffers use
// the same coordinates. The caller clips rect to both buffers.
func Apply(target []byte, targetStride int, layout color.PixelLayout, source []color.RGBA, sourceStride int, rect geom.Rect, m UpdateMode) {
	if rect.Empty() {
		return
	}
	bypp := layout.BytesPerPixel()
	for y := rect.Y0; y < rect.Y1; y++ {
		trow := y*targetStride + rect.X0*bypp
		srow := y*sourceStride + rect.X0
		for x := 0; x < rect.Width(); x++ {
			off := trow + x*bypp
			if off < 0 || off+bypp > len(target) || srow+x >= len(source) {
				return
			}
			tar := ToGreyscale(layout.Decode(layout.Load(target[off:])))
			src := ToGreyscale(source[srow+x])
			g := Pixel(tar, src, m)
			layout.Store(target[off:], layout.Encode(FromGreyscale(g)))
		}
	}
}
