package hal

import (
	"inkterm/ink/color"
	"inkterm/ink/epaper"
)

// fbBitfield mirrors struct fb_bitfield.
type fbBitfield struct {
	Offset   uint32
	Length   uint32
	MSBRight uint32
}

// channelShifts converts a bitfield into right and left shifts of an 8-bit
// channel. Fields wider than 8 bits keep their top 8 bits.
func channelShifts(f fbBitfield) (rr, rl uint8) {
	switch {
	case f.Length == 0:
		return 8, 0
	case f.Length >= 8:
		return 0, uint8(f.Offset + f.Length - 8)
	}
	return uint8(8 - f.Length), uint8(f.Offset)
}

// layoutFromBitfields builds the pixel layout a framebuffer reports. Grey
// panels expose one channel; overlapping colour fields are read the same
// way.
func layoutFromBitfields(bpp uint32, r, g, b, a fbBitfield, grey bool) color.PixelLayout {
	l := color.PixelLayout{BPP: uint8(bpp)}
	l.RR, l.RL = channelShifts(r)
	l.GR, l.GL = channelShifts(g)
	l.BR, l.BL = channelShifts(b)
	l.AR, l.AL = channelShifts(a)
	if grey || (r.Offset == g.Offset && g.Offset == b.Offset) {
		l.RR, l.RL = 8, 0
		l.BR, l.BL = 8, 0
		if l.GR == 8 {
			l.GR, l.GL = channelShifts(fbBitfield{Length: bpp})
		}
	}
	return l
}

// mxcfb waveform and update constants.
const (
	waveformModeGC16 = 2
	waveformModeA2   = 4
	waveformModeAuto = 257

	updateModePartial = 0
	updateModeFull    = 1
)

// waveform picks the controller waveform for m. Monochrome updates use the
// fast A2 waveform once the panel has had one AUTO update in that mode.
// Full-area identity updates get a flashing GC16 refresh.
func waveform(m epaper.UpdateMode, monoRun int) (wave, update uint32) {
	switch {
	case m.Monochrome():
		if monoRun == 0 {
			return waveformModeAuto, updateModePartial
		}
		return waveformModeA2, updateModePartial
	case m.Mask == epaper.Full && m.Output == epaper.Identity:
		return waveformModeGC16, updateModeFull
	}
	return waveformModeAuto, updateModePartial
}
