package hal

import (
	stdcolor "image/color"

	"tinygo.org/x/drivers"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/epaper"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
)

// bitmapDrawer is implemented by SPI panels that accept a block of
// big-endian RGB565 pixels in one transfer.
type bitmapDrawer interface {
	DrawRGBBitmap8(x, y int16, data []uint8, w, h int16) error
}

// DisplayerDevice shows the display on a TinyGo display driver.
type DisplayerDevice struct {
	d    drivers.Displayer
	keys chan vt.KeyEvent
	mono bool
	buf  []uint8
}

// NewDisplayerDevice wraps d. With mono set, pixels are reduced to black
// and white before they are sent, for e-paper panels.
func NewDisplayerDevice(d drivers.Displayer, keys chan vt.KeyEvent, mono bool) *DisplayerDevice {
	return &DisplayerDevice{d: d, keys: keys, mono: mono}
}

func (p *DisplayerDevice) Bounds() geom.Rect {
	w, h := p.d.Size()
	return geom.R(0, 0, int(w), int(h))
}

func (p *DisplayerDevice) Flush(reqs []display.CommitRequest, composite []color.RGBA, stride int) error {
	if stride <= 0 {
		return nil
	}
	clip := p.Bounds().Clip(geom.R(0, 0, stride, len(composite)/stride))
	bd, fast := p.d.(bitmapDrawer)
	for _, req := range reqs {
		r := clip.Clip(req.Rect)
		if r.Empty() {
			continue
		}
		if fast && !p.mono {
			if err := p.drawBitmap(bd, r, composite, stride); err != nil {
				return err
			}
			continue
		}
		for y := r.Y0; y < r.Y1; y++ {
			row := composite[y*stride:]
			for x := r.X0; x < r.X1; x++ {
				c := row[x]
				if p.mono || req.Mode.Monochrome() {
					c = monochrome(c)
				}
				p.d.SetPixel(int16(x), int16(y), stdcolor.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
			}
		}
	}
	return p.d.Display()
}

// monochrome thresholds c at the middle of the 4-bit grey ramp.
func monochrome(c color.RGBA) color.RGBA {
	if epaper.ToGreyscale(c) >= 8 {
		return color.White
	}
	return color.Black
}

func (p *DisplayerDevice) drawBitmap(bd bitmapDrawer, r geom.Rect, composite []color.RGBA, stride int) error {
	n := r.Area() * 2
	if cap(p.buf) < n {
		p.buf = make([]uint8, n)
	}
	buf := p.buf[:n]
	i := 0
	for y := r.Y0; y < r.Y1; y++ {
		row := composite[y*stride:]
		for x := r.X0; x < r.X1; x++ {
			v := color.RGB565.Encode(row[x])
			buf[i], buf[i+1] = uint8(v>>8), uint8(v)
			i += 2
		}
	}
	return bd.DrawRGBBitmap8(int16(r.X0), int16(r.Y0), buf, int16(r.Width()), int16(r.Height()))
}

func (p *DisplayerDevice) Keys() <-chan vt.KeyEvent { return p.keys }
func (p *DisplayerDevice) Bell()                    {}
func (p *DisplayerDevice) Close() error             { return nil }
