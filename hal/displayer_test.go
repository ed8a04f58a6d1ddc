package hal

import (
	stdcolor "image/color"
	"testing"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/epaper"
	"inkterm/ink/geom"
)

type panel struct {
	w, h     int16
	px       map[[2]int16]stdcolor.RGBA
	displays int
}

func newPanel(w, h int16) *panel {
	return &panel{w: w, h: h, px: make(map[[2]int16]stdcolor.RGBA)}
}

func (p *panel) Size() (int16, int16)                 { return p.w, p.h }
func (p *panel) SetPixel(x, y int16, c stdcolor.RGBA) { p.px[[2]int16{x, y}] = c }
func (p *panel) Display() error                       { p.displays++; return nil }

type spiPanel struct {
	*panel
	blits []geom.Rect
	data  []uint8
}

func (p *spiPanel) DrawRGBBitmap8(x, y int16, data []uint8, w, h int16) error {
	p.blits = append(p.blits, geom.Sized(int(x), int(y), int(w), int(h)))
	p.data = append([]uint8(nil), data...)
	return nil
}

func TestDisplayerDeviceSetsPixels(t *testing.T) {
	p := newPanel(3, 2)
	d := NewDisplayerDevice(p, nil, false)
	if d.Bounds() != geom.R(0, 0, 3, 2) {
		t.Fatalf("bounds=%v", d.Bounds())
	}
	grey := color.Hex(0x404040)
	err := d.Flush([]display.CommitRequest{
		{Rect: geom.R(0, 0, 1, 1)},
		{Rect: geom.R(2, 1, 5, 5), Mode: epaper.Mode(epaper.ForceMono, epaper.Full)},
	}, solid(3, 2, grey), 3)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(p.px) != 2 || p.displays != 1 {
		t.Fatalf("pixels=%d displays=%d", len(p.px), p.displays)
	}
	if got := p.px[[2]int16{0, 0}]; got != (stdcolor.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xFF}) {
		t.Fatalf("(0,0)=%v", got)
	}
	if got := p.px[[2]int16{2, 1}]; got != (stdcolor.RGBA{A: 0xFF}) {
		t.Fatalf("mono pixel=%v", got)
	}
}

func TestDisplayerDeviceBlitsRGB565(t *testing.T) {
	p := &spiPanel{panel: newPanel(4, 4)}
	d := NewDisplayerDevice(p, nil, false)
	if err := d.Flush([]display.CommitRequest{{Rect: geom.R(1, 1, 3, 2)}}, solid(4, 4, color.Hex(0xff0000)), 4); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(p.blits) != 1 || p.blits[0] != geom.R(1, 1, 3, 2) {
		t.Fatalf("blits=%v", p.blits)
	}
	want := []uint8{0xF8, 0x00, 0xF8, 0x00}
	if string(p.data) != string(want) {
		t.Fatalf("data=% x", p.data)
	}
	if len(p.px) != 0 || p.displays != 1 {
		t.Fatalf("pixels=%d displays=%d", len(p.px), p.displays)
	}
}
