package epaper

import (
	"testing"

	"inkterm/ink/color"
	"inkterm/ink/geom"
)

func TestGreyscaleRamp(t *testing.T) {
	cases := []struct {
		g    uint8
		want color.RGBA
	}{
		{0, color.RGBA{R: 0, G: 0, B: 0, A: 255}},
		{15, color.RGBA{R: 255, G: 255, B: 255, A: 255}},
		{8, color.RGBA{R: 136, G: 136, B: 136, A: 255}},
	}
	for _, c := range cases {
		if got := FromGreyscale(c.g); got != c.want {
			t.Fatalf("FromGreyscale(%d)=%v want %v", c.g, got, c.want)
		}
	}
}

func TestToGreyscale(t *testing.T) {
	if g := ToGreyscale(color.White); g != 15 {
		t.Fatalf("white=%d", g)
	}
	if g := ToGreyscale(color.Black); g != 0 {
		t.Fatalf("black=%d", g)
	}
	for i := uint8(0); i < 16; i++ {
		if g := ToGreyscale(FromGreyscale(i)); g != i {
			t.Fatalf("ramp %d reduces to %d", i, g)
		}
	}
}

func TestPixelMasks(t *testing.T) {
	cases := []struct {
		name     string
		tar, src uint8
		mode     UpdateMode
		want     uint8
	}{
		{"identity full", 3, 9, Mode(Identity, Full), 9},
		{"invert", 0, 0, Mode(Invert, Full), 15},
		{"force mono high", 0, 9, Mode(ForceMono, Full), 15},
		{"force mono low", 15, 7, Mode(ForceMono, Full), 0},
		{"source mono skips grey", 4, 9, Mode(Identity, SourceMono), 4},
		{"source mono writes black", 4, 0, Mode(Identity, SourceMono), 0},
		{"target mono skips grey target", 4, 0, Mode(Identity, TargetMono), 4},
		{"target mono writes over white", 15, 9, Mode(Identity, TargetMono), 9},
		{"partial unchanged", 6, 6, Mode(Identity, Partial), 6},
		{"partial changed", 6, 2, Mode(Identity, Partial), 2},
		{"white", 2, 0, Mode(White, Full), 15},
		{"white masked", 2, 2, Mode(White, Partial), 2},
	}
	for _, c := range cases {
		if got := Pixel(c.tar, c.src, c.mode); got != c.want {
			t.Fatalf("%s: Pixel(%d,%d)=%d want %d", c.name, c.tar, c.src, got, c.want)
		}
	}
}

func TestApplyRespectsRect(t *testing.T) {
	const w, h = 4, 2
	layout := color.XRGB8888
	target := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		layout.Store(target[i*4:], layout.Encode(color.White))
	}
	source := make([]color.RGBA, w*h)
	for i := range source {
		source[i] = color.Black
	}
	Apply(target, w*4, layout, source, w, geom.R(1, 0, 3, 1), Mode(Identity, Full))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := layout.Decode(layout.Load(target[(y*w+x)*4:]))
			inside := y == 0 && x >= 1 && x < 3
			if inside && c != color.Black {
				t.Fatalf("(%d,%d)=%v want black", x, y, c)
			}
			if !inside && c != color.White {
				t.Fatalf("(%d,%d)=%v want white", x, y, c)
			}
		}
	}
}

func TestApplyQuantizes(t *testing.T) {
	layout := color.XRGB8888
	target := make([]byte, 4)
	source := []color.RGBA{{R: 130, G: 130, B: 130, A: 255}}
	Apply(target, 4, layout, source, 1, geom.R(0, 0, 1, 1), Mode(Identity, Full))
	got := layout.Decode(layout.Load(target))
	if got != FromGreyscale(ToGreyscale(source[0])) {
		t.Fatalf("quantized=%v", got)
	}
}

func TestUpdateModeString(t *testing.T) {
	if s := Mode(Identity, Partial).String(); s != "identity/partial" {
		t.Fatalf("String()=%q", s)
	}
	if !Mode(Identity, SourceMono).Monochrome() || Mode(Identity, Partial).Monochrome() {
		t.Fatal("Monochrome")
	}
}
