// Command epaper-emu renders test patterns through every e-paper update
// mode and writes the emulated panel contents as a PNG.
//
// Each column is one update mode, each row one pattern. Tiles start out with
// a checkerboard of black, white and mid grey so the masks become visible.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/pflag"

	"inkterm/ink/color"
	"inkterm/ink/dither"
	"inkterm/ink/epaper"
	"inkterm/ink/font"
	"inkterm/ink/geom"
)

var (
	outputs = []epaper.OutputOp{epaper.Identity, epaper.ForceMono, epaper.Invert, epaper.White}
	masks   = []epaper.MaskOp{epaper.Full, epaper.SourceMono, epaper.TargetMono, epaper.Partial}
)

type pattern func(src []color.RGBA, stride int, r geom.Rect)

func main() {
	var (
		out  = pflag.StringP("out", "o", "epaper-modes.png", "Output PNG file")
		tile = pflag.IntP("tile", "t", 96, "Tile edge length in pixels")
		gap  = pflag.Int("gap", 8, "Gap between tiles in pixels")
		dpi  = pflag.Int("dpi", 96, "Font resolution for the text pattern")
		text = pflag.String("text", "Ink", "Sample text of the text pattern")
	)
	pflag.Parse()
	if *tile < 16 || *gap < 0 {
		fatalf("invalid tile %d or gap %d", *tile, *gap)
	}

	face, err := font.DefaultOpenType(*dpi)
	if err != nil {
		fatalf("%v", err)
	}
	defer face.Close()

	patterns := []pattern{
		ramp,
		ditherRamp,
		textPattern(face, *text, *tile),
	}
	var modes []epaper.UpdateMode
	for _, o := range outputs {
		for _, m := range masks {
			modes = append(modes, epaper.Mode(o, m))
		}
	}

	w := len(modes)*(*tile+*gap) + *gap
	h := len(patterns)*(*tile+*gap) + *gap
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	grey := epaper.FromGreyscale(8)
	for i := 0; i < w*h; i++ {
		color.RGBA8888.Store(img.Pix[4*i:], color.RGBA8888.Encode(grey))
	}
	src := make([]color.RGBA, w*h)

	for row, p := range patterns {
		for col, m := range modes {
			x0 := *gap + col*(*tile+*gap)
			y0 := *gap + row*(*tile+*gap)
			r := geom.Sized(x0, y0, *tile, *tile)
			checker(img, r)
			p(src, w, r)
			epaper.Apply(img.Pix, img.Stride, color.RGBA8888, src, w, r, m)
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		fatalf("%v", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		fatalf("encode %s: %v", *out, err)
	}
	if err := f.Close(); err != nil {
		fatalf("%v", err)
	}
	for col, m := range modes {
		fmt.Printf("column %2d: %s\n", col, m)
	}
	fmt.Printf("wrote %s (%dx%d)\n", *out, w, h)
}

// checker paints the previous panel contents of r.
func checker(img *image.RGBA, r geom.Rect) {
	cs := [3]color.RGBA{color.Black, color.White, epaper.FromGreyscale(8)}
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			c := cs[((x-r.X0)/8+(y-r.Y0)/8)%3]
			color.RGBA8888.Store(img.Pix[y*img.Stride+4*x:], color.RGBA8888.Encode(c))
		}
	}
}

// ramp draws the 16 grey levels as vertical bars.
func ramp(src []color.RGBA, stride int, r geom.Rect) {
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			src[y*stride+x] = epaper.FromGreyscale(uint8(16 * (x - r.X0) / r.Width()))
		}
	}
}

// ditherRamp draws the grey levels as ordered black and white patterns.
func ditherRamp(src []color.RGBA, stride int, r geom.Rect) {
	for g := 0; g < 16; g++ {
		y0 := r.Y0 + g*r.Height()/16
		y1 := r.Y0 + (g+1)*r.Height()/16
		dither.OrderedBinary4Bit(uint8(g), src, stride, geom.R(r.X0, y0, r.X1, y1))
	}
}

// textPattern draws s in black on white, sized to fill the tile width.
func textPattern(face font.Source, s string, tile int) pattern {
	runes := []rune(s)
	size := 640
	for size > 64 {
		if m := face.Metrics(size); m.CellWidth*len(runes) <= tile && m.CellHeight <= tile {
			break
		}
		size -= 64
	}
	m := face.Metrics(size)
	return func(src []color.RGBA, stride int, r geom.Rect) {
		for y := r.Y0; y < r.Y1; y++ {
			for x := r.X0; x < r.X1; x++ {
				src[y*stride+x] = color.White
			}
		}
		ox := r.X0 + (r.Width()-m.CellWidth*len(runes))/2
		oy := r.Y0 + (r.Height()-m.CellHeight)/2
		for i, ch := range runes {
			b := face.Render(ch, size, false, 0)
			if b == nil {
				continue
			}
			cx := ox + i*m.CellWidth
			for y := 0; y < b.H; y++ {
				for x := 0; x < b.W; x++ {
					px, py := cx+b.X+x, oy+b.Y+y
					if !r.Contains(geom.Pt(px, py)) {
						continue
					}
					v := 255 - b.Buf[y*b.Stride+x]
					src[py*stride+px] = color.RGBA{R: v, G: v, B: v, A: 0xFF}
				}
			}
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "epaper-emu: "+format+"\n", args...)
	os.Exit(1)
}
