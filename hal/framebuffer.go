package hal

import (
	"image"
	"sync"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/epaper"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
)

// Framebuffer is a packed pixel buffer in memory. With emulation enabled,
// flushes go through the e-paper update model instead of being copied.
type Framebuffer struct {
	mu      sync.Mutex
	width   int
	height  int
	stride  int
	layout  color.PixelLayout
	buf     []byte
	emulate bool

	flushes  int
	requests int
}

// NewFramebuffer allocates a white width x height framebuffer.
func NewFramebuffer(width, height int, layout color.PixelLayout, emulate bool) *Framebuffer {
	f := &Framebuffer{layout: layout, emulate: emulate}
	f.Resize(width, height)
	return f
}

// framebufferOver uses memory owned by someone else, such as a mapped
// device.
func framebufferOver(buf []byte, width, height, stride int, layout color.PixelLayout) *Framebuffer {
	return &Framebuffer{width: width, height: height, stride: stride, layout: layout, buf: buf}
}

// Resize reallocates the buffer. The content is reset to white.
func (f *Framebuffer) Resize(width, height int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	width, height = max(width, 0), max(height, 0)
	f.width, f.height = width, height
	f.stride = width * f.layout.BytesPerPixel()
	f.buf = make([]byte, f.stride*height)
	f.clearLocked(color.White)
}

func (f *Framebuffer) clearLocked(c color.RGBA) {
	bypp := f.layout.BytesPerPixel()
	px := f.layout.Encode(c)
	for y := 0; y < f.height; y++ {
		row := f.buf[y*f.stride:]
		for x := 0; x < f.width; x++ {
			f.layout.Store(row[x*bypp:], px)
		}
	}
}

// Clear fills the whole buffer with c.
func (f *Framebuffer) Clear(c color.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearLocked(c)
}

func (f *Framebuffer) Bounds() geom.Rect {
	f.mu.Lock()
	defer f.mu.Unlock()
	return geom.R(0, 0, f.width, f.height)
}

func (f *Framebuffer) Layout() color.PixelLayout { return f.layout }

// Flush copies the requested rects of composite into the buffer.
func (f *Framebuffer) Flush(reqs []display.CommitRequest, composite []color.RGBA, stride int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	if stride <= 0 {
		return nil
	}
	// The composite may predate a resize.
	clip := geom.R(0, 0, f.width, f.height).Clip(geom.R(0, 0, stride, len(composite)/stride))
	bypp := f.layout.BytesPerPixel()
	for _, req := range reqs {
		r := clip.Clip(req.Rect)
		if r.Empty() {
			continue
		}
		f.requests++
		if f.emulate {
			epaper.Apply(f.buf, f.stride, f.layout, composite, stride, r, req.Mode)
			continue
		}
		for y := r.Y0; y < r.Y1; y++ {
			row := f.buf[y*f.stride:]
			src := composite[y*stride:]
			for x := r.X0; x < r.X1; x++ {
				f.layout.Store(row[x*bypp:], f.layout.Encode(src[x]))
			}
		}
	}
	return nil
}

// At returns the pixel at (x, y), or black outside the buffer.
func (f *Framebuffer) At(x, y int) color.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.atLocked(x, y)
}

func (f *Framebuffer) atLocked(x, y int) color.RGBA {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return color.Black
	}
	return f.layout.Decode(f.layout.Load(f.buf[y*f.stride+x*f.layout.BytesPerPixel():]))
}

// Snapshot returns a copy of the buffer as an image.
func (f *Framebuffer) Snapshot() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	f.copyToLocked(img)
	return img
}

// CopyTo writes the buffer into img, which must have the same size.
func (f *Framebuffer) CopyTo(img *image.RGBA) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyToLocked(img)
}

func (f *Framebuffer) copyToLocked(img *image.RGBA) {
	b := img.Bounds()
	w, h := min(b.Dx(), f.width), min(b.Dy(), f.height)
	for y := 0; y < h; y++ {
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			c := f.atLocked(x, y)
			dst[4*x+0] = c.R
			dst[4*x+1] = c.G
			dst[4*x+2] = c.B
			dst[4*x+3] = 0xFF
		}
	}
}

// Stats reports the number of flushes and of non-empty requests applied.
func (f *Framebuffer) Stats() (flushes, requests int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes, f.requests
}

func (f *Framebuffer) Keys() <-chan vt.KeyEvent { return nil }
func (f *Framebuffer) Bell()                    {}
func (f *Framebuffer) Close() error             { return nil }
