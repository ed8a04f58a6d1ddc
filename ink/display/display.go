// Package display implements the layered compositor between the renderer
// and a device backend.
//
// Drawing goes through the Batch returned by Lock. Two premultiplied layers
// are kept per surface: Background (always opaque) and Presentation
// (glyphs). Commit queues rectangles; the outermost Unlock blends both layers
// into the composite buffer over those rectangles and hands them to the
// device in one batch.
package display

import (
	"sync"

	"inkterm/ink/color"
	"inkterm/ink/dither"
	"inkterm/ink/epaper"
	"inkterm/ink/geom"
	"inkterm/internal/logging"
)

// Layer selects one of the two drawing surfaces.
type Layer int

const (
	Background Layer = iota
	Presentation
)

// DrawMode selects how Blit applies a coverage mask.
type DrawMode int

const (
	// Write composites the colour over the layer, weighted by coverage.
	Write DrawMode = iota
	// Erase clears covered pixels back to transparent.
	Erase
)

// CommitRequest asks the device to show rect using the given update mode.
type CommitRequest struct {
	Rect geom.Rect
	Mode epaper.UpdateMode
}

// Device is the contract a backend fulfils for the compositor.
//
// Bounds reports the drawable area in device coordinates; an invalid or empty
// rect means nothing can be drawn right now. Flush receives request rects in
// device coordinates together with the composite buffer, which is indexed in
// surface coordinates (device minus Bounds origin) with stride pixels per row.
// Both calls may block.
type Device interface {
	Bounds() geom.Rect
	Flush(reqs []CommitRequest, composite []color.RGBA, stride int) error
}

// stride alignment in bytes
const strideAlign = 16

// Display is the compositor. It is safe for use by multiple goroutines:
// Lock blocks while another batch is open. Drawing goes through the Batch
// that Lock returns, so only the holder can touch the buffers.
type Display struct {
	dev Device

	mu   sync.Mutex
	cond *sync.Cond
	busy bool

	// Fields below belong to the open batch.
	width, height int
	stride        int
	devRect       geom.Rect
	surf          geom.Rect
	reqs          []CommitRequest
	batch         []CommitRequest
	composite     []color.RGBA
	bg            []color.RGBA
	fg            []color.RGBA
}

func New(dev Device) *Display {
	d := &Display{dev: dev}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Device returns the backend the display flushes to.
func (d *Display) Device() Device { return d.dev }

// Lock waits until no batch is open and begins a new one. Nested levels are
// taken with Batch.Lock.
func (d *Display) Lock() *Batch {
	d.mu.Lock()
	for d.busy {
		d.cond.Wait()
	}
	d.busy = true
	d.refresh()
	d.mu.Unlock()
	return &Batch{d: d, depth: 1, surf: d.surf}
}

func (d *Display) release() {
	d.mu.Lock()
	d.busy = false
	d.cond.Broadcast()
	d.mu.Unlock()
}

// Batch is one open drawing batch. It belongs to the goroutine that called
// Lock; once its outermost Unlock has run every call on it is a no-op.
type Batch struct {
	d     *Display
	depth int
	surf  geom.Rect
}

// Lock nests one more level and returns b.
func (b *Batch) Lock() *Batch {
	if b.depth > 0 {
		b.depth++
	}
	return b
}

// Unlock ends one level of batching. The outermost Unlock composes and
// flushes all queued commits and may block on device I/O.
func (b *Batch) Unlock() {
	if b.depth == 0 {
		return
	}
	b.depth--
	if b.depth > 0 {
		return
	}
	b.d.flush()
	b.d.release()
}

// Surface returns the surface rect, which starts at the origin. It is empty
// while the device has nothing to draw on; all drawing is then a no-op.
func (b *Batch) Surface() geom.Rect {
	if b.depth == 0 {
		return geom.Rect{}
	}
	return b.surf
}

func (b *Batch) open() bool { return b != nil && b.depth > 0 }

func (d *Display) refresh() {
	r := d.dev.Bounds()
	if !r.Valid() || r.Empty() {
		d.surf = geom.Rect{}
		return
	}
	d.resize(r.Width(), r.Height())
	d.devRect = r
	d.surf = geom.R(0, 0, d.width, d.height)
}

func (d *Display) resize(w, h int) {
	if w == d.width && h == d.height {
		return
	}
	d.stride = (w*4 + strideAlign - 1) / strideAlign * strideAlign / 4
	d.width, d.height = w, h
	n := d.stride * h
	d.composite = growBuf(d.composite, n)
	d.bg = growBuf(d.bg, n)
	d.fg = growBuf(d.fg, n)
	logging.Logger().Debug("display: buffers resized", "w", w, "h", h, "stride", d.stride)
}

// growBuf reslices b to n pixels, reallocating only when it has to grow.
func growBuf(b []color.RGBA, n int) []color.RGBA {
	if cap(b) >= n {
		return b[:n]
	}
	nb := make([]color.RGBA, n)
	copy(nb, b)
	return nb
}

func (d *Display) layer(l Layer) []color.RGBA {
	if l == Presentation {
		return d.fg
	}
	return d.bg
}

// target clips r to the surface and returns the layer buffer, or nil if
// there is nothing to draw.
func (b *Batch) target(l Layer, r geom.Rect) ([]color.RGBA, geom.Rect) {
	if !b.open() {
		return nil, r
	}
	r = b.surf.Clip(r)
	if r.Empty() {
		return nil, r
	}
	return b.d.layer(l), r
}

// Commit queues rect for the next flush. An invalid rect commits the whole
// surface.
func (b *Batch) Commit(r geom.Rect, mode epaper.UpdateMode) {
	if !b.open() {
		return
	}
	if !r.Valid() {
		r = b.surf
	} else {
		r = b.surf.Clip(r)
	}
	if r.Empty() {
		return
	}
	b.d.reqs = append(b.d.reqs, CommitRequest{Rect: r, Mode: mode})
}

// Fill writes c, premultiplied, to every pixel of r.
func (b *Batch) Fill(l Layer, c color.RGBA, r geom.Rect) {
	buf, r := b.target(l, r)
	if buf == nil {
		return
	}
	p := c.Premultiply()
	for y := r.Y0; y < r.Y1; y++ {
		row := buf[y*b.d.stride+r.X0 : y*b.d.stride+r.X1]
		for i := range row {
			row[i] = p
		}
	}
}

// FillDither fills r with an ordered black and white pattern for the 4-bit
// grey level g.
func (b *Batch) FillDither(l Layer, g uint8, r geom.Rect) {
	buf, r := b.target(l, r)
	if buf == nil {
		return
	}
	dither.OrderedBinary4Bit(g, buf, b.d.stride, r)
}

// Blit applies colour c through an 8-bit coverage mask. The mask has
// maskStride bytes per row and its first byte corresponds to the top-left
// corner of r, before clipping.
func (b *Batch) Blit(l Layer, c color.RGBA, mask []byte, maskStride int, r geom.Rect, mode DrawMode) {
	orig := r
	buf, r := b.target(l, r)
	if buf == nil {
		return
	}
	for y := r.Y0; y < r.Y1; y++ {
		mrow := (y-orig.Y0)*maskStride - orig.X0
		prow := y * b.d.stride
		for x := r.X0; x < r.X1; x++ {
			mi := mrow + x
			if mi < 0 || mi >= len(mask) {
				continue
			}
			a := uint16(mask[mi])
			if a == 0 {
				continue
			}
			if mode == Erase {
				buf[prow+x] = color.Transparent
				continue
			}
			sa := a * uint16(c.A) / 255
			inv := 255 - sa
			dst := buf[prow+x]
			buf[prow+x] = color.RGBA{
				R: clamp8(uint16(c.R)*sa/255 + uint16(dst.R)*inv/255),
				G: clamp8(uint16(c.G)*sa/255 + uint16(dst.G)*inv/255),
				B: clamp8(uint16(c.B)*sa/255 + uint16(dst.B)*inv/255),
				A: clamp8(sa + uint16(dst.A)*inv/255),
			}
		}
	}
}

func clamp8(v uint16) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// compose blends Presentation over Background into the composite buffer.
func (d *Display) compose(r geom.Rect) {
	for y := r.Y0; y < r.Y1; y++ {
		for i := y*d.stride + r.X0; i < y*d.stride+r.X1; i++ {
			bg, fg := d.bg[i], d.fg[i]
			inv := 255 - uint16(fg.A)
			d.composite[i] = color.RGBA{
				R: clamp8(uint16(bg.R)*inv/255 + uint16(fg.R)),
				G: clamp8(uint16(bg.G)*inv/255 + uint16(fg.G)),
				B: clamp8(uint16(bg.B)*inv/255 + uint16(fg.B)),
				A: 0xFF,
			}
		}
	}
}

func (d *Display) flush() {
	if len(d.reqs) == 0 {
		return
	}
	origin := d.devRect.Origin()
	d.batch = d.batch[:0]
	for _, req := range d.reqs {
		d.compose(req.Rect)
		d.batch = append(d.batch, CommitRequest{Rect: req.Rect.Translate(origin), Mode: req.Mode})
	}
	d.reqs = d.reqs[:0]
	if err := d.dev.Flush(d.batch, d.composite, d.stride); err != nil {
		logging.Logger().Warn("display: flush failed", "requests", len(d.batch), "err", err)
	}
}
