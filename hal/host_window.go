//go:build !tinygo && cgo

package hal

import (
	"context"
	"errors"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
	"inkterm/internal/buildinfo"
	"inkterm/internal/logging"
)

// WindowConfig controls the desktop window runner.
type WindowConfig struct {
	LoopConfig
	Width, Height int
	EmulateEPaper bool
}

type windowOp uint8

const (
	opBounds windowOp = iota
	opFlush
	opClose
)

// windowReq is a call into the window; the game loop answers it and closes
// done.
type windowReq struct {
	op        windowOp
	reqs      []display.CommitRequest
	composite []color.RGBA
	stride    int

	bounds geom.Rect
	done   chan struct{}
}

// windowDevice forwards display calls from the terminal goroutine to the
// ebiten game loop, which owns the window.
type windowDevice struct {
	calls chan *windowReq
	gone  chan struct{}
	keys  chan vt.KeyEvent
	bell  Bell

	goneOnce sync.Once
}

func newWindowDevice() *windowDevice {
	return &windowDevice{
		calls: make(chan *windowReq, 16),
		gone:  make(chan struct{}),
		keys:  make(chan vt.KeyEvent, 64),
		bell:  newEbitenBell(),
	}
}

func (d *windowDevice) call(r *windowReq) error {
	r.done = make(chan struct{})
	select {
	case d.calls <- r:
	case <-d.gone:
		return ErrClosed
	}
	select {
	case <-r.done:
		return nil
	case <-d.gone:
		return ErrClosed
	}
}

func (d *windowDevice) Bounds() geom.Rect {
	r := &windowReq{op: opBounds}
	if d.call(r) != nil {
		return geom.Rect{}
	}
	return r.bounds
}

func (d *windowDevice) Flush(reqs []display.CommitRequest, composite []color.RGBA, stride int) error {
	return d.call(&windowReq{op: opFlush, reqs: reqs, composite: composite, stride: stride})
}

// Close asks the window to shut down. It is a no-op once the window is gone.
func (d *windowDevice) Close() error {
	if err := d.call(&windowReq{op: opClose}); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

func (d *windowDevice) Keys() <-chan vt.KeyEvent { return d.keys }
func (d *windowDevice) Bell()                    { d.bell.Ring() }

func (d *windowDevice) shutdown() { d.goneOnce.Do(func() { close(d.gone) }) }

// RunWindow opens a desktop window and runs the application on a separate
// goroutine. It blocks until the window closes or the application returns.
func RunWindow(ctx context.Context, newApp NewApp, cfg WindowConfig) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dev := newWindowDevice()
	g := &windowGame{
		dev:  dev,
		fb:   NewFramebuffer(cfg.Width, cfg.Height, color.RGBA8888, cfg.EmulateEPaper),
		kbd:  newHostKeyboard(dev.keys),
		dirt: true,
	}

	appErr := make(chan error, 1)
	go func() { appErr <- Run(ctx, dev, newApp, cfg.LoopConfig) }()

	ebiten.SetWindowTitle("inkterm (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if cfg.Hz > 0 {
		ebiten.SetTPS(cfg.Hz)
	}
	logging.Logger().Info("window: open", "w", cfg.Width, "h", cfg.Height, "epaper", cfg.EmulateEPaper)

	err := ebiten.RunGame(g)
	dev.shutdown()
	cancel()
	if aerr := <-appErr; aerr != nil && !errors.Is(aerr, context.Canceled) {
		return aerr
	}
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

type windowGame struct {
	dev *windowDevice
	fb  *Framebuffer
	kbd *hostKeyboard

	img    *image.RGBA
	screen *ebiten.Image
	dirt   bool
	closed bool
}

func (g *windowGame) Update() error {
	for !g.closed {
		select {
		case r := <-g.dev.calls:
			g.serve(r)
		default:
			g.kbd.poll()
			return nil
		}
	}
	return ebiten.Termination
}

func (g *windowGame) serve(r *windowReq) {
	defer close(r.done)
	switch r.op {
	case opBounds:
		r.bounds = g.fb.Bounds()
	case opFlush:
		if err := g.fb.Flush(r.reqs, r.composite, r.stride); err != nil {
			logging.Logger().Warn("window: flush", "err", err)
		}
		g.dirt = true
	case opClose:
		g.closed = true
	}
}

func (g *windowGame) Draw(screen *ebiten.Image) {
	b := g.fb.Bounds()
	if b.Empty() {
		return
	}
	if g.img == nil || g.img.Bounds().Dx() != b.Width() || g.img.Bounds().Dy() != b.Height() {
		g.img = image.NewRGBA(image.Rect(0, 0, b.Width(), b.Height()))
		if g.screen != nil {
			g.screen.Deallocate()
		}
		g.screen = ebiten.NewImage(b.Width(), b.Height())
		g.dirt = true
	}
	if g.dirt {
		g.fb.CopyTo(g.img)
		g.screen.WritePixels(g.img.Pix)
		g.dirt = false
	}
	screen.DrawImage(g.screen, nil)
}

// Layout keeps one framebuffer pixel per logical window pixel, so resizing
// the window resizes the terminal.
func (g *windowGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := max(outsideWidth, 1), max(outsideHeight, 1)
	if b := g.fb.Bounds(); b.Width() != w || b.Height() != h {
		logging.Logger().Debug("window: resize", "w", w, "h", h)
		g.fb.Resize(w, h)
		g.dirt = true
	}
	return w, h
}
