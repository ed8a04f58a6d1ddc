// Package app ties a display device, the cell renderer and the VT parser to
// a child process running on a pseudo terminal.
package app

import (
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"inkterm/hal"
	"inkterm/ink/config"
	"inkterm/ink/display"
	"inkterm/ink/font"
	"inkterm/ink/matrix"
	"inkterm/ink/render"
	"inkterm/ink/vt"
	"inkterm/internal/logging"
)

// ErrChildExited ends the frame loop once the child has gone.
var ErrChildExited = errors.New("child exited")

// Font size step of the zoom shortcuts, in 1/64 pt.
const (
	fontStep    = 64
	minFontSize = 4 * 64
)

// StartFunc starts the child on a terminal of the given size.
type StartFunc func(rows, cols int) (Child, error)

// Options overrides the parts New builds from the configuration.
type Options struct {
	Source font.Source
	Start  StartFunc
	Now    func() time.Time
}

// Terminal is one terminal session. Step must be called from one goroutine.
type Terminal struct {
	cfg   config.Config
	dev   hal.Device
	disp  *display.Display
	face  font.Source
	src   *font.Cache
	m     *matrix.Matrix
	r     *render.Renderer
	vt    *vt.Terminal
	child Child
	codec codec
	now   func() time.Time

	last       time.Time
	rows, cols int
	redraw     bool
	halted     error
}

// NewApp returns the constructor used by the hal runners.
func NewApp(cfg config.Config) hal.NewApp {
	return func(dev hal.Device) (hal.App, error) {
		t, err := New(dev, cfg, Options{})
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// New builds a terminal on dev and starts the child.
func New(dev hal.Device, cfg config.Config, opts Options) (*Terminal, error) {
	cc, err := lookupCodec(cfg.General.Encoding)
	if err != nil {
		return nil, err
	}
	src := opts.Source
	if src == nil {
		if src, err = loadFont(cfg.Font); err != nil {
			return nil, err
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Start == nil {
		argv, err := ShellCommand(cfg.General.Shell)
		if err != nil {
			return nil, err
		}
		opts.Start = func(rows, cols int) (Child, error) { return StartChild(argv, rows, cols) }
	}

	t := &Terminal{
		cfg:    cfg,
		dev:    dev,
		disp:   display.New(dev),
		face:   src,
		src:    font.NewCache(src, 0),
		m:      matrix.New(1, 1),
		codec:  cc,
		now:    opts.Now,
		redraw: true,
	}
	t.r = render.New(render.Config{
		FontSize:    cfg.Font.SizeUnits(),
		Orientation: cfg.General.Orientation,
		Colors:      cfg.Colors.Render(),
	}, t.src, t.disp, t.m)
	t.vt = vt.New(t.m)
	t.vt.SetBell(dev.Bell)

	g := t.r.Geometry()
	t.rows, t.cols = g.Rows, g.Cols
	if t.child, err = opts.Start(max(g.Rows, 1), max(g.Cols, 1)); err != nil {
		t.closeFont()
		return nil, err
	}
	t.vt.SetOutput(t.child)
	t.last = t.now()
	logging.Logger().Info("app: terminal ready", "cols", g.Cols, "rows", g.Rows, "encoding", cc)
	return t, nil
}

func loadFont(f config.Font) (font.Source, error) {
	switch {
	case f.Bitmap:
		return font.DefaultBitmapFont(), nil
	case f.Path != "":
		return font.LoadOpenType(f.Path, f.DPI)
	default:
		return font.DefaultOpenType(f.DPI)
	}
}

// Step runs one frame: child output goes to the VT, key presses go to the
// child, then the renderer draws what changed.
func (t *Terminal) Step() (err error) {
	if t.halted != nil {
		return t.haltedStep()
	}
	defer func() {
		if v := recover(); v != nil {
			t.halt(v)
		}
	}()

	exited := t.drainOutput()
	if err := t.drainKeys(); err != nil {
		return err
	}

	now := t.now()
	dt := int(now.Sub(t.last) / time.Millisecond)
	t.last = now
	if t.redraw {
		t.r.Draw(true, 0)
		t.redraw = false
	} else {
		t.r.Draw(false, max(dt, 0))
	}
	t.syncSize()

	if exited {
		return ErrChildExited
	}
	return nil
}

// drainOutput feeds pending child output to the VT without blocking. It
// reports whether the child has exited.
func (t *Terminal) drainOutput() bool {
	out := t.child.Output()
	for {
		select {
		case p, ok := <-out:
			if !ok {
				return true
			}
			t.vt.Write(t.codec.decode(p))
		default:
			return false
		}
	}
}

func (t *Terminal) drainKeys() error {
	keys := t.dev.Keys()
	for {
		select {
		case ev := <-keys:
			if t.shortcut(ev) {
				continue
			}
			b := t.vt.EncodeKey(ev)
			if len(b) == 0 {
				continue
			}
			if _, err := t.child.Write(t.codec.encode(b)); err != nil {
				return fmt.Errorf("write to child: %w", err)
			}
		default:
			return nil
		}
	}
}

// shortcut handles the keys the terminal keeps for itself.
func (t *Terminal) shortcut(ev vt.KeyEvent) bool {
	switch {
	case ev.Key == vt.KeyF5 && !ev.Ctrl && !ev.Shift && !ev.Alt:
		t.redraw = true
	case !ev.Ctrl || !ev.Shift || ev.Alt:
		return false
	case ev.Key == vt.KeyUp:
		t.r.SetFontSize(t.r.FontSize() + fontStep)
	case ev.Key == vt.KeyDown:
		t.r.SetFontSize(max(t.r.FontSize()-fontStep, minFontSize))
	case ev.Key == vt.KeyRune && unicode.ToLower(ev.Rune) == 'r':
		t.r.SetOrientation(t.r.Orientation() + 1)
	default:
		return false
	}
	logging.Logger().Debug("app: shortcut", "key", ev.Key, "rune", ev.Rune,
		"font_size", t.r.FontSize(), "orientation", t.r.Orientation())
	return true
}

// syncSize passes a changed grid size on to the child.
func (t *Terminal) syncSize() {
	g := t.r.Geometry()
	if g.Rows == t.rows && g.Cols == t.cols {
		return
	}
	t.rows, t.cols = g.Rows, g.Cols
	if g.Rows <= 0 || g.Cols <= 0 {
		return
	}
	if err := t.child.Resize(g.Rows, g.Cols); err != nil {
		logging.Logger().Warn("app: resize child", "err", err)
	}
}

// Close stops the child and releases the font.
func (t *Terminal) Close() error {
	return errors.Join(t.child.Close(), t.closeFont())
}

func (t *Terminal) closeFont() error {
	if c, ok := t.face.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
