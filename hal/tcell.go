//go:build !tinygo

package hal

import (
	stdcolor "image/color"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"

	"inkterm/ink/color"
	"inkterm/ink/display"
	"inkterm/ink/geom"
	"inkterm/ink/vt"
	"inkterm/internal/logging"
)

const upperHalfBlock = '▀'

// TcellConfig controls the text-terminal preview.
type TcellConfig struct {
	// Scale is the edge length of the pixel block shown by half a cell.
	Scale         int
	EmulateEPaper bool
	// Bell defaults to the terminal bell.
	Bell Bell
}

// TcellDevice previews the display inside a text terminal. Every cell
// shows two vertically stacked blocks of Scale x Scale pixels through the
// upper half block glyph.
type TcellDevice struct {
	screen  tcell.Screen
	profile termenv.Profile
	scale   int
	bell    Bell
	fb      *Framebuffer
	keys    chan vt.KeyEvent
	done    chan struct{}

	mu     sync.Mutex
	colors map[color.RGBA]tcell.Color
}

// NewTcellDevice takes over the controlling terminal.
func NewTcellDevice(cfg TcellConfig) (*TcellDevice, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return newTcellDevice(s, termenv.EnvColorProfile(), cfg), nil
}

// newTcellDevice wraps an initialised screen.
func newTcellDevice(s tcell.Screen, profile termenv.Profile, cfg TcellConfig) *TcellDevice {
	if cfg.Scale <= 0 {
		cfg.Scale = 4
	}
	d := &TcellDevice{
		screen:  s,
		profile: profile,
		scale:   cfg.Scale,
		bell:    cfg.Bell,
		keys:    make(chan vt.KeyEvent, 64),
		done:    make(chan struct{}),
		colors:  make(map[color.RGBA]tcell.Color),
	}
	if d.bell == nil {
		d.bell = tcellBell{s}
	}
	s.HideCursor()
	cols, rows := s.Size()
	d.fb = NewFramebuffer(cols*d.scale, rows*2*d.scale, color.RGBA8888, cfg.EmulateEPaper)
	logging.Logger().Info("tcell: screen", "cols", cols, "rows", rows, "profile", profile)
	go d.pollEvents()
	return d
}

type tcellBell struct{ s tcell.Screen }

func (b tcellBell) Ring() { _ = b.s.Beep() }

func (d *TcellDevice) pollEvents() {
	defer close(d.done)
	for {
		switch ev := d.screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			cols, rows := ev.Size()
			d.fb.Resize(cols*d.scale, rows*2*d.scale)
			d.screen.Sync()
			logging.Logger().Debug("tcell: resize", "cols", cols, "rows", rows)
		case *tcell.EventKey:
			if k, ok := tcellKey(ev); ok {
				sendKey(d.keys, k)
			}
		}
	}
}

func (d *TcellDevice) Bounds() geom.Rect { return d.fb.Bounds() }

func (d *TcellDevice) Flush(reqs []display.CommitRequest, composite []color.RGBA, stride int) error {
	if err := d.fb.Flush(reqs, composite, stride); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cols, rows := d.screen.Size()
	cellH := 2 * d.scale
	for _, req := range reqs {
		r := req.Rect
		if r.Empty() {
			continue
		}
		cx0, cy0 := max(r.X0/d.scale, 0), max(r.Y0/cellH, 0)
		cx1 := min((r.X1+d.scale-1)/d.scale, cols)
		cy1 := min((r.Y1+cellH-1)/cellH, rows)
		for cy := cy0; cy < cy1; cy++ {
			for cx := cx0; cx < cx1; cx++ {
				top := d.fb.mean(cx*d.scale, cy*cellH, d.scale, d.scale)
				bottom := d.fb.mean(cx*d.scale, cy*cellH+d.scale, d.scale, d.scale)
				st := tcell.StyleDefault.Foreground(d.color(top)).Background(d.color(bottom))
				d.screen.SetContent(cx, cy, upperHalfBlock, nil, st)
			}
		}
	}
	d.screen.Show()
	return nil
}

// color maps c into the terminal's colour profile.
func (d *TcellDevice) color(c color.RGBA) tcell.Color {
	if tc, ok := d.colors[c]; ok {
		return tc
	}
	var tc tcell.Color
	switch v := d.profile.FromColor(stdcolor.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}).(type) {
	case termenv.ANSI256Color:
		tc = tcell.PaletteColor(int(v))
	case termenv.ANSIColor:
		tc = tcell.PaletteColor(int(v))
	case termenv.RGBColor:
		tc = tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
	default:
		tc = tcell.ColorBlack
		if int(c.R)+int(c.G)+int(c.B) >= 3*128 {
			tc = tcell.ColorWhite
		}
	}
	if len(d.colors) > 4096 {
		clear(d.colors)
	}
	d.colors[c] = tc
	return tc
}

func (d *TcellDevice) Keys() <-chan vt.KeyEvent { return d.keys }
func (d *TcellDevice) Bell()                    { d.bell.Ring() }

// Close gives the terminal back.
func (d *TcellDevice) Close() error {
	d.screen.Fini()
	<-d.done
	return nil
}

// mean averages the w x h block at (x, y), clipped to the buffer.
func (f *Framebuffer) mean(x, y, w, h int) color.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	var r, g, b, n int
	for yy := max(y, 0); yy < min(y+h, f.height); yy++ {
		for xx := max(x, 0); xx < min(x+w, f.width); xx++ {
			c := f.atLocked(xx, yy)
			r += int(c.R)
			g += int(c.G)
			b += int(c.B)
			n++
		}
	}
	if n == 0 {
		return color.Black
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 0xFF}
}

var tcellKeys = map[tcell.Key]vt.Key{
	tcell.KeyEnter:     vt.KeyEnter,
	tcell.KeyTab:       vt.KeyTab,
	tcell.KeyBackspace: vt.KeyBackspace,
	tcell.KeyDEL:       vt.KeyBackspace,
	tcell.KeyEscape:    vt.KeyEscape,
	tcell.KeyUp:        vt.KeyUp,
	tcell.KeyDown:      vt.KeyDown,
	tcell.KeyLeft:      vt.KeyLeft,
	tcell.KeyRight:     vt.KeyRight,
	tcell.KeyInsert:    vt.KeyInsert,
	tcell.KeyDelete:    vt.KeyDelete,
	tcell.KeyHome:      vt.KeyHome,
	tcell.KeyEnd:       vt.KeyEnd,
	tcell.KeyPgUp:      vt.KeyPageUp,
	tcell.KeyPgDn:      vt.KeyPageDown,
	tcell.KeyF1:        vt.KeyF1,
	tcell.KeyF2:        vt.KeyF2,
	tcell.KeyF3:        vt.KeyF3,
	tcell.KeyF4:        vt.KeyF4,
	tcell.KeyF5:        vt.KeyF5,
	tcell.KeyF6:        vt.KeyF6,
	tcell.KeyF7:        vt.KeyF7,
	tcell.KeyF8:        vt.KeyF8,
	tcell.KeyF9:        vt.KeyF9,
	tcell.KeyF10:       vt.KeyF10,
	tcell.KeyF11:       vt.KeyF11,
	tcell.KeyF12:       vt.KeyF12,
}

// tcellKey converts a tcell key event.
func tcellKey(ev *tcell.EventKey) (vt.KeyEvent, bool) {
	mod := ev.Modifiers()
	k := vt.KeyEvent{
		Shift: mod&tcell.ModShift != 0,
		Ctrl:  mod&tcell.ModCtrl != 0,
		Alt:   mod&tcell.ModAlt != 0,
	}
	key := ev.Key()
	switch {
	case key == tcell.KeyRune:
		k.Rune = ev.Rune()
		// Shift is already applied to the rune.
		k.Shift = false
		return k, true
	case key == tcell.KeyBacktab:
		k.Key, k.Shift = vt.KeyTab, true
		return k, true
	case key >= tcell.KeyCtrlSpace && key <= tcell.KeyCtrlUnderscore:
		k.Ctrl = true
		switch {
		case key == tcell.KeyCtrlSpace:
			k.Rune = ' '
		case key >= tcell.KeyCtrlA && key <= tcell.KeyCtrlZ:
			k.Rune = 'a' + rune(key-tcell.KeyCtrlA)
		default:
			k.Rune = rune(key)
		}
		return k, true
	}
	if vk, ok := tcellKeys[key]; ok {
		k.Key = vk
		return k, true
	}
	// Remaining C0 codes carry the letter as their rune.
	if key < 0x20 && ev.Rune() != 0 {
		k.Rune, k.Ctrl = ev.Rune(), true
		return k, true
	}
	return k, false
}
