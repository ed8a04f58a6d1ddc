//go:build !tinygo && cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"inkterm/ink/vt"
)

// Key repeat, in ticks.
const (
	repeatDelay    = 30
	repeatInterval = 3
)

// Numpad digits and operators arrive as text through AppendInputChars.
var ebitenKeys = []struct {
	key ebiten.Key
	vt  vt.Key
}{
	{ebiten.KeyEnter, vt.KeyEnter},
	{ebiten.KeyNumpadEnter, vt.KeyKPEnter},
	{ebiten.KeyTab, vt.KeyTab},
	{ebiten.KeyBackspace, vt.KeyBackspace},
	{ebiten.KeyEscape, vt.KeyEscape},
	{ebiten.KeyArrowUp, vt.KeyUp},
	{ebiten.KeyArrowDown, vt.KeyDown},
	{ebiten.KeyArrowLeft, vt.KeyLeft},
	{ebiten.KeyArrowRight, vt.KeyRight},
	{ebiten.KeyInsert, vt.KeyInsert},
	{ebiten.KeyDelete, vt.KeyDelete},
	{ebiten.KeyHome, vt.KeyHome},
	{ebiten.KeyEnd, vt.KeyEnd},
	{ebiten.KeyPageUp, vt.KeyPageUp},
	{ebiten.KeyPageDown, vt.KeyPageDown},
	{ebiten.KeyF1, vt.KeyF1},
	{ebiten.KeyF2, vt.KeyF2},
	{ebiten.KeyF3, vt.KeyF3},
	{ebiten.KeyF4, vt.KeyF4},
	{ebiten.KeyF5, vt.KeyF5},
	{ebiten.KeyF6, vt.KeyF6},
	{ebiten.KeyF7, vt.KeyF7},
	{ebiten.KeyF8, vt.KeyF8},
	{ebiten.KeyF9, vt.KeyF9},
	{ebiten.KeyF10, vt.KeyF10},
	{ebiten.KeyF11, vt.KeyF11},
	{ebiten.KeyF12, vt.KeyF12},
}

type hostKeyboard struct {
	ch chan<- vt.KeyEvent
}

func newHostKeyboard(ch chan<- vt.KeyEvent) *hostKeyboard {
	return &hostKeyboard{ch: ch}
}

// pressed reports a fresh press or an auto-repeat tick of a held key.
func pressed(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	return d == 1 || (d > repeatDelay && (d-repeatDelay)%repeatInterval == 0)
}

func (k *hostKeyboard) poll() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl)
	alt := ebiten.IsKeyPressed(ebiten.KeyAlt)
	shift := ebiten.IsKeyPressed(ebiten.KeyShift)

	for _, m := range ebitenKeys {
		if pressed(m.key) {
			sendKey(k.ch, vt.KeyEvent{Key: m.vt, Shift: shift, Ctrl: ctrl, Alt: alt})
		}
	}

	// Text input is not reported while Ctrl or Alt is held, so letters and
	// digits are read from the key state instead.
	if ctrl || alt {
		for key := ebiten.KeyA; key <= ebiten.KeyZ; key++ {
			if pressed(key) {
				sendKey(k.ch, vt.KeyEvent{Rune: 'a' + rune(key-ebiten.KeyA), Shift: shift, Ctrl: ctrl, Alt: alt})
			}
		}
		for key := ebiten.KeyDigit0; key <= ebiten.KeyDigit9; key++ {
			if pressed(key) {
				sendKey(k.ch, vt.KeyEvent{Rune: '0' + rune(key-ebiten.KeyDigit0), Ctrl: ctrl, Alt: alt})
			}
		}
		for _, p := range []struct {
			key ebiten.Key
			r   rune
		}{{ebiten.KeySpace, ' '}, {ebiten.KeyBracketLeft, '['}, {ebiten.KeyBackslash, '\\'}, {ebiten.KeyBracketRight, ']'}, {ebiten.KeyMinus, '-'}} {
			if pressed(p.key) {
				sendKey(k.ch, vt.KeyEvent{Rune: p.r, Ctrl: ctrl, Alt: alt})
			}
		}
		return
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		sendKey(k.ch, vt.KeyEvent{Rune: r})
	}
}
