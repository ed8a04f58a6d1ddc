package vt

import (
	"inkterm/ink/color"
	"inkterm/ink/geom"
	"inkterm/ink/matrix"
	"inkterm/internal/logging"
)

func (t *Terminal) csiByte(b byte) {
	switch {
	case b >= '0' && b <= '9':
		t.cur = t.cur*10 + int(b-'0')
		if t.cur > 1<<16 {
			t.cur = 1 << 16
		}
		t.hasCur = true
	case b == ';' || b == ':':
		t.pushParam()
	case b >= '<' && b <= '?':
		if len(t.params) > 0 || t.hasCur || t.private != 0 {
			t.st = stCSIIgnore
			return
		}
		t.private = b
	case b >= 0x20 && b <= 0x2F:
		t.inter = b
	case b >= 0x40 && b < 0x7F:
		t.pushParam()
		t.st = stGround
		t.csi(b)
	default:
		t.st = stCSIIgnore
	}
}

// pushParam ends the current parameter. Omitted parameters are -1.
func (t *Terminal) pushParam() {
	v := -1
	if t.hasCur {
		v = t.cur
	}
	if len(t.params) < maxParams {
		t.params = append(t.params, v)
	}
	t.cur, t.hasCur = 0, false
}

// param returns parameter i, or def when it is missing or zero.
func (t *Terminal) param(i, def int) int {
	if i >= len(t.params) || t.params[i] <= 0 {
		return def
	}
	return t.params[i]
}

func (t *Terminal) csi(final byte) {
	if t.inter != 0 {
		logging.Logger().Debug("vt: unhandled csi", "inter", string(rune(t.inter)), "final", string(rune(final)))
		return
	}
	switch t.private {
	case '?':
		switch final {
		case 'h':
			t.decset(true)
		case 'l':
			t.decset(false)
		}
		return
	case '>':
		if final == 'c' {
			t.reply("\x1b[>0;0;0c")
		}
		return
	case 0:
	default:
		return
	}

	p := t.pos()
	n := t.param(0, 1)
	switch final {
	case 'A':
		t.moveTo(max(p.Y-n, t.upperLimit(p.Y)), p.X)
	case 'B', 'e':
		t.moveTo(min(p.Y+n, t.lowerLimit(p.Y)), p.X)
	case 'C', 'a':
		t.moveTo(p.Y, p.X+n)
	case 'D':
		t.moveTo(p.Y, p.X-n)
	case 'E':
		t.moveTo(min(p.Y+n, t.lowerLimit(p.Y)), 1)
	case 'F':
		t.moveTo(max(p.Y-n, t.upperLimit(p.Y)), 1)
	case 'G', '`':
		t.moveTo(p.Y, n)
	case 'H', 'f':
		t.cup(t.param(0, 1), t.param(1, 1))
	case 'd':
		t.cup(n, p.X)
	case 'I':
		t.tab(n)
	case 'Z':
		t.tab(-n)
	case 'J':
		t.eraseDisplay(t.param(0, 0))
	case 'K':
		t.eraseLine(t.param(0, 0))
	case 'X':
		t.m.Fill(0, t.blankStyle(), p, geom.Pt(min(p.X+n-1, t.cols), p.Y))
		t.pendingWrap = false
	case 'L':
		if p.Y >= t.top && p.Y <= t.bottom {
			t.scroll(geom.R(1, p.Y, t.cols, t.bottom), -n, 0)
			t.moveTo(p.Y, 1)
		}
	case 'M':
		if p.Y >= t.top && p.Y <= t.bottom {
			t.scroll(geom.R(1, p.Y, t.cols, t.bottom), n, 0)
			t.moveTo(p.Y, 1)
		}
	case '@':
		t.scroll(geom.R(p.X, p.Y, t.cols, p.Y), 0, -n)
		t.pendingWrap = false
	case 'P':
		t.scroll(geom.R(p.X, p.Y, t.cols, p.Y), 0, n)
		t.pendingWrap = false
	case 'S':
		t.scroll(t.region(), n, 0)
	case 'T':
		t.scroll(t.region(), -n, 0)
	case 'r':
		top, bottom := t.param(0, 1), t.param(1, t.rows)
		if bottom > t.rows {
			bottom = t.rows
		}
		if top < bottom {
			t.top, t.bottom = top, bottom
			t.cup(1, 1)
		}
	case 'm':
		t.sgr()
	case 'h', 'l':
		for i := range t.params {
			if t.params[i] == 4 {
				t.insert = final == 'h'
			}
		}
	case 'n':
		switch t.param(0, 0) {
		case 5:
			t.reply("\x1b[0n")
		case 6:
			row := p.Y
			if t.originMode {
				row -= t.top - 1
			}
			t.reply("\x1b[%d;%dR", row, p.X)
		}
	case 'c':
		if t.param(0, 0) == 0 {
			t.reply("\x1b[?6c")
		}
	case 'g':
		switch t.param(0, 0) {
		case 0:
			if p.X >= 1 && p.X <= t.cols {
				t.tabs[p.X-1] = false
			}
		case 3:
			clear(t.tabs)
		}
	case 's':
		t.saveCursor(&t.saved)
	case 'u':
		t.restoreCursor(&t.saved)
	default:
		logging.Logger().Debug("vt: unhandled csi", "final", string(rune(final)), "params", t.params)
	}
}

// cup moves to (row, col), relative to the scroll region in origin mode.
func (t *Terminal) cup(row, col int) {
	if t.originMode {
		row = min(row+t.top-1, t.bottom)
	}
	t.moveTo(row, col)
}

// Vertical movement stops at the margins when starting inside them.
func (t *Terminal) upperLimit(row int) int {
	if row >= t.top {
		return t.top
	}
	return 1
}

func (t *Terminal) lowerLimit(row int) int {
	if row <= t.bottom {
		return t.bottom
	}
	return t.rows
}

func (t *Terminal) eraseDisplay(mode int) {
	p := t.pos()
	end := geom.Pt(t.cols, t.rows)
	switch mode {
	case 0:
		t.m.Fill(0, t.blankStyle(), p, end)
	case 1:
		t.m.Fill(0, t.blankStyle(), geom.Pt(1, 1), p)
	case 2, 3:
		t.m.Fill(0, t.blankStyle(), geom.Pt(1, 1), end)
	}
	t.pendingWrap = false
}

func (t *Terminal) eraseLine(mode int) {
	p := t.pos()
	switch mode {
	case 0:
		t.m.Fill(0, t.blankStyle(), p, geom.Pt(t.cols, p.Y))
	case 1:
		t.m.Fill(0, t.blankStyle(), geom.Pt(1, p.Y), p)
	case 2:
		t.m.Fill(0, t.blankStyle(), geom.Pt(1, p.Y), geom.Pt(t.cols, p.Y))
	}
	t.pendingWrap = false
}

func (t *Terminal) decset(on bool) {
	for _, mode := range t.params {
		switch mode {
		case 1:
			t.appCursor = on
		case 6:
			t.originMode = on
			t.cup(1, 1)
		case 7:
			t.autowrap = on
			if !on {
				t.pendingWrap = false
			}
		case 25:
			t.m.SetCursorVisible(on)
		case 47, 1047:
			t.altScreen(on, mode == 1047)
		case 1049:
			if on {
				t.saveCursor(&t.altSaved)
				t.altScreen(true, true)
			} else {
				t.altScreen(false, false)
				t.restoreCursor(&t.altSaved)
			}
		default:
			logging.Logger().Debug("vt: unhandled mode", "mode", mode, "set", on)
		}
	}
}

func (t *Terminal) altScreen(on, clearAlt bool) {
	if on == t.m.AlternativeBufferActive() {
		return
	}
	t.m.SetAlternativeBufferActive(on)
	if on && clearAlt {
		t.m.Fill(0, t.blankStyle(), geom.Pt(1, 1), geom.Pt(t.cols, t.rows))
	}
	t.hasLast = false
}

func (t *Terminal) sgr() {
	if len(t.params) == 0 {
		t.params = append(t.params, 0)
	}
	for i := 0; i < len(t.params); i++ {
		v := max(t.params[i], 0)
		switch {
		case v == 0:
			t.pen = matrix.DefaultStyle()
		case v == 1:
			t.pen.Bold = true
		case v == 3:
			t.pen.Italic = true
		case v == 4:
			t.pen.Underline = 1
		case v == 7:
			t.pen.Inverse = true
		case v == 8:
			t.pen.Concealed = true
		case v == 9:
			t.pen.Strikethrough = true
		case v == 21:
			t.pen.Underline = 2
		case v == 22:
			t.pen.Bold = false
		case v == 23:
			t.pen.Italic = false
		case v == 24:
			t.pen.Underline = 0
		case v == 27:
			t.pen.Inverse = false
		case v == 28:
			t.pen.Concealed = false
		case v == 29:
			t.pen.Strikethrough = false
		case v >= 30 && v <= 37:
			t.pen.FG, t.pen.DefaultFG = color.Indexed(v-30), false
		case v == 38:
			if c, n, ok := t.extColor(i + 1); ok {
				t.pen.FG, t.pen.DefaultFG = c, false
				i += n
			} else {
				i = len(t.params)
			}
		case v == 39:
			t.pen.FG, t.pen.DefaultFG = color.Indexed(7), true
		case v >= 40 && v <= 47:
			t.pen.BG, t.pen.DefaultBG = color.Indexed(v-40), false
		case v == 48:
			if c, n, ok := t.extColor(i + 1); ok {
				t.pen.BG, t.pen.DefaultBG = c, false
				i += n
			} else {
				i = len(t.params)
			}
		case v == 49:
			t.pen.BG, t.pen.DefaultBG = color.Indexed(0), true
		case v >= 90 && v <= 97:
			t.pen.FG, t.pen.DefaultFG = color.Indexed(v-90+8), false
		case v >= 100 && v <= 107:
			t.pen.BG, t.pen.DefaultBG = color.Indexed(v-100+8), false
		}
	}
}

// extColor parses "5;n" or "2;r;g;b" starting at i and returns the number
// of parameters consumed.
func (t *Terminal) extColor(i int) (color.Color, int, bool) {
	if i >= len(t.params) {
		return color.Color{}, 0, false
	}
	switch t.params[i] {
	case 5:
		if i+1 >= len(t.params) {
			return color.Color{}, 0, false
		}
		return color.Indexed(clamp8(t.params[i+1])), 2, true
	case 2:
		if i+3 >= len(t.params) {
			return color.Color{}, 0, false
		}
		c := color.RGBA{
			R: uint8(clamp8(t.params[i+1])),
			G: uint8(clamp8(t.params[i+2])),
			B: uint8(clamp8(t.params[i+3])),
			A: 255,
		}
		return color.Direct(c), 4, true
	}
	return color.Color{}, 0, false
}

func clamp8(v int) int { return min(max(v, 0), 255) }
