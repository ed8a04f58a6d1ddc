package font

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"inkterm/internal/logging"
)

// Runes from several scripts used to size the monospace cell.
var probeRunes = []rune{
	'[', ']', '(', ')', 'A', 'O', 'j', 'l', 'w', 'y',
	0x0391, 0x0398, 0x03B1, 0x03B2, 0x03B6, 0x03C1, // Greek
	0x0410, 0x0424, 0x0428, 0x0416, 0x044B, 0x0430, 0x0443, 0x0457, // Cyrillic
	0x05D0, 0x05DC, 0x05E9, 0x05E5, // Hebrew
	0x2588, // full block
}

// Metrics are probed at this size and scaled linearly.
const probeSize = 512

var ErrNoProbeGlyphs = errors.New("font: face has none of the probe glyphs")

// OpenType renders glyphs from a TrueType or OpenType font.
type OpenType struct {
	font  *opentype.Font
	dpi   float64
	buf   sfnt.Buffer
	faces map[int]xfont.Face

	// cell metrics in 26.6 fixed point at probeSize
	probe Metrics
}

// DefaultOpenType returns the built-in Go Mono face.
func DefaultOpenType(dpi int) (*OpenType, error) {
	return ParseOpenType(gomono.TTF, dpi)
}

// LoadOpenType reads a font file from disk.
func LoadOpenType(path string, dpi int) (*OpenType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("font: read %s: %w", path, err)
	}
	ot, err := ParseOpenType(data, dpi)
	if err != nil {
		return nil, fmt.Errorf("font: %s: %w", path, err)
	}
	return ot, nil
}

func ParseOpenType(data []byte, dpi int) (*OpenType, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("font: invalid dpi: %d", dpi)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("font: parse: %w", err)
	}
	ot := &OpenType{font: f, dpi: float64(dpi), faces: make(map[int]xfont.Face)}
	if err := ot.measure(); err != nil {
		return nil, err
	}
	m := ot.Metrics(640)
	logging.Logger().Debug("font: opentype loaded", "glyphs", f.NumGlyphs(), "cell_10pt", fmt.Sprintf("%dx%d", m.CellWidth, m.CellHeight))
	return ot, nil
}

func (ot *OpenType) measure() error {
	face, err := opentype.NewFace(ot.font, &opentype.FaceOptions{
		Size:    probeSize,
		DPI:     ot.dpi,
		Hinting: xfont.HintingNone,
	})
	if err != nil {
		return fmt.Errorf("font: probe face: %w", err)
	}
	defer face.Close()

	x0, y0 := math.MaxInt32, math.MaxInt32
	x1, y1, originY := math.MinInt32, math.MinInt32, math.MinInt32
	found := false
	for _, r := range probeRunes {
		if !ot.has(r) {
			continue
		}
		b, adv, ok := face.GlyphBounds(r)
		if !ok {
			continue
		}
		found = true
		x0 = min(x0, int(b.Min.X))
		x1 = max(x1, int(adv))
		y0 = min(y0, int(b.Min.Y))
		y1 = max(y1, int(b.Max.Y))
		originY = max(originY, int(-b.Min.Y))
	}
	if !found {
		return ErrNoProbeGlyphs
	}
	ot.probe = Metrics{CellWidth: x1 - x0, CellHeight: y1 - y0, OriginY: originY}
	return nil
}

func (ot *OpenType) has(r rune) bool {
	idx, err := ot.font.GlyphIndex(&ot.buf, r)
	return err == nil && idx != 0
}

// Metrics scales the probed cell to size.
func (ot *OpenType) Metrics(size int) Metrics {
	const den = probeSize * 64 * 64
	return Metrics{
		CellWidth:  ot.probe.CellWidth * size / den,
		CellHeight: ot.probe.CellHeight * size / den,
		OriginY:    ot.probe.OriginY * size / den,
	}
}

func (ot *OpenType) face(size int) (xfont.Face, error) {
	if f, ok := ot.faces[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(ot.font, &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     ot.dpi,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	ot.faces[size] = f
	return f, nil
}

// Render rasterizes glyph. With mono set coverage is thresholded to 0 or 255.
func (ot *OpenType) Render(glyph rune, size int, mono bool, orientation int) *Bitmap {
	if size <= 0 || !ot.has(glyph) {
		return nil
	}
	face, err := ot.face(size)
	if err != nil {
		logging.Logger().Warn("font: face", "size", size, "err", err)
		return nil
	}
	dr, mask, maskp, _, ok := face.Glyph(fixed.Point26_6{}, glyph)
	if !ok {
		return nil
	}

	w, h := dr.Dx(), dr.Dy()
	cov := image.NewAlpha(image.Rect(0, 0, w, h))
	draw.Draw(cov, cov.Bounds(), mask, maskp, draw.Src)
	if mono {
		for i, a := range cov.Pix {
			if a >= 128 {
				cov.Pix[i] = 0xFF
			} else {
				cov.Pix[i] = 0
			}
		}
	}

	// dr is relative to the pen position on the baseline.
	left, top := dr.Min.X, -dr.Min.Y
	m := ot.Metrics(size)
	o := quarter(orientation)
	var x, y int
	switch o {
	case 0:
		x, y = left, m.OriginY-top
	case 1:
		x, y = m.OriginY-top, m.CellWidth-left-w
	case 2:
		x, y = m.CellWidth-left-w, top-m.OriginY+(m.CellHeight-h)
	case 3:
		x, y = top-m.OriginY+(m.CellHeight-h), left
	}
	return rotate(cov.Pix, cov.Stride, w, h, x, y, o)
}

// Close releases the per-size faces.
func (ot *OpenType) Close() error {
	for size, f := range ot.faces {
		f.Close()
		delete(ot.faces, size)
	}
	return nil
}
