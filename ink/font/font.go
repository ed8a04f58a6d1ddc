// Package font provides glyph sources for the cell renderer: scalable
// OpenType faces, fixed bitmap faces and an LRU cache in front of either.
//
// Sizes are given in 1/64 pt. Orientation counts quarter turns counter
// clockwise; a rotated glyph is returned already rotated, with its offsets
// relative to the top-left corner of the rotated cell.
package font

// Bitmap is an 8-bit coverage mask placed at (X, Y) relative to the cell
// origin. Buf holds H rows of Stride bytes.
type Bitmap struct {
	X, Y   int
	W, H   int
	Stride int
	Buf    []byte
}

// Metrics describes the monospace cell of a face in pixels. OriginY is the
// baseline position measured from the top of the cell.
type Metrics struct {
	CellWidth  int
	CellHeight int
	OriginY    int
}

// Source renders glyphs. Render returns nil if the face has no glyph for the
// rune. Implementations need not be safe for concurrent use.
type Source interface {
	Render(glyph rune, size int, mono bool, orientation int) *Bitmap
	Metrics(size int) Metrics
}

// stride alignment in bytes
const strideAlign = 16

func alignStride(w int) int { return (w + strideAlign - 1) / strideAlign * strideAlign }

func quarter(orientation int) int { return ((orientation % 4) + 4) % 4 }

// copyRotated copies a srcW x srcH mask into dst, turning it by the given
// number of quarter turns counter clockwise.
func copyRotated(src []byte, srcStride, srcW, srcH int, dst []byte, dstStride, orientation int) {
	switch quarter(orientation) {
	case 0:
		for j := 0; j < srcH; j++ {
			copy(dst[j*dstStride:j*dstStride+srcW], src[j*srcStride:j*srcStride+srcW])
		}
	case 1:
		for j := 0; j < srcH; j++ {
			row := src[j*srcStride:]
			for i := 0; i < srcW; i++ {
				dst[dstStride*(srcW-1-i)+j] = row[i]
			}
		}
	case 2:
		for j := 0; j < srcH; j++ {
			row := src[j*srcStride:]
			t := dst[(srcH-1-j)*dstStride:]
			for i := 0; i < srcW; i++ {
				t[srcW-1-i] = row[i]
			}
		}
	case 3:
		for j := 0; j < srcH; j++ {
			row := src[j*srcStride:]
			for i := 0; i < srcW; i++ {
				dst[dstStride*i+srcH-1-j] = row[i]
			}
		}
	}
}

// rotate builds a Bitmap from an upright coverage mask.
func rotate(src []byte, srcStride, srcW, srcH, x, y, orientation int) *Bitmap {
	w, h := srcW, srcH
	if orientation&1 == 1 {
		w, h = srcH, srcW
	}
	b := &Bitmap{X: x, Y: y, W: w, H: h, Stride: alignStride(w)}
	b.Buf = make([]byte, b.Stride*h)
	copyRotated(src, srcStride, srcW, srcH, b.Buf, b.Stride, orientation)
	return b
}
