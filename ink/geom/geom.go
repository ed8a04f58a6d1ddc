// Package geom provides the integer points and half-open rectangles used for
// pixel surfaces and cell grids.
package geom

import "math"

// Point is a 2D integer coordinate.
type Point struct {
	X, Y int
}

func Pt(x, y int) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rect is the box [X0,X1) x [Y0,Y1).
//
// A rect with X0 > X1 or Y0 > Y1 is invalid. The canonical invalid rect from
// Invalid uses numeric extremes, so growing it by any other rect yields that
// other rect.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// Invalid returns the empty sentinel rect.
func Invalid() Rect {
	return Rect{X0: math.MaxInt32, Y0: math.MaxInt32, X1: math.MinInt32, Y1: math.MinInt32}
}

func R(x0, y0, x1, y1 int) Rect { return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1} }

// Sized returns the rect with top-left corner (x, y) and the given size.
func Sized(x, y, w, h int) Rect { return Rect{X0: x, Y0: y, X1: x + w, Y1: y + h} }

func (r Rect) Valid() bool { return r.X0 <= r.X1 && r.Y0 <= r.Y1 }

// Empty reports whether r covers no pixel.
func (r Rect) Empty() bool { return r.X0 >= r.X1 || r.Y0 >= r.Y1 }

func (r Rect) Width() int  { return r.X1 - r.X0 }
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Area is zero for invalid and empty rects.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Grow returns the bounding box of r and s.
func (r Rect) Grow(s Rect) Rect {
	return Rect{
		X0: min(r.X0, s.X0),
		Y0: min(r.Y0, s.Y0),
		X1: max(r.X1, s.X1),
		Y1: max(r.Y1, s.Y1),
	}
}

// GrowPoint extends r so that p lies on or inside its trailing edge. Used for
// inclusive bounds such as the update region of a cell grid.
func (r Rect) GrowPoint(p Point) Rect {
	return Rect{
		X0: min(r.X0, p.X),
		Y0: min(r.Y0, p.Y),
		X1: max(r.X1, p.X),
		Y1: max(r.Y1, p.Y),
	}
}

// ClipX clamps x into r. Without border the trailing edge maps to X1-1,
// otherwise to X1.
func (r Rect) ClipX(x int, border bool) int {
	if x < r.X0 {
		return r.X0
	}
	if border {
		if x > r.X1 {
			return r.X1
		}
		return x
	}
	if x >= r.X1 {
		return r.X1 - 1
	}
	return x
}

func (r Rect) ClipY(y int, border bool) int {
	if y < r.Y0 {
		return r.Y0
	}
	if border {
		if y > r.Y1 {
			return r.Y1
		}
		return y
	}
	if y >= r.Y1 {
		return r.Y1 - 1
	}
	return y
}

func (r Rect) ClipPoint(p Point, border bool) Point {
	return Point{X: r.ClipX(p.X, border), Y: r.ClipY(p.Y, border)}
}

// Clip intersects s with r. The result never inverts: a rect entirely outside
// r collapses onto r's border with zero width or height.
func (r Rect) Clip(s Rect) Rect {
	c := Rect{
		X0: r.ClipX(s.X0, true),
		Y0: r.ClipY(s.Y0, true),
		X1: r.ClipX(s.X1, true),
		Y1: r.ClipY(s.Y1, true),
	}
	if c.X1 < c.X0 {
		c.X1 = c.X0
	}
	if c.Y1 < c.Y0 {
		c.Y1 = c.Y0
	}
	return c
}

func (r Rect) Translate(p Point) Rect {
	return Rect{X0: r.X0 + p.X, Y0: r.Y0 + p.Y, X1: r.X1 + p.X, Y1: r.Y1 + p.Y}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X < r.X1 && p.Y >= r.Y0 && p.Y < r.Y1
}

func (r Rect) Origin() Point { return Point{X: r.X0, Y: r.Y0} }
