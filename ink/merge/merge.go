// Package merge coalesces damaged rectangles into few device updates.
package merge

import "inkterm/ink/geom"

// Ratio is the minimum share of a merged rect that must be covered by the two
// rects it replaces. Lower values trade wasted redraw area for fewer updates.
const Ratio = 0.75

// Merger greedily accumulates rectangles. The zero value is ready to use.
type Merger struct {
	rects []geom.Rect
}

// Acceptable reports whether r and s may be replaced by their union.
func Acceptable(r, s geom.Rect) bool {
	u := r.Grow(s)
	// area(r)+area(s) >= 0.75*area(u), in integers.
	return 4*(r.Area()+s.Area()) >= 3*u.Area()
}

func (m *Merger) Reset() { m.rects = m.rects[:0] }

func (m *Merger) Len() int { return len(m.rects) }

// Rects returns the held rects. The slice is valid until the next mutation.
func (m *Merger) Rects() []geom.Rect { return m.rects }

// Insert merges r into the most recent compatible rect, or appends it.
// Empty rects are dropped.
func (m *Merger) Insert(r geom.Rect) {
	if r.Empty() {
		return
	}
	for i := len(m.rects) - 1; i >= 0; i-- {
		if Acceptable(r, m.rects[i]) {
			m.rects[i] = r.Grow(m.rects[i])
			return
		}
	}
	m.rects = append(m.rects, r)
}

// Merge repeats pairwise passes until no two held rects can be merged.
func (m *Merger) Merge() {
	for {
		merged := false
		for i := len(m.rects) - 1; i > 0; i-- {
			for j := i - 1; j >= 0; j-- {
				if !Acceptable(m.rects[i], m.rects[j]) {
					continue
				}
				m.rects[j] = m.rects[j].Grow(m.rects[i])
				m.rects = append(m.rects[:i], m.rects[i+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			return
		}
	}
}
