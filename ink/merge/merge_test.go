package merge

import (
	"testing"

	"inkterm/ink/geom"
)

func TestInsertMergesAdjacent(t *testing.T) {
	var m Merger
	m.Insert(geom.R(0, 0, 10, 10))
	m.Insert(geom.R(10, 0, 20, 10))
	if m.Len() != 1 {
		t.Fatalf("len=%d want 1", m.Len())
	}
	if m.Rects()[0] != geom.R(0, 0, 20, 10) {
		t.Fatalf("merged=%v", m.Rects()[0])
	}
}

func TestInsertMergesWithinRatio(t *testing.T) {
	// Overlapping pair: 170 units of area inside a 120 unit union.
	var m Merger
	m.Insert(geom.R(0, 0, 10, 10))
	m.Insert(geom.R(0, 5, 10, 12))
	if m.Len() != 1 {
		t.Fatalf("len=%d want 1", m.Len())
	}
}

func TestFarApartStaySeparate(t *testing.T) {
	var m Merger
	m.Insert(geom.R(0, 0, 10, 10))
	m.Insert(geom.R(100, 100, 110, 110))
	m.Merge()
	if m.Len() != 2 {
		t.Fatalf("len=%d want 2", m.Len())
	}
}

func TestMergeConverges(t *testing.T) {
	var m Merger
	// Two far rects, then a bridge that only fits once they are combined.
	m.Insert(geom.R(0, 0, 10, 10))
	m.Insert(geom.R(20, 0, 30, 10))
	m.Insert(geom.R(40, 0, 50, 10))
	if m.Len() != 3 {
		t.Fatalf("len=%d want 3 before bridging", m.Len())
	}
	m.Insert(geom.R(10, 0, 20, 10))
	m.Insert(geom.R(30, 0, 40, 10))
	m.Merge()
	if m.Len() != 1 {
		t.Fatalf("len=%d want 1: %v", m.Len(), m.Rects())
	}
	if m.Rects()[0] != geom.R(0, 0, 50, 10) {
		t.Fatalf("merged=%v", m.Rects()[0])
	}
}

func TestMergeIsStable(t *testing.T) {
	var m Merger
	for i := 0; i < 5; i++ {
		m.Insert(geom.Sized(i*100, 0, 8, 16))
	}
	m.Merge()
	n := m.Len()
	m.Merge()
	if m.Len() != n {
		t.Fatalf("second Merge changed len %d -> %d", n, m.Len())
	}
}

func TestEmptyIgnoredAndReset(t *testing.T) {
	var m Merger
	m.Insert(geom.Invalid())
	m.Insert(geom.R(3, 3, 3, 9))
	if m.Len() != 0 {
		t.Fatalf("len=%d want 0", m.Len())
	}
	m.Insert(geom.R(0, 0, 1, 1))
	m.Reset()
	if m.Len() != 0 {
		t.Fatal("Reset should drop rects")
	}
}

func TestAcceptable(t *testing.T) {
	a := geom.R(0, 0, 3, 1)
	if !Acceptable(a, geom.R(4, 0, 7, 1)) {
		t.Fatal("6/7 coverage should merge")
	}
	if Acceptable(a, geom.R(6, 0, 9, 1)) {
		t.Fatal("6/9 coverage should not merge")
	}
}
