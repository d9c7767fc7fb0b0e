// Package geometry holds the small set of 2D tests the arena sensors need.
package geometry

import "math"

// Line is a segment from (X1,Y1) to (X2,Y2).
type Line struct {
	X1, Y1 float64
	X2, Y2 float64
}

// NewLine creates a segment between two points
func NewLine(x1, y1, x2, y2 float64) Line {
	return Line{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Ray builds a segment of the given length starting at (x, y) and pointing
// at angleDeg degrees (0 = +x).
func Ray(x, y, angleDeg, length float64) Line {
	rad := Radians(angleDeg)
	return Line{X1: x, Y1: y, X2: x + length*math.Cos(rad), Y2: y + length*math.Sin(rad)}
}

// Coords returns the endpoints as x1, y1, x2, y2
func (l Line) Coords() [4]float64 {
	return [4]float64{l.X1, l.Y1, l.X2, l.Y2}
}

// Length returns the segment length
func (l Line) Length() float64 {
	return math.Hypot(l.X2-l.X1, l.Y2-l.Y1)
}

// orientation of the triplet (p, q, r): 0 collinear, 1 clockwise, 2 counter-clockwise.
func orientation(px, py, qx, qy, rx, ry float64) int {
	v := (qy-py)*(rx-qx) - (qx-px)*(ry-qy)
	switch {
	case v > 0:
		return 1
	case v < 0:
		return 2
	default:
		return 0
	}
}

// Intersects reports whether two segments cross.
// Parallel and collinear segments never report an intersection.
func (l Line) Intersects(o Line) bool {
	o1 := orientation(l.X1, l.Y1, l.X2, l.Y2, o.X1, o.Y1)
	o2 := orientation(l.X1, l.Y1, l.X2, l.Y2, o.X2, o.Y2)
	o3 := orientation(o.X1, o.Y1, o.X2, o.Y2, l.X1, l.Y1)
	o4 := orientation(o.X1, o.Y1, o.X2, o.Y2, l.X2, l.Y2)

	if o1 == 0 && o2 == 0 {
		return false
	}
	if o3 == 0 && o4 == 0 {
		return false
	}

	// Touching at an endpoint counts: a zero orientation on one side is a hit
	// as long as the other pair straddles.
	return o1 != o2 && o3 != o4
}

// closest returns the point of the segment nearest to (px, py).
func (l Line) closest(px, py float64) (float64, float64) {
	dx := l.X2 - l.X1
	dy := l.Y2 - l.Y1
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return l.X1, l.Y1
	}
	t := ((px-l.X1)*dx + (py-l.Y1)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return l.X1 + t*dx, l.Y1 + t*dy
}

// DistanceFrom returns the minimum distance from (px, py) to the segment.
// A zero-length segment behaves as a single point.
func (l Line) DistanceFrom(px, py float64) float64 {
	cx, cy := l.closest(px, py)
	return math.Hypot(px-cx, py-cy)
}

// IntersectsCircle reports whether the segment passes strictly within radius r
// of (cx, cy).
func (l Line) IntersectsCircle(cx, cy, r float64) bool {
	x, y := l.closest(cx, cy)
	dx := cx - x
	dy := cy - y
	return dx*dx+dy*dy < r*r
}

// CirclesOverlap is the strict circle overlap test: d² < (r1+r2)².
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	sum := r1 + r2
	return dx*dx+dy*dy < sum*sum
}

// Radians converts degrees to radians
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Degrees converts radians to degrees
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
