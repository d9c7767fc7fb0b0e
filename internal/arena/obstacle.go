package arena

import (
	"fmt"
	"math"

	"robot-arena/internal/geometry"
)

// Obstacle is a fixed circle. It never changes after construction.
type Obstacle struct {
	X, Y   float64
	Radius float64
}

// Colliding is the strict circle overlap test against a robot circle
func (o Obstacle) Colliding(x, y, r float64) bool {
	return geometry.CirclesOverlap(o.X, o.Y, o.Radius, x, y, r)
}

// Contains reports whether a point lies inside the obstacle
func (o Obstacle) Contains(px, py float64) bool {
	return math.Hypot(o.X-px, o.Y-py) <= o.Radius
}

// String uses the persisted obstacle line format.
func (o Obstacle) String() string {
	return fmt.Sprintf("Obstacle at (%.1f, %.1f), Radius: %.1f", o.X, o.Y, o.Radius)
}
