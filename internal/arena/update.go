package arena

import (
	"math"

	"robot-arena/internal/geometry"
)

// AdjustAllRobots runs one simulation tick.
//
// Robots are visited once in insertion order. Each one moves, then adjusts
// against the arena, then gains ObstacleDeflection degrees for every obstacle
// it overlaps. Robots removed by a killer are skipped for the rest of the
// pass.
func (a *Arena) AdjustAllRobots() {
	for a.cursor = 0; a.cursor < len(a.robots); a.cursor++ {
		r := a.robots[a.cursor]
		b := r.State()

		r.Move(a.width, a.height, a.rng)
		if t, ok := r.(*TeleportingRobot); ok && t.Teleported() && a.hooks.OnTeleport != nil {
			a.hooks.OnTeleport(r)
		}

		r.Adjust(a)

		for _, obs := range a.obstacles {
			if obs.Colliding(b.X, b.Y, b.Radius) {
				b.Angle += ObstacleDeflection
			}
		}
	}
	a.cursor = -1
}

// CheckRobotAngle returns a corrected heading for a circle at (x, y).
//
// Corrections are applied in order and do not combine smartly: a horizontal
// wall crossing reflects to 180−angle, a vertical one then negates the
// result, and any other robot overlapping the circle replaces the heading
// with the bearing from that robot's center to (x, y) plus 180°. When several
// robots overlap, the last one in iteration order wins. Obstacles are not
// consulted here.
func (a *Arena) CheckRobotAngle(x, y, radius, angle float64, excludeID int) float64 {
	out := angle

	if x-radius < 0 || x+radius > a.width {
		out = 180 - out
	}
	if y-radius < 0 || y+radius > a.height {
		out = -out
	}

	for _, r := range a.robots {
		b := r.State()
		if b.id == excludeID {
			continue
		}
		if geometry.CirclesOverlap(b.X, b.Y, b.Radius, x, y, radius) {
			out = geometry.Degrees(math.Atan2(y-b.Y, x-b.X)) + 180
		}
	}

	return out
}
