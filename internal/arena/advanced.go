package arena

import (
	"math"

	"robot-arena/internal/geometry"
)

// AdvancedRobot combines its wheel velocities as vectors and relies on a
// simple bump sensor instead of rays.
type AdvancedRobot struct {
	BasicRobot
}

// NewAdvancedRobot creates an advanced robot
func NewAdvancedRobot(x, y, radius, angle, speed float64) *AdvancedRobot {
	r := &AdvancedRobot{BasicRobot: *NewBasicRobot(x, y, radius, angle, speed)}
	r.Color = ColorGreen
	return r
}

func (r *AdvancedRobot) Kind() Kind { return KindAdvanced }

// Move averages the two wheel vectors, which point at heading±90°.
func (r *AdvancedRobot) Move(w, h float64, rng Rand) {
	left := geometry.Radians(r.Angle + 90)
	right := geometry.Radians(r.Angle - 90)

	lx := r.LeftWheel * math.Cos(left)
	ly := r.LeftWheel * math.Sin(left)
	rx := r.RightWheel * math.Cos(right)
	ry := r.RightWheel * math.Sin(right)

	r.X += (lx + rx) / 2
	r.Y += (ly + ry) / 2

	if r.outOfBounds(w, h) {
		r.Turning = randomTurn(rng)
		r.Angle += r.Turning
	}

	r.clamp(w, h)
}

// Adjust bounces off walls and robots via the arena, then steps forward.
func (r *AdvancedRobot) Adjust(a *Arena) {
	r.steer(a)
}
