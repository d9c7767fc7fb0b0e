package arena

import (
	"fmt"
	"math"

	"robot-arena/internal/geometry"
)

// Kind identifies a robot variant. The set is closed.
type Kind string

const (
	KindBasic       Kind = "basic"
	KindAdvanced    Kind = "advanced"
	KindKiller      Kind = "killer"
	KindTeleporting Kind = "teleporting"
	KindUser        Kind = "user"
)

// Kinds lists every variant in display order
var Kinds = []Kind{KindBasic, KindAdvanced, KindKiller, KindTeleporting, KindUser}

// ParseKind maps a name to a Kind
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ColorTag is the single-letter display color of an entity.
type ColorTag byte

const (
	ColorRed    ColorTag = 'r'
	ColorGreen  ColorTag = 'g'
	ColorBlue   ColorTag = 'b'
	ColorYellow ColorTag = 'y'
	ColorPurple ColorTag = 'o'
	ColorCyan   ColorTag = 'c'
	ColorPink   ColorTag = 'p'
)

func (c ColorTag) String() string { return string(rune(c)) }

// Body is the kinematic state shared by every robot.
type Body struct {
	id     int
	X, Y   float64
	Radius float64
	Angle  float64 // degrees, 0 = +x
	Speed  float64
	Color  ColorTag
}

// ID returns the arena-assigned identifier (0 until the robot is added)
func (b *Body) ID() int { return b.id }

// step advances the body one unit of Speed along Angle.
func (b *Body) step() {
	rad := geometry.Radians(b.Angle)
	b.X += b.Speed * math.Cos(rad)
	b.Y += b.Speed * math.Sin(rad)
}

// clamp snaps each axis so the circle edge touches rather than crosses the bounds.
func (b *Body) clamp(w, h float64) {
	if b.X-b.Radius < 0 {
		b.X = b.Radius
	}
	if b.X+b.Radius > w {
		b.X = w - b.Radius
	}
	if b.Y-b.Radius < 0 {
		b.Y = b.Radius
	}
	if b.Y+b.Radius > h {
		b.Y = h - b.Radius
	}
}

// outOfBounds is the simple bump sensor: the circle exceeds the rectangle.
func (b *Body) outOfBounds(w, h float64) bool {
	return b.X-b.Radius < 0 || b.X+b.Radius > w || b.Y-b.Radius < 0 || b.Y+b.Radius > h
}

// Hitting reports a strict circle overlap with (x, y, r)
func (b *Body) Hitting(x, y, r float64) bool {
	return geometry.CirclesOverlap(b.X, b.Y, b.Radius, x, y, r)
}

// Contains reports whether a point lies inside the robot's circle
func (b *Body) Contains(px, py float64) bool {
	return math.Hypot(b.X-px, b.Y-py) <= b.Radius
}

// steer asks the arena for a corrected heading, then moves one step along it.
func (b *Body) steer(a *Arena) {
	b.Angle = a.CheckRobotAngle(b.X, b.Y, b.Radius, b.Angle, b.id)
	b.step()
}

// String uses the persisted robot line format.
func (b *Body) String() string {
	return fmt.Sprintf("Robot ID: %d at (%.1f, %.1f), Radius: %.1f, Speed: %.1f, Angle: %.1f",
		b.id, b.X, b.Y, b.Radius, b.Speed, b.Angle)
}

// Robot is implemented by every variant.
//
// Move advances one simulation step inside [0,w]×[0,h] using the variant's
// kinematics and clamps the result. Adjust applies arena-level corrections.
type Robot interface {
	State() *Body
	Kind() Kind
	Move(w, h float64, rng Rand)
	Adjust(a *Arena)
}

// randomTurn is the decisive 100..180 degree turn used when a sensor fires.
func randomTurn(rng Rand) float64 {
	return 100 + rng.Float64()*80
}

// NewRobot builds a robot of the given kind. Radius must be positive. User
// controlled robots ignore angle and start facing up.
func NewRobot(kind Kind, x, y, radius, angle, speed float64) (Robot, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	switch kind {
	case KindBasic:
		return NewBasicRobot(x, y, radius, angle, speed), nil
	case KindAdvanced:
		return NewAdvancedRobot(x, y, radius, angle, speed), nil
	case KindKiller:
		return NewKillerRobot(x, y, radius, angle, speed), nil
	case KindTeleporting:
		return NewTeleportingRobot(x, y, radius, angle, speed), nil
	case KindUser:
		return NewUserControlledRobot(x, y, radius, speed), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
