package arena

import (
	"fmt"
	"strings"

	"robot-arena/internal/geometry"
)

const (
	// SensorLength is the reach of each sensor ray
	SensorLength = 40.0
	// SensorSpread is the angle of each ray off the heading, in degrees
	SensorSpread = 30.0
	// turnGain converts the wheel speed difference into degrees per tick
	turnGain = 5.0
)

// Sensor is one line sensor and whether it fired on the last check.
type Sensor struct {
	Line      geometry.Line
	Triggered bool
}

// BasicRobot is a differential-drive robot with two forward line sensors.
type BasicRobot struct {
	Body

	LeftWheel  float64
	RightWheel float64
	Turning    float64

	Left  Sensor
	Right Sensor
}

// NewBasicRobot creates a basic robot driving straight at speed.
func NewBasicRobot(x, y, radius, angle, speed float64) *BasicRobot {
	r := &BasicRobot{
		Body: Body{
			X:      x,
			Y:      y,
			Radius: radius,
			Angle:  angle,
			Speed:  speed,
			Color:  ColorRed,
		},
		LeftWheel:  speed,
		RightWheel: speed,
	}
	r.updateSensors()
	return r
}

func (r *BasicRobot) State() *Body { return &r.Body }
func (r *BasicRobot) Kind() Kind   { return KindBasic }

// Sensors returns the left and right sensors
func (r *BasicRobot) Sensors() (Sensor, Sensor) { return r.Left, r.Right }

// Move runs the differential drive, checks both rays against the walls and
// turns away decisively when either one fires.
func (r *BasicRobot) Move(w, h float64, rng Rand) {
	r.drive()
	r.updateSensors()

	r.Left.Triggered = sensorSeesWall(r.Left.Line, w, h)
	r.Right.Triggered = sensorSeesWall(r.Right.Line, w, h)
	if r.Left.Triggered || r.Right.Triggered {
		r.Angle += randomTurn(rng)
	}

	r.clamp(w, h)
}

// drive applies one tick of differential-drive kinematics.
func (r *BasicRobot) drive() {
	r.Turning = (r.RightWheel - r.LeftWheel) * turnGain
	r.Angle += r.Turning
	r.Speed = (r.LeftWheel + r.RightWheel) / 2
	r.step()
}

// Adjust re-senses against other robots and obstacles.
func (r *BasicRobot) Adjust(a *Arena) {
	r.sense(a)
	if r.Left.Triggered || r.Right.Triggered {
		r.Angle += randomTurn(a.rng)
	}
}

// sense recomputes both sensors against the arena contents. A ray fires when
// it passes within another robot's radius of that robot's center, or crosses
// an obstacle circle.
func (r *BasicRobot) sense(a *Arena) {
	r.updateSensors()
	r.Left.Triggered = false
	r.Right.Triggered = false

	for _, other := range a.robots {
		ob := other.State()
		if ob.id == r.id {
			continue
		}
		if r.Left.Line.DistanceFrom(ob.X, ob.Y) < ob.Radius {
			r.Left.Triggered = true
		}
		if r.Right.Line.DistanceFrom(ob.X, ob.Y) < ob.Radius {
			r.Right.Triggered = true
		}
	}

	for _, obs := range a.obstacles {
		if r.Left.Line.IntersectsCircle(obs.X, obs.Y, obs.Radius) {
			r.Left.Triggered = true
		}
		if r.Right.Line.IntersectsCircle(obs.X, obs.Y, obs.Radius) {
			r.Right.Triggered = true
		}
	}
}

func (r *BasicRobot) updateSensors() {
	r.Left.Line = geometry.Ray(r.X, r.Y, r.Angle-SensorSpread, SensorLength)
	r.Right.Line = geometry.Ray(r.X, r.Y, r.Angle+SensorSpread, SensorLength)
}

// Wheels names a preset pair of wheel speeds.
type Wheels string

const (
	WheelsLeft     Wheels = "left"
	WheelsRight    Wheels = "right"
	WheelsStraight Wheels = "straight"
)

// ParseWheels maps a preset name (any case) to Wheels
func ParseWheels(s string) (Wheels, error) {
	switch w := Wheels(strings.ToLower(s)); w {
	case WheelsLeft, WheelsRight, WheelsStraight:
		return w, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWheels, s)
}

// TurnLeft, TurnRight and GoStraight set the wheel speeds.
func (r *BasicRobot) TurnLeft()   { r.LeftWheel, r.RightWheel = 0.5, 1.5 }
func (r *BasicRobot) TurnRight()  { r.LeftWheel, r.RightWheel = 1.5, 0.5 }
func (r *BasicRobot) GoStraight() { r.LeftWheel, r.RightWheel = 1.0, 1.0 }

func (r *BasicRobot) setWheels(w Wheels) {
	switch w {
	case WheelsLeft:
		r.TurnLeft()
	case WheelsRight:
		r.TurnRight()
	default:
		r.GoStraight()
	}
}

// sensorSeesWall checks a ray against the four arena walls.
func sensorSeesWall(sensor geometry.Line, w, h float64) bool {
	walls := [4]geometry.Line{
		geometry.NewLine(0, 0, w, 0),
		geometry.NewLine(0, h, w, h),
		geometry.NewLine(0, 0, 0, h),
		geometry.NewLine(w, 0, w, h),
	}
	for _, wall := range walls {
		if sensor.Intersects(wall) {
			return true
		}
	}
	return false
}
