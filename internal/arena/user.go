package arena

import "strings"

// Direction is one of the four cardinal moves of a user robot.
type Direction uint8

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	default:
		return "up"
	}
}

// heading in degrees for a direction; y grows downwards.
func (d Direction) heading() float64 {
	switch d {
	case DirDown:
		return 90
	case DirLeft:
		return 180
	case DirRight:
		return 0
	default:
		return 270
	}
}

// ParseDirection maps W/A/S/D (any case) to a direction. Anything else is up.
func ParseDirection(token string) Direction {
	switch strings.ToUpper(token) {
	case "A":
		return DirLeft
	case "S":
		return DirDown
	case "D":
		return DirRight
	default:
		return DirUp
	}
}

// UserControlledRobot moves a fixed step in the last requested direction.
type UserControlledRobot struct {
	BasicRobot

	direction Direction
}

// NewUserControlledRobot creates a user robot facing up
func NewUserControlledRobot(x, y, radius, speed float64) *UserControlledRobot {
	r := &UserControlledRobot{BasicRobot: *NewBasicRobot(x, y, radius, DirUp.heading(), speed)}
	r.Color = ColorYellow
	r.direction = DirUp
	return r
}

func (r *UserControlledRobot) Kind() Kind { return KindUser }

// Direction returns the current direction
func (r *UserControlledRobot) Direction() Direction { return r.direction }

// SetDirection applies a single-character input token.
func (r *UserControlledRobot) SetDirection(token string) {
	r.direction = ParseDirection(token)
	r.Angle = r.direction.heading()
}

// Move steps along the current direction and stays inside the arena.
func (r *UserControlledRobot) Move(w, h float64, rng Rand) {
	switch r.direction {
	case DirUp:
		r.Y -= r.Speed
	case DirDown:
		r.Y += r.Speed
	case DirLeft:
		r.X -= r.Speed
	case DirRight:
		r.X += r.Speed
	}

	if r.sensorSeesObstacle(w, h) {
		r.Angle += randomTurn(rng)
	}

	r.clamp(w, h)
}

// sensorSeesObstacle is not wired to anything; user robots never react to
// walls on their own.
func (r *UserControlledRobot) sensorSeesObstacle(w, h float64) bool {
	return false
}
