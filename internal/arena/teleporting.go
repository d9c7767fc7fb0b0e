package arena

// TeleportChance is the per-tick probability of a teleport.
const TeleportChance = 0.1

// TeleportingRobot moves straight ahead and occasionally jumps to a random
// point in the arena.
type TeleportingRobot struct {
	BasicRobot

	teleported bool
}

// NewTeleportingRobot creates a teleporting robot
func NewTeleportingRobot(x, y, radius, angle, speed float64) *TeleportingRobot {
	r := &TeleportingRobot{BasicRobot: *NewBasicRobot(x, y, radius, angle, speed)}
	r.Color = ColorPurple
	return r
}

func (r *TeleportingRobot) Kind() Kind { return KindTeleporting }

// Teleported reports whether the last Move relocated the robot
func (r *TeleportingRobot) Teleported() bool { return r.teleported }

// Move steps forward, rolls for a teleport, then clamps.
func (r *TeleportingRobot) Move(w, h float64, rng Rand) {
	r.step()

	r.teleported = rng.Float64() < TeleportChance
	if r.teleported {
		r.X = rng.Float64() * w
		r.Y = rng.Float64() * h
	}

	r.clamp(w, h)
}
