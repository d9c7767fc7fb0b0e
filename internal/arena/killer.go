package arena

// KillerRobot drives like a basic robot and removes every robot it overlaps.
type KillerRobot struct {
	BasicRobot
}

// NewKillerRobot creates a killer robot
func NewKillerRobot(x, y, radius, angle, speed float64) *KillerRobot {
	r := &KillerRobot{BasicRobot: *NewBasicRobot(x, y, radius, angle, speed)}
	r.Color = ColorBlue
	return r
}

func (r *KillerRobot) Kind() Kind { return KindKiller }

// Adjust steers like an advanced robot, then eliminates each other robot whose
// center lies closer than the sum of the radii. Several victims per tick are
// allowed.
func (r *KillerRobot) Adjust(a *Arena) {
	r.steer(a)

	var victims []Robot
	for _, other := range a.robots {
		ob := other.State()
		if ob.id == r.id {
			continue
		}
		if r.Hitting(ob.X, ob.Y, ob.Radius) {
			victims = append(victims, other)
		}
	}

	for _, v := range victims {
		a.kill(r, v)
	}
}
