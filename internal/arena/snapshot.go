package arena

import "robot-arena/internal/geometry"

// SensorSnapshot is a copy of one sensor ray
type SensorSnapshot struct {
	Line      geometry.Line `json:"line"`
	Triggered bool          `json:"triggered"`
}

// RobotSnapshot is an immutable copy of a robot for rendering and the API.
// Value types only, so a snapshot never aliases live state.
type RobotSnapshot struct {
	ID     int      `json:"id"`
	Kind   Kind     `json:"kind"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Radius float64  `json:"radius"`
	Angle  float64  `json:"angle"`
	Speed  float64  `json:"speed"`
	Color  ColorTag `json:"-"`
	Tag    string   `json:"color"`

	// Sensors are set for the ray-sensing variants only
	HasSensors bool              `json:"hasSensors"`
	Sensors    [2]SensorSnapshot `json:"sensors"`

	Direction string `json:"direction,omitempty"`

	// Hit is set while another robot overlaps this one
	Hit bool `json:"hit"`
}

// ObstacleSnapshot is a copy of an obstacle
type ObstacleSnapshot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Snapshot is a complete copy of the arena state.
type Snapshot struct {
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Maze      bool               `json:"maze"`
	Robots    []RobotSnapshot    `json:"robots"`
	Obstacles []ObstacleSnapshot `json:"obstacles"`
}

// Snapshot copies the current state.
func (a *Arena) Snapshot() Snapshot {
	snap := Snapshot{
		Width:     a.width,
		Height:    a.height,
		Maze:      a.maze,
		Robots:    make([]RobotSnapshot, 0, len(a.robots)),
		Obstacles: make([]ObstacleSnapshot, 0, len(a.obstacles)),
	}

	for _, r := range a.robots {
		rs := snapshotRobot(r)
		rs.Hit = a.CheckHit(r)
		snap.Robots = append(snap.Robots, rs)
	}
	for _, o := range a.obstacles {
		snap.Obstacles = append(snap.Obstacles, ObstacleSnapshot{X: o.X, Y: o.Y, Radius: o.Radius})
	}
	return snap
}

func snapshotRobot(r Robot) RobotSnapshot {
	b := r.State()
	rs := RobotSnapshot{
		ID:     b.id,
		Kind:   r.Kind(),
		X:      b.X,
		Y:      b.Y,
		Radius: b.Radius,
		Angle:  b.Angle,
		Speed:  b.Speed,
		Color:  b.Color,
		Tag:    b.Color.String(),
	}

	switch v := r.(type) {
	case *AdvancedRobot:
		// bump sensor only, nothing to draw
	case *UserControlledRobot:
		rs.Direction = v.Direction().String()
		rs.HasSensors = true
		rs.Sensors = sensorPair(&v.BasicRobot)
	case *KillerRobot:
		rs.HasSensors = true
		rs.Sensors = sensorPair(&v.BasicRobot)
	case *TeleportingRobot:
		rs.HasSensors = true
		rs.Sensors = sensorPair(&v.BasicRobot)
	case *BasicRobot:
		rs.HasSensors = true
		rs.Sensors = sensorPair(v)
	}
	return rs
}

func sensorPair(r *BasicRobot) [2]SensorSnapshot {
	return [2]SensorSnapshot{
		{Line: r.Left.Line, Triggered: r.Left.Triggered},
		{Line: r.Right.Line, Triggered: r.Right.Triggered},
	}
}
