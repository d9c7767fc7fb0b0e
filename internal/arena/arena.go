// Package arena implements the robot arena simulation: the robot variants,
// obstacles, and the per-tick movement and collision algorithm.
//
// An Arena is not safe for concurrent use. Callers serialise ticks and
// mutations (see internal/game.Engine).
package arena

import (
	"fmt"
	"math"
)

const (
	// DefaultWidth and DefaultHeight match the legacy window canvas
	DefaultWidth  = 400.0
	DefaultHeight = 500.0

	// ObstacleDeflection is added to a robot's heading for every obstacle it overlaps
	ObstacleDeflection = 120.0

	DefaultMazeCount  = 20
	DefaultMazeRadius = 10.0
	// Legacy maze extent, independent of the configured arena size
	LegacyMazeWidth  = 400.0
	LegacyMazeHeight = 500.0
)

// Hooks are optional callbacks fired from inside a tick.
type Hooks struct {
	OnKill     func(killer, victim Robot)
	OnTeleport func(r Robot)
}

// MazeOptions controls obstacle generation when maze mode is switched on.
type MazeOptions struct {
	Count  int
	Radius float64
	// Width and Height bound the random placement. Zero means the current
	// arena size.
	Width, Height float64
}

// DefaultMaze reproduces the legacy layout: 20 obstacles of radius 10
// scattered over a fixed 400×500 extent.
func DefaultMaze() MazeOptions {
	return MazeOptions{
		Count:  DefaultMazeCount,
		Radius: DefaultMazeRadius,
		Width:  LegacyMazeWidth,
		Height: LegacyMazeHeight,
	}
}

// Options configure a new arena.
type Options struct {
	Width, Height float64
	Rand          Rand
	Maze          MazeOptions
	Hooks         Hooks
}

// Arena owns the robots, the obstacles and the bounds.
type Arena struct {
	width, height float64

	robots    []Robot
	obstacles []Obstacle
	maze      bool
	mazeOpts  MazeOptions

	nextID int
	rng    Rand
	hooks  Hooks

	// index of the robot being processed by AdjustAllRobots, -1 otherwise
	cursor int
}

// New creates an empty arena.
func New(opts Options) (*Arena, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: %v x %v", ErrInvalidSize, opts.Width, opts.Height)
	}
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	maze := opts.Maze
	if maze.Count == 0 && maze.Radius == 0 {
		maze = DefaultMaze()
	}
	return &Arena{
		width:    opts.Width,
		height:   opts.Height,
		robots:   make([]Robot, 0, 16),
		mazeOpts: maze,
		rng:      rng,
		hooks:    opts.Hooks,
		cursor:   -1,
	}, nil
}

// Width returns the arena width
func (a *Arena) Width() float64 { return a.width }

// Height returns the arena height
func (a *Arena) Height() float64 { return a.height }

// Rand returns the arena's random source
func (a *Arena) Rand() Rand { return a.rng }

// SetHooks replaces the tick callbacks
func (a *Arena) SetHooks(h Hooks) { a.hooks = h }

// SetSize resizes the arena. Robots are not moved; the next Move clamps them.
func (a *Arena) SetSize(w, h float64) error {
	if !(w > 0) || !(h > 0) || math.IsInf(w, 0) || math.IsInf(h, 0) {
		return fmt.Errorf("%w: %v x %v", ErrInvalidSize, w, h)
	}
	a.width = w
	a.height = h
	return nil
}

// String is the persisted dimensions line.
func (a *Arena) String() string {
	return fmt.Sprintf("Arena Dimensions: %f x %f", a.width, a.height)
}

// AddRobot assigns the next identifier and appends the robot.
func (a *Arena) AddRobot(r Robot) Robot {
	a.nextID++
	r.State().id = a.nextID
	a.robots = append(a.robots, r)
	return r
}

// placement is where Spawn puts a new robot of a kind
type placement struct {
	x, y                 float64 // absolute, or a fraction of the arena when centered
	centered             bool
	radius, angle, speed float64
}

var placements = map[Kind]placement{
	KindBasic:       {x: 0.5, y: 0.5, centered: true, radius: 10, angle: 60, speed: 5},
	KindAdvanced:    {x: 0.5, y: 0.5, centered: true, radius: 10, angle: 60, speed: 5},
	KindKiller:      {x: 100, y: 106, radius: 12, angle: 10, speed: 1},
	KindTeleporting: {x: 100, y: 100, radius: 10, speed: 1},
	KindUser:        {x: 100, y: 100, radius: 10, speed: 1},
}

// Spawn adds a robot of the given kind at the default placement for that kind.
func (a *Arena) Spawn(kind Kind) (Robot, error) {
	p, ok := placements[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	x, y := p.x, p.y
	if p.centered {
		x, y = a.width*p.x, a.height*p.y
	}
	r, err := NewRobot(kind, x, y, p.radius, p.angle, p.speed)
	if err != nil {
		return nil, err
	}
	return a.AddRobot(r), nil
}

// SeedDemo adds the three robots a fresh arena started with.
func (a *Arena) SeedDemo() {
	a.AddRobot(NewBasicRobot(a.width, a.height, 10, 45, 10))
	a.AddRobot(NewBasicRobot(a.width/1.5, a.height/1.5, 10, 45, 10))
	a.AddRobot(NewAdvancedRobot(1, 1, 10, 45, 10))
}

// Robot looks a robot up by identifier
func (a *Arena) Robot(id int) (Robot, bool) {
	if i := a.indexOf(id); i >= 0 {
		return a.robots[i], true
	}
	return nil, false
}

// Robots returns the live robots in iteration order. The slice is a copy;
// the robots are not.
func (a *Arena) Robots() []Robot {
	out := make([]Robot, len(a.robots))
	copy(out, a.robots)
	return out
}

// RobotCount returns the number of live robots
func (a *Arena) RobotCount() int { return len(a.robots) }

// Obstacles returns a copy of the obstacles
func (a *Arena) Obstacles() []Obstacle {
	out := make([]Obstacle, len(a.obstacles))
	copy(out, a.obstacles)
	return out
}

// RobotAt returns the first robot whose circle contains the point.
func (a *Arena) RobotAt(x, y float64) (Robot, bool) {
	for _, r := range a.robots {
		if r.State().Contains(x, y) {
			return r, true
		}
	}
	return nil, false
}

// RemoveRobot deletes a robot by identifier.
func (a *Arena) RemoveRobot(id int) error {
	i := a.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrRobotNotFound, id)
	}
	a.removeAt(i)
	return nil
}

// SetDirection forwards an input token to a user controlled robot.
func (a *Arena) SetDirection(id int, token string) error {
	r, ok := a.Robot(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRobotNotFound, id)
	}
	u, ok := r.(*UserControlledRobot)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotUserControlled, id)
	}
	u.SetDirection(token)
	return nil
}

// SetWheels applies a wheel preset. Only variants whose motion follows the
// wheel speeds accept one: basic, advanced and killer robots.
func (a *Arena) SetWheels(id int, w Wheels) error {
	r, ok := a.Robot(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrRobotNotFound, id)
	}
	switch v := r.(type) {
	case *BasicRobot:
		v.setWheels(w)
	case *AdvancedRobot:
		v.setWheels(w)
	case *KillerRobot:
		v.setWheels(w)
	default:
		return fmt.Errorf("%w: %d is %s", ErrNoWheels, id, r.Kind())
	}
	return nil
}

// AddObstacle appends an obstacle.
func (a *Arena) AddObstacle(o Obstacle) error {
	if o.Radius <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRadius, o.Radius)
	}
	a.obstacles = append(a.obstacles, o)
	return nil
}

// AddRandomObstacle places an obstacle fully inside the arena.
func (a *Arena) AddRandomObstacle(radius float64) (Obstacle, error) {
	if radius <= 0 {
		return Obstacle{}, fmt.Errorf("%w: %v", ErrInvalidRadius, radius)
	}
	o := Obstacle{
		X:      radius + a.rng.Float64()*(a.width-2*radius),
		Y:      radius + a.rng.Float64()*(a.height-2*radius),
		Radius: radius,
	}
	a.obstacles = append(a.obstacles, o)
	return o, nil
}

// RemoveObstacle deletes the obstacle at index.
func (a *Arena) RemoveObstacle(index int) (Obstacle, error) {
	if index < 0 || index >= len(a.obstacles) {
		return Obstacle{}, fmt.Errorf("%w: index %d", ErrObstacleNotFound, index)
	}
	o := a.obstacles[index]
	a.obstacles = append(a.obstacles[:index], a.obstacles[index+1:]...)
	return o, nil
}

// Clear removes every robot and obstacle and switches maze mode off.
// Identifiers keep counting up.
func (a *Arena) Clear() {
	clear(a.robots)
	a.robots = a.robots[:0]
	a.obstacles = a.obstacles[:0]
	a.maze = false
}

// Maze reports whether maze mode is on
func (a *Arena) Maze() bool { return a.maze }

// ToggleMaze flips maze mode. Switching on replaces every obstacle with a
// random layout; switching off clears all obstacles, including ones added by
// hand.
func (a *Arena) ToggleMaze() bool {
	a.maze = !a.maze
	if a.maze {
		a.generateMaze()
	} else {
		a.obstacles = a.obstacles[:0]
	}
	return a.maze
}

func (a *Arena) generateMaze() {
	w, h := a.mazeOpts.Width, a.mazeOpts.Height
	if w <= 0 || h <= 0 {
		w, h = a.width, a.height
	}
	a.obstacles = a.obstacles[:0]
	for i := 0; i < a.mazeOpts.Count; i++ {
		a.obstacles = append(a.obstacles, Obstacle{
			X:      a.rng.Float64() * w,
			Y:      a.rng.Float64() * h,
			Radius: a.mazeOpts.Radius,
		})
	}
}

// CheckHit reports whether any other robot overlaps target.
func (a *Arena) CheckHit(target Robot) bool {
	tb := target.State()
	for _, r := range a.robots {
		if r == target {
			continue
		}
		if r.State().Hitting(tb.X, tb.Y, tb.Radius) {
			return true
		}
	}
	return false
}

// Describe returns one status line per robot.
func (a *Arena) Describe() []string {
	lines := make([]string, 0, len(a.robots))
	for _, r := range a.robots {
		b := r.State()
		lines = append(lines, fmt.Sprintf("Robot ID: %d Position: (%.1f, %.1f)", b.id, b.X, b.Y))
	}
	return lines
}

func (a *Arena) indexOf(id int) int {
	for i, r := range a.robots {
		if r.State().id == id {
			return i
		}
	}
	return -1
}

func (a *Arena) removeAt(i int) {
	copy(a.robots[i:], a.robots[i+1:])
	a.robots[len(a.robots)-1] = nil
	a.robots = a.robots[:len(a.robots)-1]
	if i < a.cursor {
		a.cursor--
	}
}

// kill removes victim on behalf of killer.
func (a *Arena) kill(killer, victim Robot) {
	i := a.indexOf(victim.State().id)
	if i < 0 {
		return
	}
	a.removeAt(i)
	if a.hooks.OnKill != nil {
		a.hooks.OnKill(killer, victim)
	}
}
