package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewArenaRejectsBadSize(t *testing.T) {
	_, err := New(Options{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = New(Options{Width: 10, Height: -1})
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestArenaIdentifiersAreUniqueAndMonotonic(t *testing.T) {
	a := newTestArena(t, 400, 500, NewRand(1))

	seen := map[int]bool{}
	last := 0
	for _, k := range Kinds {
		r, err := a.Spawn(k)
		require.NoError(t, err)
		id := r.State().ID()
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.Greater(t, id, last)
		seen[id] = true
		last = id
	}

	require.NoError(t, a.RemoveRobot(last))
	r, err := a.Spawn(KindBasic)
	require.NoError(t, err)
	assert.Greater(t, r.State().ID(), last, "ids are never reused")

	// a second arena has its own sequence
	b := newTestArena(t, 400, 500, NewRand(1))
	first, err := b.Spawn(KindBasic)
	require.NoError(t, err)
	assert.Equal(t, 1, first.State().ID())
}

func TestSpawnPlacement(t *testing.T) {
	a := newTestArena(t, 400, 500, NewRand(1))

	basic, err := a.Spawn(KindBasic)
	require.NoError(t, err)
	assert.Equal(t, 200.0, basic.State().X)
	assert.Equal(t, 250.0, basic.State().Y)
	assert.Equal(t, ColorRed, basic.State().Color)

	killer, err := a.Spawn(KindKiller)
	require.NoError(t, err)
	assert.Equal(t, 12.0, killer.State().Radius)
	assert.Equal(t, ColorBlue, killer.State().Color)

	for _, k := range Kinds {
		r, err := a.Spawn(k)
		require.NoError(t, err, k)
		assert.Equal(t, k, r.Kind())
	}

	_, err = a.Spawn("tank")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSeedDemo(t *testing.T) {
	a := newTestArena(t, 400, 500, NewRand(1))
	a.SeedDemo()

	robots := a.Robots()
	require.Len(t, robots, 3)
	assert.Equal(t, KindBasic, robots[0].Kind())
	assert.Equal(t, KindBasic, robots[1].Kind())
	assert.Equal(t, KindAdvanced, robots[2].Kind())
}

func TestSetSize(t *testing.T) {
	a := newTestArena(t, 400, 500, NewRand(1))

	require.NoError(t, a.SetSize(300, 200))
	assert.Equal(t, 300.0, a.Width())
	assert.Equal(t, 200.0, a.Height())

	assert.ErrorIs(t, a.SetSize(0, 200), ErrInvalidSize)
	assert.ErrorIs(t, a.SetSize(300, -5), ErrInvalidSize)
	assert.Equal(t, 300.0, a.Width(), "size unchanged after a rejected resize")

	assert.Equal(t, "Arena Dimensions: 300.000000 x 200.000000", a.String())
}

func TestToggleMazeLegacyExtent(t *testing.T) {
	a := newTestArena(t, 100, 100, NewRand(9))
	require.NoError(t, a.AddObstacle(Obstacle{X: 10, Y: 10, Radius: 3}))

	assert.True(t, a.ToggleMaze())
	obs := a.Obstacles()
	require.Len(t, obs, DefaultMazeCount)
	for _, o := range obs {
		assert.Equal(t, DefaultMazeRadius, o.Radius)
		assert.GreaterOrEqual(t, o.X, 0.0)
		assert.Less(t, o.X, LegacyMazeWidth)
		assert.GreaterOrEqual(t, o.Y, 0.0)
		assert.Less(t, o.Y, LegacyMazeHeight)
	}

	require.NoError(t, a.AddObstacle(Obstacle{X: 50, Y: 50, Radius: 3}))
	assert.False(t, a.ToggleMaze())
	assert.Empty(t, a.Obstacles(), "leaving maze mode drops every obstacle")
}

func TestToggleMazeFollowsArena(t *testing.T) {
	a, err := New(Options{
		Width:  100,
		Height: 80,
		Rand:   &scriptedRand{vals: []float64{0.999}},
		Maze:   MazeOptions{Count: 5, Radius: 4},
	})
	require.NoError(t, err)

	a.ToggleMaze()

	obs := a.Obstacles()
	require.Len(t, obs, 5)
	for _, o := range obs {
		assert.InDelta(t, 99.9, o.X, 1e-9)
		assert.InDelta(t, 79.92, o.Y, 1e-9)
	}
}

func TestObstacles(t *testing.T) {
	a := newTestArena(t, 200, 100, &scriptedRand{vals: []float64{0, 1}})

	o, err := a.AddRandomObstacle(20)
	require.NoError(t, err)
	assert.Equal(t, Obstacle{X: 20, Y: 80, Radius: 20}, o)

	_, err = a.AddRandomObstacle(0)
	assert.ErrorIs(t, err, ErrInvalidRadius)
	assert.ErrorIs(t, a.AddObstacle(Obstacle{Radius: -1}), ErrInvalidRadius)

	require.NoError(t, a.AddObstacle(Obstacle{X: 1, Y: 2, Radius: 3}))
	removed, err := a.RemoveObstacle(0)
	require.NoError(t, err)
	assert.Equal(t, o, removed)
	assert.Equal(t, []Obstacle{{X: 1, Y: 2, Radius: 3}}, a.Obstacles())

	_, err = a.RemoveObstacle(5)
	assert.ErrorIs(t, err, ErrObstacleNotFound)

	assert.True(t, o.Contains(20, 80))
	assert.Equal(t, "Obstacle at (20.0, 80.0), Radius: 20.0", o.String())
}

func TestSetDirection(t *testing.T) {
	a := newTestArena(t, 200, 200, NewRand(1))
	u, err := a.Spawn(KindUser)
	require.NoError(t, err)
	b, err := a.Spawn(KindBasic)
	require.NoError(t, err)

	require.NoError(t, a.SetDirection(u.State().ID(), "d"))
	assert.Equal(t, DirRight, u.(*UserControlledRobot).Direction())

	assert.ErrorIs(t, a.SetDirection(b.State().ID(), "d"), ErrNotUserControlled)
	assert.ErrorIs(t, a.SetDirection(999, "d"), ErrRobotNotFound)
}

func TestRobotQueries(t *testing.T) {
	a := newTestArena(t, 200, 200, NewRand(1))
	basic := a.AddRobot(NewBasicRobot(50, 50, 10, 0, 1))
	adv := a.AddRobot(NewAdvancedRobot(150, 150, 10, 0, 1))
	target := a.AddRobot(NewAdvancedRobot(55, 50, 5, 0, 1))

	got, ok := a.RobotAt(152, 148)
	require.True(t, ok)
	assert.Equal(t, adv, got)
	_, ok = a.RobotAt(100, 100)
	assert.False(t, ok)

	assert.True(t, a.CheckHit(target), "basic robot overlaps target")
	require.NoError(t, a.RemoveRobot(basic.State().ID()))
	assert.False(t, a.CheckHit(target), "a robot never hits itself")

	adv.State().X, adv.State().Y = 60, 50
	assert.True(t, a.CheckHit(target), "every variant counts, advanced included")
	adv.State().X, adv.State().Y = 150, 150

	assert.ErrorIs(t, a.RemoveRobot(basic.State().ID()), ErrRobotNotFound)

	lines := a.Describe()
	require.Len(t, lines, 2)
	assert.Equal(t, "Robot ID: 2 Position: (150.0, 150.0)", lines[0])

	require.True(t, a.ToggleMaze())
	a.Clear()
	assert.Zero(t, a.RobotCount())
	assert.Empty(t, a.Obstacles())
	assert.False(t, a.Maze())
	assert.Equal(t, 4, a.AddRobot(NewBasicRobot(1, 1, 1, 0, 1)).State().ID())
}

func TestSnapshot(t *testing.T) {
	a := newTestArena(t, 200, 200, NewRand(1))
	a.AddRobot(NewBasicRobot(50, 50, 10, 0, 1))
	a.AddRobot(NewAdvancedRobot(150, 150, 10, 0, 1))
	u := a.AddRobot(NewUserControlledRobot(100, 100, 10, 1)).(*UserControlledRobot)
	u.SetDirection("s")
	require.NoError(t, a.AddObstacle(Obstacle{X: 5, Y: 6, Radius: 7}))

	snap := a.Snapshot()

	assert.Equal(t, 200.0, snap.Width)
	require.Len(t, snap.Robots, 3)
	assert.True(t, snap.Robots[0].HasSensors)
	assert.Equal(t, "r", snap.Robots[0].Tag)
	assert.InDelta(t, SensorLength, snap.Robots[0].Sensors[0].Line.Length(), 1e-9)
	assert.False(t, snap.Robots[1].HasSensors)
	assert.Equal(t, "g", snap.Robots[1].Tag)
	assert.Equal(t, "down", snap.Robots[2].Direction)
	assert.Equal(t, []ObstacleSnapshot{{X: 5, Y: 6, Radius: 7}}, snap.Obstacles)

	assert.False(t, snap.Robots[0].Hit)

	// later mutations do not leak into an existing snapshot
	u.X = 0
	assert.Equal(t, 100.0, snap.Robots[2].X)
}

func TestSnapshotMarksOverlappingRobots(t *testing.T) {
	a := newTestArena(t, 200, 200, NewRand(1))
	a.AddRobot(NewBasicRobot(50, 50, 10, 0, 1))
	a.AddRobot(NewKillerRobot(65, 50, 10, 0, 1))
	a.AddRobot(NewAdvancedRobot(150, 150, 10, 0, 1))

	snap := a.Snapshot()

	require.Len(t, snap.Robots, 3)
	assert.True(t, snap.Robots[0].Hit)
	assert.True(t, snap.Robots[1].Hit)
	assert.False(t, snap.Robots[2].Hit)
}

func TestSetWheels(t *testing.T) {
	a := newTestArena(t, 200, 200, NewRand(1))
	basic := a.AddRobot(NewBasicRobot(50, 50, 10, 0, 1)).(*BasicRobot)
	adv := a.AddRobot(NewAdvancedRobot(150, 150, 10, 0, 1)).(*AdvancedRobot)
	tele := a.AddRobot(NewTeleportingRobot(100, 100, 10, 0, 1))
	user := a.AddRobot(NewUserControlledRobot(100, 100, 10, 1))

	require.NoError(t, a.SetWheels(basic.ID(), WheelsLeft))
	assert.Equal(t, 0.5, basic.LeftWheel)
	assert.Equal(t, 1.5, basic.RightWheel)

	require.NoError(t, a.SetWheels(adv.ID(), WheelsRight))
	assert.Equal(t, 1.5, adv.LeftWheel)
	assert.Equal(t, 0.5, adv.RightWheel)

	require.NoError(t, a.SetWheels(basic.ID(), WheelsStraight))
	assert.Equal(t, 1.0, basic.LeftWheel)
	assert.Equal(t, 1.0, basic.RightWheel)

	assert.ErrorIs(t, a.SetWheels(tele.State().ID(), WheelsLeft), ErrNoWheels)
	assert.ErrorIs(t, a.SetWheels(user.State().ID(), WheelsLeft), ErrNoWheels)
	assert.ErrorIs(t, a.SetWheels(999, WheelsLeft), ErrRobotNotFound)
}

func TestParseWheels(t *testing.T) {
	tests := []struct {
		in      string
		want    Wheels
		wantErr bool
	}{
		{"left", WheelsLeft, false},
		{"RIGHT", WheelsRight, false},
		{"Straight", WheelsStraight, false},
		{"reverse", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseWheels(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownWheels, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
