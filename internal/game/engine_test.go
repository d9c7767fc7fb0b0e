package game

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
)

func newTestEngine(t *testing.T, cfg config.EngineConfig) (*Engine, *arena.Arena) {
	t.Helper()
	a, err := arena.New(arena.Options{Width: 400, Height: 500, Rand: arena.NewRand(1)})
	if err != nil {
		t.Fatalf("arena.New: %v", err)
	}
	return NewEngine(cfg, a, nil), a
}

type countingObserver struct {
	ticks, kills, teleports int
}

func (o *countingObserver) TickObserved(time.Duration, int, int) { o.ticks++ }
func (o *countingObserver) RobotKilled()                         { o.kills++ }
func (o *countingObserver) RobotTeleported()                     { o.teleports++ }

// TestNewEngine verifies an initial snapshot is published
func TestNewEngine(t *testing.T) {
	tests := []struct {
		name     string
		tickRate int
		want     int
	}{
		{"standard 60 TPS", 60, 60},
		{"low 15 TPS", 15, 15},
		{"zero falls back to default", 0, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, config.EngineConfig{TickRate: tt.tickRate})
			snap := e.Snapshot()
			if snap == nil {
				t.Fatal("no snapshot after NewEngine")
			}
			if snap.Width != 400 || snap.Height != 500 {
				t.Errorf("snapshot size = %vx%v, want 400x500", snap.Width, snap.Height)
			}
			if got := e.Stats().TickRate; got != tt.want {
				t.Errorf("tick rate = %d, want %d", got, tt.want)
			}
			if e.RunID() == "" {
				t.Error("empty run id")
			}
		})
	}
}

// TestEngineStartStop verifies the loop ticks and stops cleanly
func TestEngineStartStop(t *testing.T) {
	e, _ := newTestEngine(t, config.EngineConfig{TickRate: 200})

	e.Start()
	e.Start() // no second loop
	require.Eventually(t, func() bool { return e.Ticks() > 2 }, 2*time.Second, 5*time.Millisecond)

	e.Stop()
	e.Stop() // should not panic on double stop

	stopped := e.Ticks()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, e.Ticks(), "no ticks after Stop")
	assert.False(t, e.Snapshot().Running)

	// restartable
	e.Start()
	require.Eventually(t, func() bool { return e.Ticks() > stopped }, 2*time.Second, 5*time.Millisecond)
	e.Stop()
}

func TestEnginePauseResume(t *testing.T) {
	e, _ := newTestEngine(t, config.EngineConfig{TickRate: 200})
	e.Start()
	defer e.Stop()

	require.Eventually(t, func() bool { return e.Ticks() > 0 }, 2*time.Second, 5*time.Millisecond)

	e.Pause()
	paused := e.Ticks()
	assert.True(t, e.Snapshot().Paused)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, paused, e.Ticks(), "pause takes effect between ticks")

	// stepping works while paused
	e.Step()
	assert.Equal(t, paused+1, e.Ticks())

	e.Resume()
	require.Eventually(t, func() bool { return e.Ticks() > paused+1 }, 2*time.Second, 5*time.Millisecond)
}

func TestEngineStepMovesRobots(t *testing.T) {
	e, a := newTestEngine(t, config.DefaultEngine())
	r := a.AddRobot(arena.NewBasicRobot(50, 50, 10, 0, 5))

	before := e.Snapshot()
	snap := e.Step()

	assert.Equal(t, uint64(1), snap.Tick)
	assert.Greater(t, snap.Sequence, before.Sequence)
	got, ok := snap.Robot(r.State().ID())
	require.True(t, ok)
	assert.InDelta(t, 55.0, got.X, 1e-9)

	// the earlier snapshot is not affected by the step
	assert.Empty(t, before.Robots)
}

func TestEngineAddRobot(t *testing.T) {
	e, _ := newTestEngine(t, config.EngineConfig{TickRate: 60, MaxRobots: 2})

	rs, err := e.AddRobot(arena.KindKiller)
	require.NoError(t, err)
	assert.Equal(t, arena.KindKiller, rs.Kind)
	assert.Equal(t, 1, rs.ID)
	assert.Equal(t, "b", rs.Tag)

	_, err = e.AddRobot(arena.KindUser)
	require.NoError(t, err)

	_, err = e.AddRobot(arena.KindBasic)
	assert.True(t, errors.Is(err, ErrRobotLimit), "got %v", err)
	assert.Len(t, e.Snapshot().Robots, 2)

	require.NoError(t, e.RemoveRobot(1))
	_, err = e.AddRobot("spinner")
	assert.ErrorIs(t, err, arena.ErrUnknownKind)
	assert.ErrorIs(t, e.RemoveRobot(1), arena.ErrRobotNotFound)
}

func TestEngineResize(t *testing.T) {
	e, a := newTestEngine(t, config.DefaultEngine())

	tests := []struct {
		name          string
		width, height string
		wantErr       error
		wantW, wantH  float64
	}{
		{"valid", "300", " 200 ", nil, 300, 200},
		{"non numeric", "wide", "200", ErrInvalidInput, 300, 200},
		{"empty", "", "", ErrInvalidInput, 300, 200},
		{"negative", "-5", "100", arena.ErrInvalidSize, 300, 200},
		{"decimal", "250.5", "90", nil, 250.5, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Resize(tt.width, tt.height)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantW, a.Width())
			assert.Equal(t, tt.wantH, a.Height())
			assert.Equal(t, tt.wantW, e.Snapshot().Width)
		})
	}
}

func TestEngineObstaclesAndMaze(t *testing.T) {
	e, _ := newTestEngine(t, config.DefaultEngine())

	o, err := e.AddObstacle(15)
	require.NoError(t, err)
	assert.Equal(t, 15.0, o.Radius)
	_, err = e.AddObstacle(-1)
	assert.ErrorIs(t, err, arena.ErrInvalidRadius)

	removed, err := e.RemoveObstacle(0)
	require.NoError(t, err)
	assert.Equal(t, o, removed)
	_, err = e.RemoveObstacle(0)
	assert.ErrorIs(t, err, arena.ErrObstacleNotFound)

	assert.True(t, e.ToggleMaze())
	assert.True(t, e.Snapshot().Maze)
	assert.Len(t, e.Snapshot().Obstacles, arena.DefaultMazeCount)
	assert.False(t, e.ToggleMaze())
	assert.Empty(t, e.Snapshot().Obstacles)
}

func TestEngineSetDirection(t *testing.T) {
	e, _ := newTestEngine(t, config.DefaultEngine())
	user, err := e.AddRobot(arena.KindUser)
	require.NoError(t, err)
	basic, err := e.AddRobot(arena.KindBasic)
	require.NoError(t, err)

	require.NoError(t, e.SetDirection(user.ID, "a"))
	got, _ := e.Snapshot().Robot(user.ID)
	assert.Equal(t, "left", got.Direction)
	assert.Equal(t, 180.0, got.Angle)

	assert.ErrorIs(t, e.SetDirection(basic.ID, "a"), arena.ErrNotUserControlled)
}

func TestEngineSetWheels(t *testing.T) {
	e, _ := newTestEngine(t, config.DefaultEngine())
	basic, err := e.AddRobot(arena.KindBasic)
	require.NoError(t, err)
	user, err := e.AddRobot(arena.KindUser)
	require.NoError(t, err)

	seq := e.Snapshot().Sequence
	require.NoError(t, e.SetWheels(basic.ID, "left"))
	assert.Greater(t, e.Snapshot().Sequence, seq)

	// wheels 0.5/1.5: turn 5 degrees, average speed 1
	e.Step()
	got, _ := e.Snapshot().Robot(basic.ID)
	assert.InDelta(t, 65.0, got.Angle, 1e-9)
	assert.InDelta(t, 1.0, got.Speed, 1e-9)

	assert.ErrorIs(t, e.SetWheels(basic.ID, "reverse"), arena.ErrUnknownWheels)
	assert.ErrorIs(t, e.SetWheels(user.ID, "left"), arena.ErrNoWheels)
	assert.ErrorIs(t, e.SetWheels(999, "left"), arena.ErrRobotNotFound)
}

func TestEngineRobotAt(t *testing.T) {
	e, _ := newTestEngine(t, config.DefaultEngine())
	basic, err := e.AddRobot(arena.KindBasic)
	require.NoError(t, err)

	got, ok := e.RobotAt(basic.X+3, basic.Y-3)
	require.True(t, ok)
	assert.Equal(t, basic.ID, got.ID)

	_, ok = e.RobotAt(1, 1)
	assert.False(t, ok)
}

func TestEngineKillsAreCounted(t *testing.T) {
	e, a := newTestEngine(t, config.DefaultEngine())
	obs := &countingObserver{}
	e.SetObserver(obs)

	killer := arena.NewKillerRobot(100, 100, 12, 0, 0)
	killer.LeftWheel, killer.RightWheel = 0, 0
	a.AddRobot(killer)
	a.AddRobot(arena.NewBasicRobot(105, 100, 10, 0, 0))

	e.Step()

	stats := e.Stats()
	assert.Equal(t, uint64(1), stats.Kills)
	assert.Equal(t, 1, stats.Robots)
	assert.Equal(t, 1, obs.kills)
	assert.Equal(t, 1, obs.ticks)
	assert.Len(t, e.Snapshot().Robots, 1)
}

func TestEngineSaveLoad(t *testing.T) {
	e, _ := newTestEngine(t, config.DefaultEngine())
	_, err := e.AddRobot(arena.KindAdvanced)
	require.NoError(t, err)
	_, err = e.AddObstacle(5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.Save(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "Arena Dimensions: 400.000000 x 500.000000\n"))

	other, _ := newTestEngine(t, config.DefaultEngine())
	res, err := other.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Robots)
	assert.Equal(t, 1, res.Obstacles)

	snap := other.Snapshot()
	require.Len(t, snap.Robots, 1)
	assert.Equal(t, arena.KindBasic, snap.Robots[0].Kind)
	assert.Len(t, snap.Obstacles, 1)
}

// TestEngineConcurrentActions hammers the action API while the loop runs.
// Run with -race.
func TestEngineConcurrentActions(t *testing.T) {
	e, _ := newTestEngine(t, config.EngineConfig{TickRate: 500})
	user, err := e.AddRobot(arena.KindUser)
	require.NoError(t, err)
	e.Start()
	defer e.Stop()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				switch i % 5 {
				case 0:
					_, _ = e.AddRobot(arena.Kinds[(g+i)%len(arena.Kinds)])
				case 1:
					_, _ = e.AddObstacle(3)
				case 2:
					_ = e.SetDirection(user.ID, "wasd"[i%4:i%4+1])
				case 3:
					_ = e.Snapshot()
					_ = e.Stats()
				case 4:
					_ = e.Resize("400", "500")
				}
			}
		}(g)
	}
	wg.Wait()

	e.Pause()
	stats := e.Stats()
	snap := e.Snapshot()
	assert.Equal(t, stats.Robots, len(snap.Robots))
	assert.Equal(t, stats.Obstacles, len(snap.Obstacles))
	assert.True(t, snap.Paused)
}
