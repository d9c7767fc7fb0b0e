package persist

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"robot-arena/internal/arena"
)

func newArena(t *testing.T, w, h float64) *arena.Arena {
	t.Helper()
	a, err := arena.New(arena.Options{Width: w, Height: h, Rand: arena.NewRand(1)})
	require.NoError(t, err)
	return a
}

func TestSaveFormat(t *testing.T) {
	a := newArena(t, 400, 500)
	a.AddRobot(arena.NewBasicRobot(105.84, 222.61, 10, 45, 5))
	require.NoError(t, a.AddObstacle(arena.Obstacle{X: 12.25, Y: 30, Radius: 10}))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, a.Snapshot()))

	want := "Arena Dimensions: 400.000000 x 500.000000\n" +
		"Robot ID: 1 at (105.8, 222.6), Radius: 10.0, Speed: 5.0, Angle: 45.0\n" +
		"Obstacle at (12.2, 30.0), Radius: 10.0\n"
	assert.Equal(t, want, buf.String())
}

// The dump does not record robot kinds or identifiers, so an advanced robot
// comes back as a basic one with a new id.
func TestRoundTripLosesKind(t *testing.T) {
	src := newArena(t, 300, 200)
	src.AddRobot(arena.NewBasicRobot(10, 10, 5, 0, 1))
	src.AddRobot(arena.NewAdvancedRobot(120.5, 80.5, 10, 45, 2))

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, src.Snapshot()))

	dst := newArena(t, 400, 500)
	dst.SeedDemo()
	res, err := Load(&buf, dst, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, Result{Width: 300, Height: 200, Robots: 2}, res)
	assert.Equal(t, 300.0, dst.Width())
	assert.Equal(t, 200.0, dst.Height())

	robots := dst.Robots()
	require.Len(t, robots, 2, "existing robots are replaced")

	loaded := robots[1]
	assert.Equal(t, arena.KindBasic, loaded.Kind(), "kind is not preserved")
	assert.NotEqual(t, arena.KindAdvanced, loaded.Kind())
	b := loaded.State()
	assert.Equal(t, 120.5, b.X)
	assert.Equal(t, 80.5, b.Y)
	assert.Equal(t, 45.0, b.Angle)
	assert.Equal(t, 10.0, b.Radius)
	assert.Equal(t, 2.0, b.Speed)
	assert.Greater(t, b.ID(), 3, "ids continue the target arena's sequence")
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := newArena(t, 400, 500)

	dump := strings.Join([]string{
		"Arena Dimensions: 250.000000 x 260.000000",
		"Robot ID: 7 at (10.0, 20.0), Radius: 5.0, Speed: 1.0, Angle: 90.0",
		"Robot ID: 8 at (ten, 20.0), Radius: 5.0, Speed: 1.0, Angle: 90.0",
		"Robot ID: 9 at (10.0, 20.0), Radius: 0.0, Speed: 1.0, Angle: 90.0",
		"Robot ID: 10 at 10.0, 20.0",
		"",
		"  Obstacle at (50.0, 60.0), Radius: 7.5  ",
		"Obstacle at (50.0 60.0), Radius: 7.5",
		"Obstacle at (1.0, 2.0), Radius: NaN",
		"hello",
	}, "\n")

	res, err := Load(strings.NewReader(dump), a, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Robots)
	assert.Equal(t, 1, res.Obstacles)
	assert.Equal(t, 6, res.Skipped)
	assert.Equal(t, 6, logs.Len())
	assert.Equal(t, []arena.Obstacle{{X: 50, Y: 60, Radius: 7.5}}, a.Obstacles())

	first := logs.All()[0]
	assert.Equal(t, int64(3), first.ContextMap()["line"])
}

func TestLoadBadDimensionsKeepsSize(t *testing.T) {
	a := newArena(t, 400, 500)

	res, err := Load(strings.NewReader("Arena Dimensions: -1.000000 x 20.000000\n"), a, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 400.0, a.Width())
	assert.Equal(t, 500.0, a.Height())
}

func TestLoadSkipsOverlongLine(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	a := newArena(t, 400, 500)

	dump := "Arena Dimensions: 300.000000 x 200.000000\n" +
		strings.Repeat("x", 70000) + "\n" +
		"Robot ID: 1 at (10.0, 20.0), Radius: 5.0, Speed: 1.0, Angle: 0.0\n"

	res, err := Load(strings.NewReader(dump), a, zap.New(core))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Robots)
	assert.Equal(t, 300.0, a.Width())
	assert.Equal(t, 200.0, a.Height())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(2), entry.ContextMap()["line"])
	assert.Len(t, entry.ContextMap()["text"], 80)
}

func TestLoadLeavesMazeMode(t *testing.T) {
	a := newArena(t, 400, 500)
	require.True(t, a.ToggleMaze())

	res, err := Load(strings.NewReader("Obstacle at (50.0, 60.0), Radius: 7.5\n"), a, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Obstacles)
	assert.False(t, a.Maze())
	assert.Equal(t, []arena.Obstacle{{X: 50, Y: 60, Radius: 7.5}}, a.Obstacles())
}

type failingReader struct{ r io.Reader }

func (f *failingReader) Read(p []byte) (int, error) {
	if n, err := f.r.Read(p); n > 0 || err == nil {
		return n, nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestLoadReadErrorLeavesArenaUntouched(t *testing.T) {
	a := newArena(t, 400, 500)
	a.SeedDemo()

	src := &failingReader{r: strings.NewReader("Robot ID: 1 at (10.0, 20.0), Radius: 5.0, Speed: 1.0, Angle: 0.0\n")}
	_, err := Load(src, a, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 3, a.RobotCount())
}

func TestFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.txt")
	src := newArena(t, 320, 240)
	src.AddRobot(arena.NewKillerRobot(30, 40, 12, 10, 1))
	require.NoError(t, src.AddObstacle(arena.Obstacle{X: 5, Y: 5, Radius: 2}))

	require.NoError(t, SaveFile(path, src.Snapshot()))

	dst := newArena(t, 100, 100)
	res, err := LoadFile(path, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Robots)
	assert.Equal(t, 1, res.Obstacles)
	assert.Equal(t, 320.0, dst.Width())

	_, err = LoadFile(filepath.Join(t.TempDir(), "nope.txt"), dst, nil)
	assert.Error(t, err)
}
