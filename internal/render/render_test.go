package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-arena/internal/arena"
	"robot-arena/internal/config"
)

func testSnapshot(t *testing.T) arena.Snapshot {
	t.Helper()
	a, err := arena.New(arena.Options{Width: 200, Height: 160, Rand: arena.NewRand(1)})
	require.NoError(t, err)
	a.AddRobot(arena.NewBasicRobot(50, 50, 10, 0, 1))
	a.AddRobot(arena.NewAdvancedRobot(150, 40, 10, 0, 1))
	require.NoError(t, a.AddObstacle(arena.Obstacle{X: 150, Y: 120, Radius: 10}))
	return a.Snapshot()
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestFrame(t *testing.T) {
	r := New(config.DefaultRender())
	img := r.Frame(testSnapshot(t))

	assert.Equal(t, image.Rect(0, 0, 200, 160), img.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, rgbaAt(img, 100, 80), "background")
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgbaAt(img, 44, 50), "basic robot body")
	assert.Equal(t, color.RGBA{0, 128, 0, 255}, rgbaAt(img, 150, 40), "advanced robot body")
	assert.Equal(t, color.RGBA{0, 160, 160, 255}, rgbaAt(img, 150, 120), "obstacle")
}

func TestFrameScale(t *testing.T) {
	cfg := config.DefaultRender()
	cfg.Scale = 2
	r := New(cfg)

	img := r.Frame(testSnapshot(t))
	assert.Equal(t, image.Rect(0, 0, 400, 320), img.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, rgbaAt(img, 88, 100))

	w, h := New(config.RenderConfig{}).Size(arena.Snapshot{Width: 10.2, Height: 0})
	assert.Equal(t, 11, w)
	assert.Equal(t, 1, h)
}

func TestEncodePNG(t *testing.T) {
	r := New(config.DefaultRender())

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf, testSnapshot(t)))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, r.SavePNG(path, testSnapshot(t)))
}

func TestColor(t *testing.T) {
	assert.Equal(t, color.Black, Color(arena.ColorPink))
	assert.Equal(t, color.Black, Color('z'))
	assert.NotEqual(t, Color(arena.ColorRed), Color(arena.ColorBlue))
}

func BenchmarkEncodePNG(b *testing.B) {
	a, err := arena.New(arena.Options{Width: 400, Height: 500, Rand: arena.NewRand(1)})
	if err != nil {
		b.Fatal(err)
	}
	a.SeedDemo()
	a.ToggleMaze()
	snap := a.Snapshot()
	r := New(config.DefaultRender())

	var buf bytes.Buffer
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := r.EncodePNG(&buf, snap); err != nil {
			b.Fatal(err)
		}
	}
}
